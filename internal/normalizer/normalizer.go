// Package normalizer projects a raw line onto its canonical key form: the
// first K delimiter-separated fields, rejoined with the delimiter.
package normalizer

import "bytes"

// Normalize builds the canonical NormalizedKey for a trimmed line:
//
//  1. Strip leading/trailing ASCII whitespace (done by the caller, which
//     already trims while scanning lines; Normalize assumes trimmed input).
//  2. Split the remainder on delim with at most fields splits, yielding
//     at most fields+1 segments.
//  3. Take the first min(fields, len(segments)) segments and rejoin with
//     delim.
//
// If line has fewer than fields delimiter-separated fields, every segment
// is taken and the result equals the whole trimmed line. An empty line
// yields an empty key.
func Normalize(line []byte, delim byte, fields int) []byte {
	if len(line) == 0 {
		return nil
	}

	segments := bytes.SplitN(line, []byte{delim}, fields+1)
	take := fields
	if len(segments) < take {
		take = len(segments)
	}

	return bytes.Join(segments[:take], []byte{delim})
}
