// Package selector implements the strategy selector: it picks the FAST,
// SAFE, or DISK engine from an a-priori memory budget derived from total
// input size and available physical RAM.
package selector

import (
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bejglee/duplicate-finder/internal/config"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/types"
)

// Decision records the inputs and outcome of a Select call, for logging.
type Decision struct {
	Strategy      config.Strategy
	TotalBytes    int64
	AvailableRAM  uint64
	Ceiling       float64
	FastCost      float64
	SafeCost      float64
	RAMProbeError error
}

// ramAvailable probes available physical RAM. Overridable in tests.
var ramAvailable = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Select implements the decision table:
//
//	if FAST_cost < C  -> FAST
//	else if SAFE_cost < C -> SAFE
//	else -> DISK
//
// where C = RAM_USAGE_THRESHOLD * available RAM. If forced (cfg.Strategy is
// not "auto"), the forced tier is returned without probing memory. If the
// memory probe fails, the selector falls back to SAFE and logs a warning.
func Select(rc *runctx.RunContext, files []*types.InputFile) Decision {
	if rc.Config.Strategy != config.StrategyAuto {
		return Decision{Strategy: rc.Config.Strategy}
	}

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}

	available, err := ramAvailable()
	d := Decision{
		TotalBytes:    totalBytes,
		AvailableRAM:  available,
		RAMProbeError: err,
	}
	if err != nil {
		d.Strategy = config.StrategySafe
		rc.Logger.Warnw("memory probe failed, falling back to SAFE",
			"total_bytes", humanize.IBytes(uint64(totalBytes)),
			"error", err)
		return d
	}

	d.Ceiling = float64(available) * config.RAMUsageThreshold
	d.FastCost = float64(totalBytes) * config.FastFactor
	d.SafeCost = float64(totalBytes) * config.SafeFactor

	switch {
	case d.FastCost < d.Ceiling:
		d.Strategy = config.StrategyFast
	case d.SafeCost < d.Ceiling:
		d.Strategy = config.StrategySafe
	default:
		d.Strategy = config.StrategyDisk
	}

	rc.Logger.Infow("strategy selected",
		"strategy", d.Strategy,
		"total_bytes", humanize.IBytes(uint64(d.TotalBytes)),
		"available_ram", humanize.IBytes(d.AvailableRAM),
		"ceiling", humanize.IBytes(uint64(d.Ceiling)),
		"fast_cost", humanize.IBytes(uint64(d.FastCost)),
		"safe_cost", humanize.IBytes(uint64(d.SafeCost)),
	)
	return d
}
