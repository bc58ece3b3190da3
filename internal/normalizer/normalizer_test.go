package normalizer

import "testing"

func TestNormalizeTakesFirstKFields(t *testing.T) {
	line := []byte("010;HO;1O01;2024;0450273881;000002;xxx;yyy")
	got := Normalize(line, ';', 6)
	want := "010;HO;1O01;2024;0450273881;000002"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeFewerThanKFields(t *testing.T) {
	line := []byte("a;b;c")
	got := Normalize(line, ';', 6)
	if string(got) != "a;b;c" {
		t.Errorf("got %q, want whole line", got)
	}
}

func TestNormalizeExactlyKFields(t *testing.T) {
	line := []byte("a;b;c;d;e;f")
	got := Normalize(line, ';', 6)
	if string(got) != "a;b;c;d;e;f" {
		t.Errorf("got %q, want whole line", got)
	}
}

func TestNormalizeEmptyLine(t *testing.T) {
	got := Normalize(nil, ';', 6)
	if len(got) != 0 {
		t.Errorf("expected empty key, got %q", got)
	}
}

func TestNormalizeSingleField(t *testing.T) {
	got := Normalize([]byte("onlyfield"), ';', 6)
	if string(got) != "onlyfield" {
		t.Errorf("got %q, want %q", got, "onlyfield")
	}
}

func TestNormalizeDifferentDelimiter(t *testing.T) {
	got := Normalize([]byte("a,b,c,d"), ',', 2)
	if string(got) != "a,b" {
		t.Errorf("got %q, want %q", got, "a,b")
	}
}
