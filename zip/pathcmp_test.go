package zip

import "testing"

func TestPathCompare(t *testing.T) {
	tests := []struct {
		p1, p2     string
		ignoreCase bool
		wantEqual  bool
	}{
		{"docs/readme", "docs/readme", false, true},
		{"docs/readme", "docs\\readme", false, true},
		{"docs\\sub\\file", "docs/sub/file", false, true},
		{"Docs/README", "docs/readme", false, false},
		{"Docs/README", "docs/readme", true, true},
		{"a", "b", false, false},
		{"abc", "ab", false, false},
		{"ab", "abc", true, false},
		{"", "", false, true},
	}
	for _, tt := range tests {
		got := PathCompare(tt.p1, tt.p2, tt.ignoreCase)
		if (got == 0) != tt.wantEqual {
			t.Errorf("PathCompare(%q, %q, %v) = %d", tt.p1, tt.p2, tt.ignoreCase, got)
		}
	}
}

func TestPathCompareOrdering(t *testing.T) {
	if PathCompare("a", "b", false) >= 0 {
		t.Error("a should order before b")
	}
	if PathCompare("b", "a", false) <= 0 {
		t.Error("b should order after a")
	}
	if PathCompare("B", "a", true) <= 0 {
		t.Error("case-folded B should order after a")
	}
}
