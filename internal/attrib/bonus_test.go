package attrib

import "testing"

func TestApplyBonus(t *testing.T) {
	tests := []struct {
		base  string
		bonus string
		want  string
	}{
		{"0", "+15", "15"},
		{"100", "-10%", "90"},
		{"50", "+5", "55"},
		{"0", "x2", "2"},
		{"100", "+25%", "125"},
		{"100", "25%", "125"},
		{"40", "-15", "25"},
		{"3", "x2", "6"},
		{"200", "50", "250"},
		{"0", "1.5", "1.5"},
		{"10 20 30", "+5", "15"},
		{"1.5", "+0.25", "1.75"},
	}
	for _, tt := range tests {
		if got := ApplyBonus(tt.base, true, tt.bonus); got != tt.want {
			t.Errorf("ApplyBonus(%q, %q) = %q, want %q", tt.base, tt.bonus, got, tt.want)
		}
	}
}

func TestApplyBonus_NoBase(t *testing.T) {
	if got := ApplyBonus("", false, "+40%"); got != "40" {
		t.Errorf("ApplyBonus(no base, +40%%) = %q, want 40", got)
	}
}

func TestStripSigns(t *testing.T) {
	tests := map[string]string{
		"+15":  "15",
		"-10%": "10",
		"x2":   "2",
		"25":   "25",
		"+-5":  "5",
	}
	for in, want := range tests {
		if got := StripSigns(in); got != want {
			t.Errorf("StripSigns(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{"10.0", "10"},
		{"0.5", "0.5"},
		{"0.50", "0.5"},
		{"-25", "-25"},
		{"10 20 30", "10"},
		{"1.5 2", "1.5"},
		{"0", "0"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeNumeric(tt.in); got != tt.want {
			t.Errorf("NormalizeNumeric(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"600", 600, true},
		{"600 700", 600, true},
		{"0.5", 0, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLeadingInt(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLeadingInt(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
