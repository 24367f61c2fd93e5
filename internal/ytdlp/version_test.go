package ytdlp

import "testing"

func TestVersionAtLeast(t *testing.T) {
	cases := []struct {
		version string
		minimum string
		want    bool
	}{
		{"2025.05.21", "2025.05.22", false},
		{"2025.05.22", "2025.05.22", true},
		{"2025.6", "2025.05.22", true},
		{"2025.05.22", "2025.6", false},
		{"2026.01.01", "2025.05.22", true},
		{"2025", "2025.0.0", true},
		{"", "2025.05.22", false},
		{"garbage", "2025.05.22", false},
		{"2025.05.22", "", false},
	}
	for _, tc := range cases {
		if got := VersionAtLeast(tc.version, tc.minimum); got != tc.want {
			t.Errorf("VersionAtLeast(%q, %q) = %v, want %v", tc.version, tc.minimum, got, tc.want)
		}
	}
}
