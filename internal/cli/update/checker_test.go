package update

import "testing"

func TestSupersedes(t *testing.T) {
	cases := []struct {
		latest, current string
		want            bool
	}{
		{"v1.2.0", "v1.2.0", false},
		{"1.2.0", "v1.2.0", false},
		{"v1.3.0", "v1.2.0", true},
		{"v1.0.0", "dev", true},
	}

	for _, tc := range cases {
		if got := supersedes(tc.latest, tc.current); got != tc.want {
			t.Errorf("supersedes(%q, %q) = %v, want %v", tc.latest, tc.current, got, tc.want)
		}
	}
}

func TestReleaseAssetName(t *testing.T) {
	// Runs on whatever platform executes the suite; every supported one
	// must resolve to a batsim-prefixed artifact
	name, err := releaseAssetName()
	if err != nil {
		t.Skipf("no release artifact for this platform: %v", err)
	}
	if len(name) == 0 || name[:7] != "batsim-" {
		t.Errorf("unexpected artifact name %q", name)
	}
}
