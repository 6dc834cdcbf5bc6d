package localfs

import "testing"

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/out/accounts/.staging", true},
		{".DS_Store", true},
		{"/out/accounts/files/001_00P_report.pdf", false},
		{".", false},
		{"..", false},
		{"/out/accounts/files/", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsHidden(tt.path); got != tt.want {
			t.Errorf("IsHidden(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
