package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	got := String()
	if !strings.HasPrefix(got, "occgrid-sim "+Version) {
		t.Errorf("String() = %q, want prefix %q", got, "occgrid-sim "+Version)
	}
	if !strings.Contains(got, GitSHA) {
		t.Errorf("String() = %q missing git sha %q", got, GitSHA)
	}
}
