package monitoring

import (
	"fmt"
	"testing"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := capture(t)
	Logf("tick %d", 3)
	if len(*lines) != 1 || (*lines)[0] != "tick 3" {
		t.Fatalf("got %q", *lines)
	}

	SetLogger(nil)
	Logf("dropped")
	if len(*lines) != 1 {
		t.Errorf("nil logger should mute, got %q", *lines)
	}
}

func TestComponent(t *testing.T) {
	logf := Component("sensorsim")
	lines := capture(t)

	logf("published %d cells", 40000)
	if len(*lines) != 1 || (*lines)[0] != "[sensorsim] published 40000 cells" {
		t.Errorf("got %q", *lines)
	}
}
