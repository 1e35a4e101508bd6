//go:build !fyne

package ui

import (
	"strings"
	"testing"

	"gosketchcad/internal/config"
)

func TestRunStubReturnsHelpfulError(t *testing.T) {
	err := Run("", config.Defaults())
	if err == nil {
		t.Fatal("expected error from Run() in non-fyne build, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "UI not built") || !strings.Contains(msg, "-tags fyne") {
		t.Fatalf("unexpected error message: %q", msg)
	}
}
