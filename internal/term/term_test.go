package term

import (
	"testing"

	"github.com/backmassage/kramtex/internal/config"
)

func TestResolve_ExplicitModes(t *testing.T) {
	if !Resolve(config.ColorAlways, nil) {
		t.Error("ColorAlways should enable colors even without a terminal")
	}
	if Resolve(config.ColorNever, nil) {
		t.Error("ColorNever should disable colors")
	}
	if Resolve(config.ColorAuto, nil) {
		t.Error("ColorAuto without a terminal should disable colors")
	}
}

func TestPalette_Paint(t *testing.T) {
	off := NewPalette(config.ColorNever, nil)
	if off.Enabled() {
		t.Fatal("palette should be disabled")
	}
	if got := off.Paint(off.Red, "x"); got != "x" {
		t.Errorf("disabled Paint = %q, want %q", got, "x")
	}

	on := NewPalette(config.ColorAlways, nil)
	if got, want := on.Paint(on.Red, "x"), "\033[1;91mx\033[0m"; got != want {
		t.Errorf("enabled Paint = %q, want %q", got, want)
	}
}
