package ui

import (
	"strings"
	"testing"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("DECK_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when DECK_DARK_MODE=1")
	}

	t.Setenv("DECK_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when DECK_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for black background")
	}
}

func TestThemeFor(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("DECK_DARK_MODE", "")
	if !ThemeFor("dark").IsDark {
		t.Fatalf("dark should be dark")
	}
	if ThemeFor("light").IsDark {
		t.Fatalf("light should be light")
	}
	if ThemeFor("auto").IsDark {
		t.Fatalf("auto should detect light with no hints")
	}
}

func TestRenderDivider(t *testing.T) {
	s := NewStyles(LightTheme())
	if got := s.RenderDivider(5); !strings.Contains(got, "─────") {
		t.Fatalf("divider missing: %q", got)
	}
	if got := s.RenderDivider(-1); strings.Contains(got, "─") {
		t.Fatalf("negative width should render empty, got %q", got)
	}
}
