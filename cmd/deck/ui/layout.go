// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for the task screen
const (
	// Footer: status line, key help and padding
	FooterBaseHeight = 8

	// Search panel: bordered input plus autocomplete rows
	SearchPanelHeight = 6

	// Header: title bar plus divider
	HeaderHeight = 2

	// Panel borders and spacing
	PanelBorderWidth = 1
	SearchInputRows  = 1
	ContentIndent    = 2

	// Responsive breakpoints
	MinimumTerminalWidth  = 60
	MinimumTerminalHeight = 16
	CompactModeWidth      = 100
)

// FooterOptions selects which optional footer parts are visible.
type FooterOptions struct {
	SearchActive bool
}

// ComputeFooterHeight returns the footer height in rows: the base height,
// plus the search panel when it is open.
func ComputeFooterHeight(opts FooterOptions) int {
	h := FooterBaseHeight
	if opts.SearchActive {
		h += SearchPanelHeight
	}
	return h
}

// SuggestionRows is the number of autocomplete rows inside the search panel.
const SuggestionRows = SearchPanelHeight - PanelBorderWidth*2 - SearchInputRows

// BodyHeight returns the rows left for the task list
func BodyHeight(termHeight int, opts FooterOptions) int {
	h := termHeight - HeaderHeight - ComputeFooterHeight(opts)
	if h < 0 {
		return 0
	}
	return h
}

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	IsCompact      bool
	IsTooSmall     bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < CompactModeWidth,
		IsTooSmall:     width < MinimumTerminalWidth || height < MinimumTerminalHeight,
	}
}

// ContentWidth returns the usable width inside the body
func (l LayoutConfig) ContentWidth() int {
	w := l.TerminalWidth - ContentIndent*2
	if w < 0 {
		return 0
	}
	return w
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	w := panelWidth - PanelBorderWidth*2 - ContentIndent
	if w < 0 {
		return 0
	}
	return w
}
