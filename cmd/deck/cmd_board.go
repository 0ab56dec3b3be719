package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"taskdeck/cmd/deck/board"
)

// runBoard opens the interactive board.
func runBoard(cmd *cobra.Command, args []string) error {
	ws, cfg, err := loadWorkspace()
	if err != nil {
		return err
	}
	r, idx := newRefresher(ws, cfg)
	if idx != nil {
		defer idx.Close()
	}

	m := board.New(board.Config{
		Workspace: ws,
		Settings:  cfg,
		Refresher: r,
		Index:     idx,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
