package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ytrag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [url]",
	Short: "Open the interactive chat",
	Long: `Opens a terminal chat. Paste a YouTube URL or video id to load its
transcript, then ask questions about it.

Commands inside the chat:
  /video <url>  switch to another video
  /clear        clear the conversation`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

// runProgram runs the bubbletea program. Tests replace it.
var runProgram = func(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine, cleanup, err := engineFactory(ctx, appConfig, appLog)
	if err != nil {
		return err
	}
	defer cleanup()

	initial := ""
	if len(args) == 1 {
		initial = args[0]
	}
	if err := runProgram(tui.New(ctx, engine, initial)); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
