package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragqa/internal/logging"
	"ragqa/internal/service"
	"ragqa/internal/summarizer"
	"ragqa/internal/tui"
)

var tuiTopK int

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive question console",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().IntVarP(&tuiTopK, "top-k", "k", service.DefaultTopK, "number of chunks to retrieve")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// log lines would corrupt the alt screen
	logging.Configure(io.Discard, appCfg.Log.Level, "json")

	a, err := newApp(cmd.Context(), appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.New(a.svc, summarizer.NewFrequencySummarizer(), tuiTopK)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
