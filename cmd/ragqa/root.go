package main

import (
	"github.com/spf13/cobra"

	"ragqa/internal/config"
	"ragqa/internal/logging"
)

var (
	cfgPath   string
	logLevel  string
	logFormat string

	// loaded by the root pre-run hook for every subcommand
	appCfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "ragqa",
	Short: "Question answering over multiple document collections",
	Long: `ragqa ingests documents into named collections of a vector store and
answers questions with an LLM, using retrieved chunks as context.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/ragqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (console, json)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgPath == "" {
		appCfg, _, err = config.LoadDefault()
	} else {
		appCfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return err
	}
	if logLevel != "" {
		appCfg.Log.Level = logLevel
	}
	if logFormat != "" {
		appCfg.Log.Format = logFormat
	}
	logging.Setup(appCfg.Log.Level, appCfg.Log.Format)
	return nil
}
