package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ragqa/internal/watcher"
)

var watchCollection string

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Ingest files into a collection as they appear or change in a directory",
	Long: `Watches DIR recursively and ingests supported files when they are created
or written. Chunk ids are derived from the file's relative path and chunk
index, so re-saving a file overwrites its chunks. If a file shrinks, chunks
beyond its new chunk count remain in the collection until it is rebuilt.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchCollection, "collection", "c", "", "target collection")
	_ = watchCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := watcher.New(args[0], watchCollection, appCfg.Ingest.Extensions, a.svc)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
