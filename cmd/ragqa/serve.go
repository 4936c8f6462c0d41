package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ragqa/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := appCfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := httpapi.NewServer(httpapi.Config{
		Addr:           addr,
		MaxUploadBytes: appCfg.Server.MaxUploadMB << 20,
		ReadTimeout:    secs(appCfg.Server.ReadTimeout),
		WriteTimeout:   secs(appCfg.Server.WriteTimeout),
	}, a.svc)
	return srv.ListenAndServe(ctx)
}
