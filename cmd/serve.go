package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wormhole-demo/core/internal/server"
)

// serveCmd exposes verification over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification API over HTTP",
	Long: `Serves POST /verify and GET /health. Clients submit hex-encoded signed
message bytes and receive the verification verdict plus the decoded body.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String(
		"listen",
		":8080",
		"Address to serve the verification API on")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)

	listen, _ := cmd.Flags().GetString("listen")

	bridge, store, err := openBridge(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(logger, bridge, listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("Received shutdown signal")
		cancel()
	}()

	return srv.Run(ctx)
}
