package main

import (
	"github.com/spf13/cobra"

	_ "github.com/jackzampolin/problembook/docs"
	"github.com/jackzampolin/problembook/internal/server"
)

var (
	serveHost  string
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the problembook server",
	Long: `Start the problembook HTTP server.

The server opens the configured storage backend (sqlite by default), runs
batch jobs in the background and exposes the HTTP API. With
storage.backend=defra and storage.defra_docker=true it also starts the
DefraDB container and stops it again on shutdown.

The server provides:
  - /health       - Basic server health check
  - /ready        - Readiness check (storage and DefraDB)
  - /swagger      - API documentation

Examples:
  problembook serve                    # Start on the configured port (8080)
  problembook serve --port 3000        # Start on custom port
  problembook serve --host 0.0.0.0     # Bind to all interfaces
  problembook serve --watch-config     # Reload providers when config.yaml changes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		var addr string
		if cmd.Flags().Changed("host") || cmd.Flags().Changed("port") {
			sc := cfg.Server
			if cmd.Flags().Changed("host") {
				sc.Host = serveHost
			}
			if cmd.Flags().Changed("port") {
				sc.Port = servePort
			}
			addr = sc.Addr()
		}
		if serveWatch {
			mgr.WatchConfig()
		}

		logger := newLogger(cfg)
		srv, err := server.New(server.Config{
			ConfigManager: mgr,
			HomePath:      homeDir,
			Addr:          addr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveWatch, "watch-config", false, "Reload provider settings when the config file changes")

	rootCmd.AddCommand(serveCmd)
}
