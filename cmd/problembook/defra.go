package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/problembook/internal/api"
	"github.com/jackzampolin/problembook/internal/config"
	"github.com/jackzampolin/problembook/internal/defra"
	"github.com/jackzampolin/problembook/internal/home"
	"github.com/jackzampolin/problembook/internal/server"
)

var (
	logsTail    string
	waitTimeout time.Duration
)

var defraCmd = &cobra.Command{
	Use:   "defra",
	Short: "Run the DefraDB container by hand",
	Long: `Control the DefraDB container behind storage.backend=defra.

Data lives under <home>/defra. serve starts and stops the container on its
own when storage.defra_docker is true.`,
	Example: `  problembook defra start
  problembook defra status
  problembook defra logs --tail 20`,
}

func init() {
	defraCmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Create or start the container",
			RunE: withDocker(func(cmd *cobra.Command, mgr *defra.DockerManager) error {
				if err := mgr.Start(cmd.Context()); err != nil {
					return fmt.Errorf("failed to start DefraDB: %w", err)
				}
				fmt.Printf("DefraDB running at %s\n", mgr.URL())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the container, keeping its data",
			RunE: withDocker(func(cmd *cobra.Command, mgr *defra.DockerManager) error {
				if err := mgr.Stop(cmd.Context()); err != nil {
					return fmt.Errorf("failed to stop DefraDB: %w", err)
				}
				fmt.Println("DefraDB stopped")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print container state and health",
			RunE:  withDocker(printDefraStatus),
		},
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent container logs",
		RunE: withDocker(func(cmd *cobra.Command, mgr *defra.DockerManager) error {
			logs, err := mgr.Logs(cmd.Context(), logsTail)
			if err != nil {
				return fmt.Errorf("failed to get logs: %w", err)
			}
			fmt.Print(logs)
			return nil
		}),
	}
	logsCmd.Flags().StringVar(&logsTail, "tail", "100", "lines from the end of the log")

	waitCmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until DefraDB answers health checks",
		RunE: withDocker(func(cmd *cobra.Command, mgr *defra.DockerManager) error {
			if err := mgr.WaitReady(cmd.Context(), waitTimeout); err != nil {
				return fmt.Errorf("DefraDB not ready after %s: %w", waitTimeout, err)
			}
			fmt.Println("DefraDB ready")
			return nil
		}),
	}
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "how long to wait")

	defraCmd.AddCommand(logsCmd, waitCmd)
	rootCmd.AddCommand(defraCmd)
}

func printDefraStatus(cmd *cobra.Command, mgr *defra.DockerManager) error {
	ctx := cmd.Context()
	status, err := mgr.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	out := defraStatusOutput{Status: string(status)}
	if status == defra.StatusRunning {
		out.URL = mgr.URL()
		out.Healthy = defra.NewClient(mgr.URL()).HealthCheck(ctx) == nil
	}
	return api.Output(out)
}

type defraStatusOutput struct {
	Status  string `json:"status"`
	URL     string `json:"url,omitempty"`
	Healthy bool   `json:"healthy"`
}

// withDocker opens a DockerManager for the duration of fn.
func withDocker(fn func(*cobra.Command, *defra.DockerManager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		mgr, err := getDockerManager()
		if err != nil {
			return err
		}
		defer mgr.Close()
		return fn(cmd, mgr)
	}
}

// getHome resolves the home directory from config and creates it.
func getHome(cfg *config.Config) (*home.Dir, error) {
	h, err := server.NewHome(homeDir, cfg)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// getDockerManager builds a DockerManager from the defra config section,
// keeping data in the same place serve does.
func getDockerManager() (*defra.DockerManager, error) {
	mgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	h, err := getHome(cfg)
	if err != nil {
		return nil, err
	}
	return defra.NewDockerManager(defra.DockerConfig{
		ContainerName: cfg.Defra.ContainerName,
		Image:         cfg.Defra.Image,
		DataPath:      filepath.Join(h.Path(), "defra"),
		HostPort:      cfg.Defra.Port,
	})
}
