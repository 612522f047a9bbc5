// Command citabot watches the ITV booking site for inspection slots.
//
// Usage:
//
//	citabot serve
//	citabot slots --station 21 --service 323 --count 5
//	citabot stations --province Valencia
//	citabot config
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"citabot.app/internal/app"
	"citabot.app/internal/config"
	"citabot.app/internal/core/availability"
	"citabot.app/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load environment variables from .env file if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "citabot",
		Short:         "ITV appointment watcher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(slotsCmd())
	root.AddCommand(stationsCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, background refresh and notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			application, err := app.NewApplication(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}

			slog.Info("Server configuration",
				"port", cfg.Server.Port,
				"cache", cfg.Cache.Type.String(),
				"store", cfg.Store.Type.String(),
				"push", cfg.Push.Provider,
				"notification_mode", cfg.Notification.Mode)

			errCh := make(chan error, 1)
			go func() {
				errCh <- application.Start(ctx)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					_ = application.Shutdown(context.Background())
					return err
				}
				return nil
			case <-ctx.Done():
				slog.Info("Received shutdown signal...")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			return application.Shutdown(shutdownCtx)
		},
	}
}

func slotsCmd() *cobra.Command {
	var stationID, serviceID string
	var count int
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Fetch the next available slots for a station and service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(func(ctx context.Context, application *app.Application) error {
				result, err := application.GetAvailabilityUseCase().GetAppointments(ctx, availability.AppointmentsRequest{
					StationID:    stationID,
					ServiceID:    serviceID,
					Count:        count,
					ForceRefresh: true,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{
					"slots":      result.Slots,
					"fetched_at": result.FetchedAt,
				})
			})
		},
	}
	cmd.Flags().StringVar(&stationID, "station", "", "Station id")
	cmd.Flags().StringVar(&serviceID, "service", "", "Service id")
	cmd.Flags().IntVar(&count, "count", availability.DefaultCount, "Number of slots to return")
	_ = cmd.MarkFlagRequired("station")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func stationsCmd() *cobra.Command {
	var province string
	cmd := &cobra.Command{
		Use:   "stations",
		Short: "List inspection stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(func(ctx context.Context, application *app.Application) error {
				stations, err := application.GetStationUseCase().ListStations(ctx)
				if err != nil {
					return err
				}
				for _, st := range stations {
					if province != "" && !strings.EqualFold(st.Province, province) {
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-4s %-20s %-24s %s\n", st.ID, st.Province, st.Type, st.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&province, "province", "", "Only list stations in this province")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadQuietConfig()
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg.Redacted())
		},
	}
}

// runOneShot builds the station and slot lookup wiring, runs fn and releases everything
func runOneShot(fn func(ctx context.Context, application *app.Application) error) error {
	cfg, err := loadQuietConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	application, err := app.NewCLIApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		_ = application.Shutdown(context.Background())
	}()

	return fn(ctx, application)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger.SetDefault(cfg.LogLevel)
	return cfg, nil
}

// loadQuietConfig logs to stderr so command output stays machine readable
func loadQuietConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	slog.SetDefault(logger.NewWithWriter(os.Stderr, logger.ParseLevel(cfg.LogLevel)).Logger)
	return cfg, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
