package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/version"
)

var configPath string

// rootCmd is the tracknet entry point every subcommand attaches to
// (mirrors the teacher's single CMD + godotenv.Load() pattern).
var rootCmd = &cobra.Command{
	Use:   "tracknet",
	Short: "maritime multi-sensor track fusion",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (defaults compiled in)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// serveMetrics mounts promHandler at /metrics plus a /healthz probe on
// cfg.Metrics.Addr, matching the teacher's engine/world.go mux wiring, and
// shuts the server down when ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, promHandler http.Handler, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
}

func banner(component string) {
	color.New(color.FgCyan, color.Bold).Printf("tracknet")
	fmt.Printf(" %s — %s (%s)\n", version.Version, component, "redis-backed fusion")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
