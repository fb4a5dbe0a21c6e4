package main

import (
	"github.com/spf13/cobra"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/fusion"
	"github.com/projectqai/tracknet/internal/status"
	"github.com/projectqai/tracknet/internal/track"
	"github.com/projectqai/tracknet/logging"
	"github.com/projectqai/tracknet/metrics"
)

var fusionCmd = &cobra.Command{
	Use:   "fusion",
	Short: "run the Fusion Runner",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := logging.Init("fusion")
		banner("fusion runner")

		promHandler, err := metrics.InitPrometheus()
		if err != nil {
			return err
		}
		if err := metrics.Init(); err != nil {
			return err
		}

		ctx := cmd.Context()
		serveMetrics(ctx, cfg.Metrics.Addr, promHandler, logger)

		rdb := newRedisClient(cfg)
		defer rdb.Close()

		b := bus.New(rdb)
		trackStore := track.NewStore(rdb)
		st := status.NewWriter(rdb, "fusion")

		runner := fusion.New(cfg, b, trackStore, st, logger)
		return runner.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(fusionCmd)
}
