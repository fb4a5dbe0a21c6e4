package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/sensors"
	"github.com/projectqai/tracknet/internal/status"
	"github.com/projectqai/tracknet/logging"
	"github.com/projectqai/tracknet/metrics"
)

type sensorRunner interface {
	Run(ctx context.Context) error
}

var sensorCmd = &cobra.Command{
	Use:   "sensor [ais|radar|satellite|drone]",
	Short: "run one sensor ingester",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		component := "sensor-" + kind
		logger := logging.Init(component)
		banner(component)

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

		store := fleet.NewStore(rdb)
		b := bus.New(rdb)
		st := status.NewWriter(rdb, component)

		var runner sensorRunner
		switch kind {
		case "ais":
			runner = sensors.NewAISIngester(&cfg.AIS, store, b, st, logger)
		case "radar":
			r, err := sensors.NewRadarIngester(&cfg.Radar, store, b, st, logger)
			if err != nil {
				return fmt.Errorf("build radar ingester: %w", err)
			}
			runner = r
		case "satellite":
			runner = sensors.NewSatelliteIngester(&cfg.Satellite, store, b, st, logger)
		case "drone":
			runner = sensors.NewDroneIngester(&cfg.Drone, store, b, st, logger)
		default:
			return fmt.Errorf("unknown sensor kind %q (want ais, radar, satellite, or drone)", kind)
		}

		return runner.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(sensorCmd)
}
