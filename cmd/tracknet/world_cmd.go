package main

import (
	"github.com/spf13/cobra"

	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/geomodel"
	"github.com/projectqai/tracknet/internal/world"
	"github.com/projectqai/tracknet/logging"
	"github.com/projectqai/tracknet/metrics"
)

var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "run the World Simulator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := logging.Init("world")
		banner("world simulator")

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
		mask := geomodel.NewOceanMask(cfg.World.OceanMinLat, cfg.World.OceanMaxLat, cfg.World.OceanMinLon, cfg.World.OceanMaxLon, nil)

		sim := world.New(&cfg.World, store, mask, world.DefaultLanes(), logger)
		if err := sim.Init(ctx); err != nil {
			return err
		}
		logger.Info("fleet generated", "num_vessels", cfg.World.NumVessels)

		return sim.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(worldCmd)
}
