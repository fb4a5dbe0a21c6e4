package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/fleet"
	"github.com/projectqai/tracknet/internal/fusion"
	"github.com/projectqai/tracknet/internal/geomodel"
	"github.com/projectqai/tracknet/internal/sensors"
	"github.com/projectqai/tracknet/internal/status"
	"github.com/projectqai/tracknet/internal/track"
	"github.com/projectqai/tracknet/internal/world"
	"github.com/projectqai/tracknet/logging"
	"github.com/projectqai/tracknet/metrics"
)

// runCmd starts every component in one process for local development. The
// real deployment model is one process per component (spec §5); this is a
// convenience entry point only.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run every component in one process (dev mode only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := logging.Init("run")
		banner("all-in-one dev mode")

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
		mask := geomodel.NewOceanMask(cfg.World.OceanMinLat, cfg.World.OceanMaxLat, cfg.World.OceanMinLon, cfg.World.OceanMaxLon, nil)

		sim := world.New(&cfg.World, store, mask, world.DefaultLanes(), logger)

		if err := sim.Init(ctx); err != nil {
			return err
		}

		aisIngester := sensors.NewAISIngester(&cfg.AIS, store, b, status.NewWriter(rdb, "sensor-ais"), logger)
		radarIngester, err := sensors.NewRadarIngester(&cfg.Radar, store, b, status.NewWriter(rdb, "sensor-radar"), logger)
		if err != nil {
			return err
		}
		satIngester := sensors.NewSatelliteIngester(&cfg.Satellite, store, b, status.NewWriter(rdb, "sensor-satellite"), logger)
		droneIngester := sensors.NewDroneIngester(&cfg.Drone, store, b, status.NewWriter(rdb, "sensor-drone"), logger)

		fusionRunner := fusion.New(cfg, b, track.NewStore(rdb), status.NewWriter(rdb, "fusion"), logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return sim.Run(gctx) })
		g.Go(func() error { return aisIngester.Run(gctx) })
		g.Go(func() error { return radarIngester.Run(gctx) })
		g.Go(func() error { return satIngester.Run(gctx) })
		g.Go(func() error { return droneIngester.Run(gctx) })
		g.Go(func() error { return fusionRunner.Run(gctx) })

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
