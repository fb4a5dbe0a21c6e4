package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/projectqai/tracknet/internal/status"
)

var statusComponents = []string{
	"world", "sensor-ais", "sensor-radar", "sensor-satellite", "sensor-drone", "fusion",
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "print each component's status hash and the live track count",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rdb := newRedisClient(cfg)
		defer rdb.Close()

		ctx := cmd.Context()

		snapshots, err := status.ReadAll(ctx, rdb, statusComponents)
		if err != nil {
			return err
		}
		alive, err := status.AliveTrackCount(ctx, rdb)
		if err != nil {
			return err
		}

		tbl := table.New("Component", "Running", "Last Update")
		for _, s := range snapshots {
			tbl.AddRow(s.Component, s.Running, s.LastUpdate)
		}
		tbl.Print()

		fmt.Printf("\ntracks alive: %d\n", alive)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
