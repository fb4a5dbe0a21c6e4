// Package status writes and reads the per-component status hash every
// tracknet component maintains (spec §6: "one {component}:status hash per
// component"; §5: "writing a final status hash with running=false").
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func key(component string) string { return component + ":status" }

// Writer updates one component's status hash.
type Writer struct {
	rdb       *redis.Client
	component string
}

// NewWriter returns a status writer scoped to component.
func NewWriter(rdb *redis.Client, component string) *Writer {
	return &Writer{rdb: rdb, component: component}
}

// Update merges counters into the status hash along with running and the
// current time as last_update.
func (w *Writer) Update(ctx context.Context, running bool, counters map[string]int64) error {
	fields := map[string]interface{}{
		"running":     running,
		"last_update": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range counters {
		fields[k] = v
	}
	if err := w.rdb.HSet(ctx, key(w.component), fields).Err(); err != nil {
		return fmt.Errorf("update status %s: %w", w.component, err)
	}
	return nil
}

// Stop writes running=false as the final status update on clean shutdown
// (spec §5 cancellation contract).
func (w *Writer) Stop(ctx context.Context) error {
	return w.Update(ctx, false, nil)
}

// Snapshot is a rendered view of one component's status hash.
type Snapshot struct {
	Component  string
	Running    bool
	LastUpdate string
	Counters   map[string]string
}

// ReadAll reads the status hash for every named component, skipping ones
// that don't exist yet.
func ReadAll(ctx context.Context, rdb *redis.Client, components []string) ([]Snapshot, error) {
	snapshots := make([]Snapshot, 0, len(components))
	for _, c := range components {
		fields, err := rdb.HGetAll(ctx, key(c)).Result()
		if err != nil {
			return nil, fmt.Errorf("read status %s: %w", c, err)
		}
		if len(fields) == 0 {
			continue
		}
		snap := Snapshot{Component: c, Counters: map[string]string{}}
		for k, v := range fields {
			switch k {
			case "running":
				snap.Running = v == "1" || v == "true"
			case "last_update":
				snap.LastUpdate = v
			default:
				snap.Counters[k] = v
			}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// AliveTrackCount reads the size of the tracks:alive set.
func AliveTrackCount(ctx context.Context, rdb *redis.Client) (int64, error) {
	n, err := rdb.SCard(ctx, "tracks:alive").Result()
	if err != nil {
		return 0, fmt.Errorf("tracks:alive: %w", err)
	}
	return n, nil
}
