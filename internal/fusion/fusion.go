// Package fusion implements the Fusion Runner (spec §4.7): the single
// cooperative read-correlate-update-publish loop that drives the
// Correlation Engine and Track Manager and owns all outbound track/alert
// publishing.
package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/projectqai/tracknet/internal/bus"
	"github.com/projectqai/tracknet/internal/config"
	"github.com/projectqai/tracknet/internal/correlate"
	"github.com/projectqai/tracknet/internal/observation"
	"github.com/projectqai/tracknet/internal/status"
	"github.com/projectqai/tracknet/internal/track"
	"github.com/projectqai/tracknet/metrics"
)

// topics is the fixed, ordered list of input streams the runner reads
// (spec §4.4).
var topics = []string{
	observation.TopicAIS,
	observation.TopicRadar,
	observation.TopicSatellite,
	observation.TopicDrone,
}

// Runner drives the fusion loop.
type Runner struct {
	cfg         *config.Fusion
	corrCfg     *config.Correlation
	sigmaByKind map[observation.Kind]float64

	bus        *bus.Bus
	trackStore *track.Store
	manager    *track.Manager
	status     *status.Writer
	logger     *slog.Logger

	consumer string
}

// New builds a Fusion Runner.
func New(cfg *config.Config, b *bus.Bus, trackStore *track.Store, st *status.Writer, logger *slog.Logger) *Runner {
	sigmaByKind := map[observation.Kind]float64{
		observation.KindAIS:       cfg.AIS.SigmaSensor,
		observation.KindRadar:     cfg.Radar.SigmaSensor,
		observation.KindSatellite: cfg.Satellite.SigmaSensor,
		observation.KindDrone:     cfg.Drone.SigmaSensor,
	}

	return &Runner{
		cfg:         &cfg.Fusion,
		corrCfg:     &cfg.Correlation,
		sigmaByKind: sigmaByKind,
		bus:         b,
		trackStore:  trackStore,
		manager:     track.NewManager(&cfg.TrackManager),
		status:      st,
		logger:      logger,
		consumer:    "fusion-runner-" + uuid.NewString()[:8],
	}
}

// Run executes the fusion loop until ctx is cancelled (spec §4.7, §5
// cancellation contract).
func (r *Runner) Run(ctx context.Context) error {
	for _, topic := range topics {
		if err := r.bus.EnsureGroup(ctx, topic, r.cfg.ConsumerGroup); err != nil {
			return fmt.Errorf("ensure group: %w", err)
		}
	}

	ticker := time.NewTicker(config.TickInterval(r.cfg.RateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.status.Stop(context.Background()); err != nil {
				r.logger.Error("final status write failed", "error", err)
			}
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	now := time.Now().UTC()

	messages, err := r.bus.ReadAll(ctx, topics, r.cfg.ConsumerGroup, r.consumer, r.cfg.BatchCount, r.cfg.BlockMS)
	if err != nil {
		r.logger.Error("read_all failed", "error", err)
		return
	}

	batch, acks := r.parseBatch(ctx, messages)

	snapshots := r.trackSnapshots()
	result := correlate.BatchCorrelate(r.corrCfg, r.sigmaByKind, snapshots, batch, now)

	for i := 0; i < result.PinnedCount; i++ {
		metrics.Correlated(ctx, "pinned")
	}
	for i := 0; i < result.GatedCount; i++ {
		metrics.Correlated(ctx, "gated")
	}

	r.applyNew(ctx, result.New, now)
	r.applyUpdates(ctx, result.ByTrack, now)

	r.manager.CheckDark(now)
	_, droppedBefore, _ := r.manager.Stats()
	r.manager.AgeStep(now)
	_, droppedAfter, _ := r.manager.Stats()
	for i := droppedBefore; i < droppedAfter; i++ {
		metrics.TrackDropped(ctx)
	}

	r.ackAll(ctx, acks)

	if err := r.publish(ctx, now); err != nil {
		r.logger.Error("publish failed", "error", err)
	}

	r.updateStatus(ctx)
}

// parseBatch converts bus messages to typed observations in arrival order,
// dropping and counting malformed ones (spec §4.7 step 2, §7).
func (r *Runner) parseBatch(ctx context.Context, messages []bus.Message) ([]observation.Observation, map[string][]string) {
	batch := make([]observation.Observation, 0, len(messages))
	acks := make(map[string][]string)

	for _, msg := range messages {
		obs, err := parseByTopic(msg.Topic, msg.Fields)
		acks[msg.Topic] = append(acks[msg.Topic], msg.ID)

		if err != nil {
			r.logger.Warn("dropping malformed message", "topic", msg.Topic, "error", err)
			metrics.ObservationDropped(ctx, "schema")
			continue
		}
		batch = append(batch, *obs)
	}

	return batch, acks
}

func parseByTopic(topic string, fields map[string]string) (*observation.Observation, error) {
	switch topic {
	case observation.TopicAIS:
		return observation.ParseAIS(fields)
	case observation.TopicRadar:
		return observation.ParseRadar(fields)
	case observation.TopicSatellite:
		return observation.ParseSatellite(fields)
	case observation.TopicDrone:
		return observation.ParseDrone(fields)
	default:
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
}

func (r *Runner) trackSnapshots() []correlate.TrackSnapshot {
	alive := r.manager.Alive()
	snapshots := make([]correlate.TrackSnapshot, len(alive))
	for i, tr := range alive {
		snapshots[i] = correlate.TrackSnapshot{
			ID: tr.ID, MMSI: tr.MMSI, Lat: tr.Lat, Lon: tr.Lon,
			VN: tr.VN, VE: tr.VE, SigmaM: tr.SigmaM, UpdatedAt: tr.UpdatedAt,
		}
	}
	return snapshots
}

// applyNew creates a fresh track for every NEW-bucket observation (spec
// §4.7 step 4).
func (r *Runner) applyNew(ctx context.Context, news []observation.Observation, now time.Time) {
	for _, obs := range news {
		r.manager.Create(uuid.NewString(), obs, r.sigmaByKind, now)
		metrics.TrackCreated(ctx)
		metrics.Correlated(ctx, "new")
	}
}

// applyUpdates iterates each track's assigned observations in arrival
// order (spec §4.7 step 4).
func (r *Runner) applyUpdates(ctx context.Context, byTrack map[string][]correlate.Assigned, now time.Time) {
	for trackID, assignments := range byTrack {
		tr := r.manager.Get(trackID)
		if tr == nil {
			continue
		}
		for _, a := range assignments {
			if err := r.manager.Update(tr, a.Obs, a.Confidence, r.sigmaByKind, now); err != nil {
				r.logger.Warn("update refused", "track_id", trackID, "error", err)
			}
		}
	}
}

func (r *Runner) ackAll(ctx context.Context, acks map[string][]string) {
	for topic, ids := range acks {
		if err := r.bus.Ack(ctx, topic, r.cfg.ConsumerGroup, ids...); err != nil {
			r.logger.Error("ack failed", "topic", topic, "error", err)
		}
	}
}

// publish replaces the alive-track set, upserts track hashes, appends
// recent snapshots to fusion:tracks, and appends one-shot alerts to
// fusion:dark_ships (spec §4.7 step 7).
func (r *Runner) publish(ctx context.Context, now time.Time) error {
	alive := r.manager.Alive()

	if err := r.trackStore.PublishAlive(ctx, alive); err != nil {
		return err
	}
	metrics.SetTracksAlive(len(alive))

	for _, tr := range alive {
		if now.Sub(tr.UpdatedAt).Seconds() <= r.cfg.SnapshotWindowS {
			if _, err := r.bus.Write(ctx, observation.TopicTracks, track.SnapshotFields(tr), r.cfg.TracksStreamMax); err != nil {
				r.logger.Error("snapshot publish failed", "track_id", tr.ID, "error", err)
			}
		}

		if tr.FlaggedForReview {
			detectedBy := tr.ContributingSensors()
			if _, err := r.bus.Write(ctx, observation.TopicDarkShips, track.AlertFields(tr, detectedBy), r.cfg.AlertsStreamMax); err != nil {
				r.logger.Error("alert publish failed", "track_id", tr.ID, "error", err)
				continue
			}
			tr.FlaggedForReview = false // one-shot semantics (spec §4.7 step 7)
			metrics.DarkShipFlagged(ctx)
		}
	}

	return nil
}

func (r *Runner) updateStatus(ctx context.Context) {
	created, dropped, darkFlagged := r.manager.Stats()
	counters := map[string]int64{
		"tracks_created":     created,
		"tracks_dropped":     dropped,
		"dark_ships_flagged": darkFlagged,
		"tracks_alive":       int64(len(r.manager.Alive())),
	}
	if err := r.status.Update(ctx, true, counters); err != nil {
		r.logger.Error("status update failed", "error", err)
	}
}
