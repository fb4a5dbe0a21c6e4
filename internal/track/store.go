package track

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/projectqai/tracknet/internal/observation"
)

func trackKey(id string) string { return "track:" + id }

const keyAlive = "tracks:alive"

// Store persists UnifiedTrack state to Redis: track:{id} hashes and the
// tracks:alive set (spec §6 Key-value layout).
type Store struct {
	rdb *redis.Client
}

// NewStore wraps an existing Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// PublishAlive replaces the alive-track id set and upserts every alive
// track's hash (spec §4.7 step 7).
func (s *Store) PublishAlive(ctx context.Context, tracks []*UnifiedTrack) error {
	pipe := s.rdb.TxPipeline()

	pipe.Del(ctx, keyAlive)
	ids := make([]interface{}, 0, len(tracks))
	for _, tr := range tracks {
		ids = append(ids, tr.ID)
		pipe.HSet(ctx, trackKey(tr.ID), trackFields(tr))
	}
	if len(ids) > 0 {
		pipe.SAdd(ctx, keyAlive, ids...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish alive tracks: %w", err)
	}
	return nil
}

func trackFields(tr *UnifiedTrack) map[string]interface{} {
	fields := map[string]interface{}{
		"lat":                tr.Lat,
		"lon":                tr.Lon,
		"speed_kn":           tr.SpeedKn,
		"course":             tr.Course,
		"heading":            tr.Heading,
		"vn":                 tr.VN,
		"ve":                 tr.VE,
		"sigma_m":            tr.SigmaM,
		"identity_source":    string(tr.IdentitySource),
		"name":               tr.Name,
		"class":              tr.Class,
		"length_m":           tr.LengthM,
		"is_dark":            tr.IsDark,
		"dark_confidence":    tr.DarkConfidence,
		"flagged_for_review": tr.FlaggedForReview,
		"alert_reason":       tr.AlertReason,
		"status":             string(tr.Status),
		"created_at":         tr.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":         tr.UpdatedAt.UTC().Format(time.RFC3339),
		"update_count":       tr.UpdateCount,
		"correlation_confidence": tr.CorrelationConfidence,
		"quality":            tr.Quality,
		"contributing_sensors": contributingSensorsCSV(tr),
	}
	if tr.MMSI != nil {
		fields["mmsi"] = *tr.MMSI
	}
	if tr.AISLastSeen != nil {
		fields["ais_last_seen"] = tr.AISLastSeen.UTC().Format(time.RFC3339)
	}
	if tr.AISGapSeconds != nil {
		fields["ais_gap_seconds"] = strconv.FormatFloat(*tr.AISGapSeconds, 'f', -1, 64)
	}
	return fields
}

func contributingSensorsCSV(tr *UnifiedTrack) string {
	kinds := tr.ContributingSensors()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ",")
}

// SnapshotFields renders the fusion:tracks stream entry for one track
// (spec §6: "full snapshot of UnifiedTrack (string-serialized)").
func SnapshotFields(tr *UnifiedTrack) map[string]interface{} {
	fields := trackFields(tr)
	fields["track_id"] = tr.ID
	return fields
}

// AlertFields renders one fusion:dark_ships entry (spec §6).
func AlertFields(tr *UnifiedTrack, detectedBy []observation.Kind) map[string]interface{} {
	names := make([]string, len(detectedBy))
	for i, k := range detectedBy {
		names[i] = string(k)
	}
	return map[string]interface{}{
		"track_id":     tr.ID,
		"latitude":     tr.Lat,
		"longitude":    tr.Lon,
		"confidence":   tr.DarkConfidence,
		"alert_reason": tr.AlertReason,
		"detected_by":  strings.Join(names, ","),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
}
