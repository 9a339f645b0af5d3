// Package rediscache keeps the incident record of every station in Redis
// hashes, one per station and period, for fast carry-over between periods.
package rediscache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// Station hashes live under incident:<period>:<zone>:<station>; the sorted
// set scores each stored period by its reference date.
const (
	keyPrefix  = "incident:"
	periodsKey = "incident-periods"
)

// IncidentStore implements pipeline.CarryoverSource and pipeline.Loader.
type IncidentStore struct {
	client *redis.Client
	logger *slog.Logger
}

// New parses redisURL, connects and verifies the connection.
func New(ctx context.Context, redisURL string, logger *slog.Logger) (*IncidentStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck,gosec // ping error takes precedence
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, logger *slog.Logger) *IncidentStore {
	return &IncidentStore{client: client, logger: logger}
}

func (s *IncidentStore) Close() error {
	return s.client.Close()
}

// CheckReadiness pings Redis.
func (s *IncidentStore) CheckReadiness(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load replaces the stored period of report with its stations.
func (s *IncidentStore) Load(ctx context.Context, report domain.Report) error {
	if len(report.Stations) == 0 {
		return nil
	}
	period := periodID(report.ReferenceDate)
	stale, err := s.periodKeys(ctx, period)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(stale) > 0 {
			pipe.Del(ctx, stale...)
		}
		for _, st := range report.Stations {
			pipe.HSet(ctx, stationKey(period, st.Key), encode(report, st))
		}
		pipe.ZAdd(ctx, periodsKey, redis.Z{Score: periodScore(report.ReferenceDate), Member: period})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store incidents: %w", err)
	}
	s.logger.Info("incidents cached", "stations", len(report.Stations), "period", period)
	return nil
}

// Previous returns the stations of the newest period stored before ref.
func (s *IncidentStore) Previous(ctx context.Context, ref time.Time) ([]domain.StationRecord, error) {
	periods, err := s.client.ZRevRangeByScore(ctx, periodsKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatFloat(periodScore(ref), 'f', -1, 64),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("find previous period: %w", err)
	}
	if len(periods) == 0 {
		return nil, nil
	}

	keys, err := s.periodKeys(ctx, periods[0])
	if err != nil {
		return nil, err
	}
	out := make([]domain.StationRecord, 0, len(keys))
	for _, key := range keys {
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		rec := decode(fields)
		if rec.Key.Station == "" {
			if _, k, ok := splitKey(key); ok {
				rec.Key = domain.NewStationKey(k.Zone, k.Station)
			}
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b domain.StationRecord) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return out, nil
}

// periodKeys lists the station hashes of one period.
func (s *IncidentStore) periodKeys(ctx context.Context, period string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+period+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan incidents: %w", err)
	}
	return keys, nil
}

func periodID(ref time.Time) string {
	return domain.DateOf(ref).Format(time.DateOnly)
}

func periodScore(ref time.Time) float64 {
	return float64(domain.DateOf(ref).Unix())
}

func stationKey(period string, k domain.StationKey) string {
	return keyPrefix + period + ":" + k.Zone + ":" + k.Station
}

func encode(report domain.Report, st domain.StationRecord) map[string]any {
	return map[string]any{
		"zone":               st.Key.Zone,
		"station":            st.Key.Station,
		"reference_date":     domain.FormatDate(report.ReferenceDate),
		"availability_pct":   strconv.FormatFloat(st.Availability.Pct, 'f', -1, 64),
		"bucket":             st.Availability.Bucket.String(),
		"incident_state":     st.Incident.State.String(),
		"incident_start":     domain.FormatDate(st.Incident.StartDate),
		"comment":            st.Incident.Comment,
		"closure_candidate":  strconv.FormatBool(st.Incident.ClosureCandidate),
		"pending_start_date": strconv.FormatBool(st.Incident.PendingStartDate),
		"priority":           string(st.Priority),
		"priority_reason":    st.PriorityReason,
		"source":             st.Source.String(),
	}
}

func decode(f map[string]string) domain.StationRecord {
	pct, _ := strconv.ParseFloat(f["availability_pct"], 64)
	rec := domain.StationRecord{
		Key:          domain.NewStationKey(f["zone"], f["station"]),
		Availability: domain.Availability{Pct: pct, RawPct: pct},
		Incident: domain.Incident{
			State:   domain.ParseIncidentState(f["incident_state"]),
			Comment: f["comment"],
		},
		Priority:       domain.ParsePriority(f["priority"]),
		PriorityReason: f["priority_reason"],
	}
	if start, ok := domain.ParseDate(f["incident_start"]); ok {
		rec.Incident.StartDate = start
	}
	rec.Incident.ClosureCandidate, _ = strconv.ParseBool(f["closure_candidate"])
	rec.Incident.PendingStartDate, _ = strconv.ParseBool(f["pending_start_date"])
	_ = rec.Availability.Bucket.UnmarshalText([]byte(f["bucket"]))
	_ = rec.Source.UnmarshalText([]byte(f["source"]))
	return rec
}

// splitKey recovers the period and station key from a hash key.
func splitKey(key string) (string, domain.StationKey, bool) {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return "", domain.StationKey{}, false
	}
	period, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return "", domain.StationKey{}, false
	}
	zone, station, ok := strings.Cut(rest, ":")
	if !ok {
		return "", domain.StationKey{}, false
	}
	return period, domain.StationKey{Zone: zone, Station: station}, true
}
