package domain

import (
	"slices"
)

// NetworkSummary holds headline indicators over every station of a period.
type NetworkSummary struct {
	Stations        int                   `json:"stations"`
	MeanPct         float64               `json:"mean_pct"`
	Critical        int                   `json:"critical"`
	NoData          int                   `json:"no_data"`
	HealthyPct      float64               `json:"healthy_pct"`
	AffectedZones   int                   `json:"affected_zones"`
	Anomalies       int                   `json:"anomalies"`
	PendingDates    int                   `json:"pending_start_dates"`
	ByPriority      map[Priority]int      `json:"by_priority"`
	ByIncidentState map[IncidentState]int `json:"by_incident_state"`
}

// Summarize computes network indicators. Means use normalized values.
func (th Thresholds) Summarize(stations []StationRecord, anomalies []ConfigAnomaly) NetworkSummary {
	s := NetworkSummary{
		Stations:        len(stations),
		Anomalies:       len(anomalies),
		ByPriority:      make(map[Priority]int, len(Priorities)),
		ByIncidentState: make(map[IncidentState]int),
	}
	if len(stations) == 0 {
		return s
	}

	zones := make(map[string]struct{})
	var sum float64
	healthy := 0
	for _, st := range stations {
		pct := th.Normalize(st.Availability.Pct)
		sum += pct
		if pct >= th.CriticalPct {
			healthy++
		} else {
			s.Critical++
			zones[st.Key.Zone] = struct{}{}
		}
		if st.Availability.Bucket == BucketNotReceived {
			s.NoData++
		}
		if st.Incident.PendingStartDate {
			s.PendingDates++
		}
		s.ByPriority[st.Priority]++
		s.ByIncidentState[st.Incident.State]++
	}
	s.MeanPct = round2(sum / float64(len(stations)))
	s.HealthyPct = round2(float64(healthy) / float64(len(stations)) * 100)
	s.AffectedZones = len(zones)
	return s
}

// ZoneStats holds indicators for one zone.
type ZoneStats struct {
	Zone            string                `json:"zone"`
	Stations        int                   `json:"stations"`
	MeanPct         float64               `json:"mean_pct"`
	HealthyPct      float64               `json:"healthy_pct"`
	NoData          int                   `json:"no_data"`
	ByIncidentState map[IncidentState]int `json:"by_incident_state"`
}

// ZoneSummaries returns per-zone indicators, worst mean availability first.
func (th Thresholds) ZoneSummaries(stations []StationRecord) []ZoneStats {
	type acc struct {
		stats   ZoneStats
		sum     float64
		healthy int
	}
	index := make(map[string]int)
	var groups []acc
	for _, st := range stations {
		i, ok := index[st.Key.Zone]
		if !ok {
			i = len(groups)
			index[st.Key.Zone] = i
			groups = append(groups, acc{stats: ZoneStats{Zone: st.Key.Zone, ByIncidentState: make(map[IncidentState]int)}})
		}
		g := &groups[i]
		pct := th.Normalize(st.Availability.Pct)
		g.sum += pct
		g.stats.Stations++
		if pct >= th.CriticalPct {
			g.healthy++
		}
		if st.Availability.Bucket == BucketNotReceived {
			g.stats.NoData++
		}
		g.stats.ByIncidentState[st.Incident.State]++
	}

	out := make([]ZoneStats, 0, len(groups))
	for _, g := range groups {
		g.stats.MeanPct = round2(g.sum / float64(g.stats.Stations))
		g.stats.HealthyPct = round2(float64(g.healthy) / float64(g.stats.Stations) * 100)
		out = append(out, g.stats)
	}
	slices.SortStableFunc(out, func(a, b ZoneStats) int {
		switch {
		case a.MeanPct < b.MeanPct:
			return -1
		case a.MeanPct > b.MeanPct:
			return 1
		}
		return 0
	})
	return out
}

// TopCritical returns up to n stations with the lowest availability.
// Ties keep input order.
func TopCritical(stations []StationRecord, n int) []StationRecord {
	out := slices.Clone(stations)
	slices.SortStableFunc(out, func(a, b StationRecord) int {
		switch {
		case a.Availability.Pct < b.Availability.Pct:
			return -1
		case a.Availability.Pct > b.Availability.Pct:
			return 1
		}
		return 0
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
