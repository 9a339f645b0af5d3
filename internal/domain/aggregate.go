package domain

// RollupToSensor groups variables by (zone, station, sensor) in first-seen
// order. Availability is the mean of normalized variable values.
func (th Thresholds) RollupToSensor(vars []VariableRecord) []SensorRecord {
	type acc struct {
		rec       SensorRecord
		norm, raw float64
		n         int
	}
	index := make(map[sensorKey]int)
	var groups []acc
	for _, v := range vars {
		k := sensorKey{station: v.Key, sensor: v.Sensor}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, acc{rec: SensorRecord{Key: v.Key, Sensor: v.Sensor}})
		}
		groups[i].norm += th.Normalize(v.Availability.Pct)
		groups[i].raw += v.Availability.RawPct
		groups[i].n++
	}

	out := make([]SensorRecord, 0, len(groups))
	for _, g := range groups {
		g.rec.Availability = th.rollupAvailability(g.norm/float64(g.n), g.raw/float64(g.n))
		out = append(out, g.rec)
	}
	return out
}

// RollupToStation groups sensors by (zone, station) in first-seen order.
// Availability is the mean of normalized sensor values. Incident and
// priority fields are left empty.
func (th Thresholds) RollupToStation(sensors []SensorRecord) []StationRecord {
	type acc struct {
		key       StationKey
		norm, raw float64
		n         int
	}
	index := make(map[StationKey]int)
	var groups []acc
	for _, s := range sensors {
		i, ok := index[s.Key]
		if !ok {
			i = len(groups)
			index[s.Key] = i
			groups = append(groups, acc{key: s.Key})
		}
		groups[i].norm += th.Normalize(s.Availability.Pct)
		groups[i].raw += s.Availability.RawPct
		groups[i].n++
	}

	out := make([]StationRecord, 0, len(groups))
	for _, g := range groups {
		out = append(out, StationRecord{
			Key:          g.key,
			Availability: th.rollupAvailability(g.norm/float64(g.n), g.raw/float64(g.n)),
			Source:       SourceCurrent,
		})
	}
	return out
}

// Hidden problem levels.
const (
	LevelSensor   = "Sensor"
	LevelVariable = "Variable"
)

// HiddenProblem is a component failing inside a parent that looks healthy.
type HiddenProblem struct {
	Key          StationKey `json:"key"`
	Sensor       string     `json:"sensor"`
	Frequency    string     `json:"frequency,omitempty"`
	Level        string     `json:"level"`
	Name         string     `json:"name"`
	ReferencePct float64    `json:"reference_pct"`
	ItemPct      float64    `json:"item_pct"`
	Gap          float64    `json:"gap"`
	Significant  bool       `json:"significant"`
}

// DetectHiddenProblems finds sensors below the critical threshold inside
// stations at or above it, then variables below it inside sensors at or
// above it. Variables of a sensor already reported are skipped.
func (th Thresholds) DetectHiddenProblems(vars []VariableRecord, sensors []SensorRecord, stations []StationRecord) []HiddenProblem {
	stationPct := make(map[StationKey]float64, len(stations))
	for _, st := range stations {
		stationPct[st.Key] = th.Normalize(st.Availability.Pct)
	}

	var out []HiddenProblem
	flagged := make(map[sensorKey]bool)
	sensorPct := make(map[sensorKey]float64, len(sensors))
	for _, s := range sensors {
		k := sensorKey{station: s.Key, sensor: s.Sensor}
		pct := th.Normalize(s.Availability.Pct)
		sensorPct[k] = pct

		ref, ok := stationPct[s.Key]
		if !ok || ref < th.CriticalPct || pct >= th.CriticalPct {
			continue
		}
		flagged[k] = true
		out = append(out, th.hiddenProblem(s.Key, s.Sensor, "", LevelSensor, s.Sensor, ref, pct))
	}

	for _, v := range vars {
		k := sensorKey{station: v.Key, sensor: v.Sensor}
		if flagged[k] {
			continue
		}
		ref, ok := sensorPct[k]
		pct := th.Normalize(v.Availability.Pct)
		if !ok || ref < th.CriticalPct || pct >= th.CriticalPct {
			continue
		}
		out = append(out, th.hiddenProblem(v.Key, v.Sensor, v.Frequency, LevelVariable, v.Variable, ref, pct))
	}
	return out
}

func (th Thresholds) hiddenProblem(key StationKey, sensor, freq, level, name string, ref, pct float64) HiddenProblem {
	gap := round2(ref - pct)
	return HiddenProblem{
		Key:          key,
		Sensor:       sensor,
		Frequency:    freq,
		Level:        level,
		Name:         name,
		ReferencePct: round2(ref),
		ItemPct:      round2(pct),
		Gap:          gap,
		Significant:  gap >= th.SignificantGap,
	}
}

// ConfigAnomaly is a sensor or variable whose raw availability exceeds the
// anomaly threshold, meaning its expected-count baseline is wrong.
type ConfigAnomaly struct {
	Key       StationKey `json:"key"`
	Sensor    string     `json:"sensor"`
	Frequency string     `json:"frequency,omitempty"`
	Level     string     `json:"level"`
	Name      string     `json:"name"`
	ItemPct   float64    `json:"item_pct"`
	Excess    float64    `json:"excess"`
}

// DetectConfigurationAnomalies flags sensors and variables with raw
// availability above the anomaly threshold. Sensors come first.
func (th Thresholds) DetectConfigurationAnomalies(vars []VariableRecord, sensors []SensorRecord) []ConfigAnomaly {
	var out []ConfigAnomaly
	for _, s := range sensors {
		if s.Availability.RawPct > th.AnomalyPct {
			out = append(out, ConfigAnomaly{
				Key:     s.Key,
				Sensor:  s.Sensor,
				Level:   LevelSensor,
				Name:    s.Sensor,
				ItemPct: s.Availability.RawPct,
				Excess:  round2(s.Availability.RawPct - 100),
			})
		}
	}
	for _, v := range vars {
		if v.Availability.RawPct > th.AnomalyPct {
			out = append(out, ConfigAnomaly{
				Key:       v.Key,
				Sensor:    v.Sensor,
				Frequency: v.Frequency,
				Level:     LevelVariable,
				Name:      v.Variable,
				ItemPct:   v.Availability.RawPct,
				Excess:    round2(v.Availability.RawPct - 100),
			})
		}
	}
	return out
}
