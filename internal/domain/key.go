package domain

import (
	"strconv"
	"strings"
)

// StationKey identifies one station within one reporting zone. It is stable
// across periods and is the join key for reconciliation.
type StationKey struct {
	Zone    string `json:"zone"`
	Station string `json:"station"`
}

// NewStationKey trims both parts and normalizes the zone id.
func NewStationKey(zone, station string) StationKey {
	return StationKey{Zone: NormalizeZone(zone), Station: strings.TrimSpace(station)}
}

func (k StationKey) String() string {
	return k.Zone + "|" + k.Station
}

// Less orders keys by zone (numerically when both zones are numbers) and then
// by station name.
func (k StationKey) Less(o StationKey) bool {
	if k.Zone != o.Zone {
		return zoneLess(k.Zone, o.Zone)
	}
	return k.Station < o.Station
}

// NormalizeZone trims a zone id and collapses spreadsheet float renderings of
// integer ids ("3.0" → "3").
func NormalizeZone(zone string) string {
	zone = strings.TrimSpace(zone)
	if f, err := strconv.ParseFloat(zone, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return zone
}

func zoneLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// sensorKey identifies a sensor within a station.
type sensorKey struct {
	station StationKey
	sensor  string
}
