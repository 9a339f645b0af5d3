// Package domain models meteorological-station data availability and the
// incident lifecycle of each station across reporting periods.
//
// # Data Source
//
// Availability reports originate from weekly PDF exports of the monitoring
// platform. An upstream extraction step scrapes those PDFs into flat rows, one
// per (zone, station, sensor, variable, frequency), carrying three raw counts:
// correct data (flag C), flagged data (flag M), and expected data. Everything
// in this package starts from those rows.
//
// # Hierarchy
//
//	Zone (DZ)  →  Station  →  Sensor (equipment class)  →  Variable @ Frequency
//
// Incident tracking exists only at station granularity. Sensors and variables
// carry availability but no incident state.
//
// # Availability
//
// Variable availability is correct / expected × 100, rounded to two decimals,
// and 0 when nothing was expected. Values above 100 are kept as-is: they mean
// the expected-count baseline is misconfigured, not that extra good data
// arrived. Rollups to sensor and station level average the normalized
// (≤ 100) values, so a misconfigured variable never props up its station.
//
// Buckets, ordered from most to least severe:
//
//	not received      pct is null or 0
//	severe shortage   0 < pct < 30
//	shortage          30 ≤ pct < 80
//	normal            80 ≤ pct ≤ 100
//	anomalous excess  pct > 100
//
// # Incident Lifecycle
//
//	none ──critical──▶ new ──critical, > 5 days──▶ recurring
//	                    │                              │
//	                   ok, ≤ 5 days                    ok
//	                    ▼                              ▼
//	                 resolved ◀────────────────────────┘
//
// Any state whose availability stays at or below 0.5% for 90 days or more since
// the incident started becomes dormant. Dormant stations past 730 days are
// flagged as closure candidates. See [Thresholds.Reconcile].
//
// # Priority
//
// Priority tiers (ALTA, MEDIA, BAJA, N/A) are derived from the reconciled
// state, the days elapsed since the incident started, and the normalized
// availability. Dormancy short-circuits every other rule so that a station
// silent for a year is never reported as a fresh high-priority failure. See
// [Thresholds.ClassifyPriority].
//
// # Sheet Labels
//
// Downstream consumers read the Spanish labels written to the report workbook
// ("Nueva", "Recurrente", "Solucionado", "Paralizada", "Normal (≥ 80%)", ...).
// Labels are parsed once at the input boundary by [ParseIncidentState] and
// [ParseBucketLabel]; nothing downstream re-parses strings.
package domain
