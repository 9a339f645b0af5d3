package domain

import "time"

// Reconcile computes the next incident record of a station from its previous
// record (nil when there is none), its current normalized availability and
// the reference date of the period being consolidated.
//
// The transition table runs first; the dormancy override is applied on top
// and wins over every table outcome. Rules that depend on the start date
// never promote or demote when the date is missing.
func (th Thresholds) Reconcile(prev *Incident, pct float64, ref time.Time) Incident {
	ref = DateOf(ref)
	critical := th.ClassifyBucket(pct).Critical()

	var p Incident
	if prev != nil {
		p = *prev
	}
	days := DaysSince(p.StartDate, ref)
	next := Incident{Comment: p.Comment, StartDate: p.StartDate}

	switch p.State {
	case IncidentNew:
		switch {
		case critical && (days == nil || *days > th.ToleranceDays):
			next.State = IncidentRecurring
		case critical:
			next.State = IncidentNew
		case days == nil || *days <= th.ToleranceDays:
			next.State = IncidentResolved
		default:
			next = Incident{State: IncidentNone, Comment: p.Comment}
		}
	case IncidentRecurring:
		if critical {
			next.State = IncidentRecurring
		} else {
			next.State = IncidentResolved
		}
	case IncidentResolved:
		switch {
		case critical:
			next = Incident{State: IncidentNew, StartDate: ref}
		case days != nil && *days <= th.ToleranceDays:
			next.State = IncidentResolved
		default:
			next = Incident{State: IncidentNone, Comment: p.Comment}
		}
	case IncidentDormant:
		if critical {
			next.State = IncidentRecurring
		} else {
			next.State = IncidentResolved
		}
	default:
		if critical {
			next = Incident{State: IncidentNew, StartDate: ref}
		} else {
			next = Incident{State: IncidentNone, Comment: p.Comment}
		}
	}

	if pct <= th.DormancyMaxPct {
		switch d := DaysSince(next.StartDate, ref); {
		case d != nil && *d >= th.DormancyMinDays:
			next.State = IncidentDormant
		case d == nil && p.State == IncidentDormant:
			next.State = IncidentDormant
		}
	}

	if next.State == IncidentDormant {
		d := DaysSince(next.StartDate, ref)
		next.ClosureCandidate = d != nil && *d >= th.ClosureMinDays
	}
	next.PendingStartDate = p.PendingStartDate && next.State.Active() && !next.HasStartDate()
	return next
}

// ReconcileStation merges the previous and current record of one station.
// Either side may be nil:
//
//   - previous only: the station was not reported. Its incident is carried
//     unchanged and availability is 0 (no new information, never "resolved").
//   - current only: the station is new to the roster. A critical station
//     opens a new incident whose start date awaits manual annotation.
//   - both: the incident is reconciled against the current availability.
//
// Priority fields are left for Prioritize.
func (th Thresholds) ReconcileStation(prev, curr *StationRecord, ref time.Time) StationRecord {
	switch {
	case prev != nil && curr == nil:
		prevPct := prev.Availability.Pct
		return StationRecord{
			Key:          prev.Key,
			Availability: th.NewAvailability(0),
			Incident:     prev.Incident,
			PreviousPct:  &prevPct,
			Source:       SourcePrevious,
		}
	case prev == nil && curr != nil:
		rec := StationRecord{
			Key:          curr.Key,
			Availability: curr.Availability,
			Source:       SourceCurrent,
		}
		if curr.Availability.Bucket.Critical() {
			rec.Incident = Incident{State: IncidentNew, PendingStartDate: true}
		}
		return rec
	case prev != nil && curr != nil:
		prevPct := prev.Availability.Pct
		return StationRecord{
			Key:          curr.Key,
			Availability: curr.Availability,
			Incident:     th.Reconcile(&prev.Incident, curr.Availability.Pct, ref),
			PreviousPct:  &prevPct,
			Source:       SourceBoth,
		}
	default:
		return StationRecord{}
	}
}
