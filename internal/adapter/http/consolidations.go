package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/station-availability-etl/internal/adapter/sheet"
	"github.com/couchcryptid/station-availability-etl/internal/domain"
	"github.com/couchcryptid/station-availability-etl/internal/pipeline"
)

// consolidationRequest is the body of POST /v1/consolidations.
type consolidationRequest struct {
	ReferenceDate string               `json:"reference_date"`
	Variables     []domain.RawVariable `json:"variables"`
	Previous      []previousStation    `json:"previous,omitempty"`
}

// previousStation is one row of the previous period as a client sends it:
// the same fields the station sheet carries.
type previousStation struct {
	Zone            string  `json:"zone"`
	Station         string  `json:"station"`
	AvailabilityPct float64 `json:"availability_pct"`
	IncidentState   string  `json:"incident_state"`
	IncidentStart   string  `json:"incident_start,omitempty"`
	Comment         string  `json:"comment,omitempty"`
}

func (p previousStation) record(th domain.Thresholds) domain.StationRecord {
	rec := domain.StationRecord{
		Key:          domain.NewStationKey(p.Zone, p.Station),
		Availability: th.NewAvailability(p.AvailabilityPct),
		Incident: domain.Incident{
			State:   domain.ParseIncidentState(p.IncidentState),
			Comment: p.Comment,
		},
	}
	if d, ok := domain.ParseDate(p.IncidentStart); ok {
		rec.Incident.StartDate = d
	}
	return rec
}

func (r consolidationRequest) validate() error {
	if len(r.Variables) == 0 {
		return errors.New("variables must not be empty")
	}
	for i, v := range r.Variables {
		if v.Zone == "" || v.Station == "" {
			return fmt.Errorf("variables[%d]: zone and station are required", i)
		}
	}
	for i, p := range r.Previous {
		if p.Zone == "" || p.Station == "" {
			return fmt.Errorf("previous[%d]: zone and station are required", i)
		}
	}
	return nil
}

func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	var req consolidationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var ref time.Time
	if req.ReferenceDate != "" {
		d, ok := domain.ParseDate(req.ReferenceDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid reference_date: "+req.ReferenceDate)
			return
		}
		ref = d
	}

	prev := s.carryover
	if req.Previous != nil {
		th := s.svc.Thresholds()
		records := make([]domain.StationRecord, len(req.Previous))
		for i, p := range req.Previous {
			records[i] = p.record(th)
		}
		prev = pipeline.StaticCarryover(records)
	}

	report, err := s.svc.Run(r.Context(), pipeline.StaticVariables(req.Variables), prev, ref)
	switch {
	case errors.Is(err, pipeline.ErrNoVariables):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("consolidation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, report)
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.svc.LatestReport()
	if !ok {
		writeError(w, http.StatusNotFound, "no report has been consolidated yet")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleLatestWorkbook(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.svc.LatestReport()
	if !ok {
		writeError(w, http.StatusNotFound, "no report has been consolidated yet")
		return
	}

	var buf bytes.Buffer
	if err := sheet.WriteReport(&buf, report); err != nil {
		s.logger.Error("render workbook failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
