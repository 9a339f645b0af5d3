package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/station-availability-etl/internal/config"
	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// StationEvent is the message published for every station of a report.
type StationEvent struct {
	ReferenceDate    string          `json:"reference_date"`
	Zone             string          `json:"zone"`
	Station          string          `json:"station"`
	AvailabilityPct  float64         `json:"availability_pct"`
	Bucket           domain.Bucket   `json:"bucket"`
	IncidentState    string          `json:"incident_state"`
	IncidentStart    string          `json:"incident_start,omitempty"`
	DaysElapsed      *int            `json:"days_elapsed,omitempty"`
	Priority         domain.Priority `json:"priority"`
	PriorityReason   string          `json:"priority_reason"`
	ClosureCandidate bool            `json:"closure_candidate"`
	PendingStartDate bool            `json:"pending_start_date"`
	Comment          string          `json:"comment,omitempty"`
}

// Publisher produces station priority messages to a Kafka topic.
// It implements pipeline.Loader.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Load publishes one message per station of report in a single
// WriteMessages call. Messages are keyed by station so a station's history
// stays on one partition.
func (p *Publisher) Load(ctx context.Context, report domain.Report) error {
	if len(report.Stations) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(report.Stations))
	for i := range report.Stations {
		msg, err := serializeToMessage(report.ReferenceDate.Format("2006-01-02"), report.Stations[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish station priorities: %w", err)
	}
	p.logger.Info("station priorities published", "topic", p.writer.Topic, "messages", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a station record into a Kafka message.
func serializeToMessage(refDate string, st domain.StationRecord) (kafkago.Message, error) {
	event := StationEvent{
		ReferenceDate:    refDate,
		Zone:             st.Key.Zone,
		Station:          st.Key.Station,
		AvailabilityPct:  st.Availability.Pct,
		Bucket:           st.Availability.Bucket,
		IncidentState:    st.Incident.State.String(),
		IncidentStart:    domain.FormatDate(st.Incident.StartDate),
		DaysElapsed:      st.DaysElapsed,
		Priority:         st.Priority,
		PriorityReason:   st.PriorityReason,
		ClosureCandidate: st.Incident.ClosureCandidate,
		PendingStartDate: st.Incident.PendingStartDate,
		Comment:          st.Incident.Comment,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize station event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(st.Key.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "priority", Value: []byte(st.Priority)},
			{Key: "incident_state", Value: []byte(event.IncidentState)},
			{Key: "reference_date", Value: []byte(refDate)},
		},
	}, nil
}
