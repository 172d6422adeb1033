package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// BookingEvent is the payload published for every booking lifecycle event.
type BookingEvent struct {
	Kind          string    `json:"kind"`
	BookingID     uint      `json:"bookingId"`
	BookingNumber string    `json:"bookingNumber"`
	ServiceType   string    `json:"serviceType"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	PrevStatus    string    `json:"prevStatus,omitempty"`
	CustomerName  string    `json:"customerName"`
	ScheduledTime time.Time `json:"scheduledTime"`
	TotalCost     float64   `json:"totalCost"`
	Rating        *int      `json:"rating,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("local-services-server"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, payload []byte) error {
	return p.conn.Publish(subject, payload)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

// NopPublisher discards events; used when NATS is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NopPublisher) Close() error                                  { return nil }

// EventSubject builds "<prefix>.booking.<kind>".
func EventSubject(prefix, kind string) string {
	if prefix == "" {
		return "booking." + kind
	}
	return prefix + ".booking." + kind
}

func publishBookingEvent(ctx context.Context, pub EventPublisher, prefix string, ev BookingEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	return pub.Publish(ctx, EventSubject(prefix, ev.Kind), payload)
}
