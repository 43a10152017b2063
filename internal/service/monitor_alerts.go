package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
)

// MonitorAlertPublisher fans escalations out to downstream consumers.
type MonitorAlertPublisher interface {
	PublishEscalation(ctx context.Context, record models.MonitoredUser) error
}

type monitorAlertEvent struct {
	Type          string               `json:"type"`
	Record        models.MonitoredUser `json:"record"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	SentAt        time.Time            `json:"sent_at"`
}

// subjectPublisher is the part of *nats.Conn the publisher uses.
type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

type brokerAlertPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         subjectPublisher
	natsSubject  string
}

// NewMonitorAlertPublisher publishes escalation events on Redis pub/sub and NATS.
// Either transport may be nil; with both nil it returns nil.
func NewMonitorAlertPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string) MonitorAlertPublisher {
	if (redisClient == nil && natsConn == nil) || strings.TrimSpace(channelBase) == "" {
		return nil
	}
	publisher := &brokerAlertPublisher{
		redis:        redisClient,
		redisChannel: channelBase + ":monitoring:escalations",
		natsSubject:  strings.ReplaceAll(channelBase, ":", ".") + ".monitoring.escalations",
	}
	if natsConn != nil {
		publisher.nats = natsConn
	}
	return publisher
}

func (p *brokerAlertPublisher) PublishEscalation(ctx context.Context, record models.MonitoredUser) error {
	payload, err := json.Marshal(monitorAlertEvent{
		Type:          "monitored_user.opened",
		Record:        record,
		CorrelationID: observability.CorrelationID(ctx),
		SentAt:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis publish: %w", err))
		}
	}
	if p.nats != nil {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			errs = append(errs, fmt.Errorf("nats publish: %w", err))
		}
	}
	return errors.Join(errs...)
}
