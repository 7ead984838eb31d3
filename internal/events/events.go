// Package events publishes record change notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/common/mqtt"
	redisutil "github.com/kmallmaperez/geocore/common/redis"
	"github.com/kmallmaperez/geocore/internal/domain"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// RecordEvent describes one accepted write.
type RecordEvent struct {
	ID       string           `json:"id"`
	Action   Action           `json:"action"`
	Table    domain.TableKind `json:"table"`
	RecordID int64            `json:"record_id"`
	Borehole string           `json:"borehole,omitempty"`
	Actor    string           `json:"actor,omitempty"`
	At       time.Time        `json:"at"`
}

// NewRecordEvent stamps an id and time.
func NewRecordEvent(action Action, table domain.TableKind, id int64, borehole, actor string) RecordEvent {
	return RecordEvent{
		ID:       uuid.NewString(),
		Action:   action,
		Table:    table,
		RecordID: id,
		Borehole: borehole,
		Actor:    actor,
		At:       time.Now().UTC(),
	}
}

// Publisher delivers events. Publishing is best effort; callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev RecordEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RecordEvent) error { return nil }

// StreamPublisher appends events to a Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev RecordEvent) error {
	if _, err := redisutil.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, ev); err != nil {
		return fmt.Errorf("publish %s to stream %s: %w", ev.Action, p.stream, err)
	}
	return nil
}

// mqttClient is the part of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, retained bool, payload []byte) error
}

var _ mqttClient = (*mqtt.Client)(nil)

// MQTTPublisher sends each event to <prefix>/<table>.
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

func NewMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

func (p *MQTTPublisher) Topic(table domain.TableKind) string {
	return p.prefix + "/" + string(table)
}

func (p *MQTTPublisher) Publish(_ context.Context, ev RecordEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(p.Topic(ev.Table), false, payload); err != nil {
		return fmt.Errorf("publish %s to mqtt: %w", ev.Action, err)
	}
	return nil
}

// LoggingPublisher wraps a publisher and logs instead of returning errors.
type LoggingPublisher struct {
	next   Publisher
	logger *zap.Logger
}

func NewLoggingPublisher(next Publisher, logger *zap.Logger) *LoggingPublisher {
	return &LoggingPublisher{next: next, logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, ev RecordEvent) error {
	if err := p.next.Publish(ctx, ev); err != nil {
		p.logger.Warn("record event not delivered",
			zap.String("action", string(ev.Action)),
			zap.String("table", string(ev.Table)),
			zap.Int64("record_id", ev.RecordID),
			zap.Error(err),
		)
	}
	return nil
}
