// Package events publishes store lifecycle events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"stores-service/internal/models"
)

// Event types
const (
	StoreCreated    = "store.created"
	StoreUpdated    = "store.updated"
	StoreDeleted    = "store.deleted"
	ImportCompleted = "store.import.completed"
)

// StoreEvent is the wire format for store lifecycle events
type StoreEvent struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	TenantID  string    `json:"tenantId"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId,omitempty"`

	StoreID   string `json:"storeId,omitempty"`
	StoreName string `json:"storeName,omitempty"`
	Country   string `json:"country,omitempty"`

	Summary *models.ImportSummary `json:"summary,omitempty"`
}

// Publisher publishes store events to JetStream. A nil Publisher is safe to
// call: every method no-ops, so callers never need to branch on whether
// messaging is configured.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the stores stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("stores-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[NATS] Disconnected: %v", err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("[NATS] Connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "STORE_EVENTS",
		Subjects:  []string{"store.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		logger.WithError(err).Warn("Could not ensure STORE_EVENTS stream (may already exist)")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "store-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

// PublishStoreCreated publishes a store.created event
func (p *Publisher) PublishStoreCreated(store *models.Store, tenantID, actorID string) {
	p.publish(StoreCreated, &StoreEvent{
		EventType: StoreCreated,
		TenantID:  tenantID,
		ActorID:   actorID,
		StoreID:   store.ID.String(),
		StoreName: store.Name,
		Country:   store.Country,
	})
}

// PublishStoreUpdated publishes a store.updated event
func (p *Publisher) PublishStoreUpdated(store *models.Store, tenantID, actorID string) {
	p.publish(StoreUpdated, &StoreEvent{
		EventType: StoreUpdated,
		TenantID:  tenantID,
		ActorID:   actorID,
		StoreID:   store.ID.String(),
		StoreName: store.Name,
		Country:   store.Country,
	})
}

// PublishStoreDeleted publishes a store.deleted event
func (p *Publisher) PublishStoreDeleted(storeID uuid.UUID, tenantID, actorID string) {
	p.publish(StoreDeleted, &StoreEvent{
		EventType: StoreDeleted,
		TenantID:  tenantID,
		ActorID:   actorID,
		StoreID:   storeID.String(),
	})
}

// PublishImportCompleted publishes a store.import.completed event carrying
// the run's terminal counters
func (p *Publisher) PublishImportCompleted(tenantID, actorID string, summary models.ImportSummary) {
	p.publish(ImportCompleted, &StoreEvent{
		EventType: ImportCompleted,
		TenantID:  tenantID,
		ActorID:   actorID,
		Summary:   &summary,
	})
}

// publish fires the event asynchronously so the request path never blocks
// on the broker
func (p *Publisher) publish(subject string, event *StoreEvent) {
	if p == nil || p.js == nil {
		return
	}
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now().UTC()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal store event")
			return
		}
		if _, err := p.js.Publish(ctx, subject, data); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"tenantID":  event.TenantID,
			}).WithError(err).Error("Failed to publish store event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"eventType": event.EventType,
			"tenantID":  event.TenantID,
		}).Info("Store event published")
	}()
}
