// Package events publishes accepted shares to Google Cloud Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

// DefaultTopic receives ShareEvent messages when no topic is configured.
const DefaultTopic = "share-events"

const publishTimeout = 10 * time.Second

// Result is the outcome of one asynchronous publish.
type Result interface {
	Get(ctx context.Context) (serverID string, err error)
}

// Publisher is the slice of *pubsub.Publisher the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) Result
	Stop()
}

// topicPublisher adapts *pubsub.Publisher to Publisher.
type topicPublisher struct {
	p *pubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *pubsub.Message) Result {
	return t.p.Publish(ctx, msg)
}

func (t topicPublisher) Stop() {
	t.p.Stop()
}

// NewTopicPublisher wraps the client's publisher for topicID.
func NewTopicPublisher(client *pubsub.Client, topicID string) Publisher {
	return topicPublisher{p: client.Publisher(topicID)}
}

// ShareNotifier serialises ShareEvents as JSON and publishes them without
// blocking the caller. Outcomes are logged.
type ShareNotifier struct {
	publisher Publisher
	logger    zerolog.Logger
	inflight  sync.WaitGroup
}

// NewShareNotifier creates a notifier on top of publisher.
func NewShareNotifier(publisher Publisher, logger zerolog.Logger) *ShareNotifier {
	return &ShareNotifier{
		publisher: publisher,
		logger:    logger.With().Str("component", "share-notifier").Logger(),
	}
}

// Notify queues event for publication. Only encoding errors are returned.
func (n *ShareNotifier) Notify(ctx context.Context, event sharing.ShareEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal share event: %w", err)
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"source": string(event.Source),
			"kind":   event.Kind,
		},
	})

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		waitCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		log := n.logger.With().Str("event_id", event.ID.String()).Logger()
		serverID, err := result.Get(waitCtx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to publish share event")
			return
		}
		log.Debug().Str("server_id", serverID).Msg("Published share event")
	}()
	return nil
}

// Close waits for outstanding publishes and stops the publisher.
func (n *ShareNotifier) Close() {
	n.inflight.Wait()
	n.publisher.Stop()
}
