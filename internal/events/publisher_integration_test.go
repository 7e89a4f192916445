//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/illmade-knight/share-receiver/internal/events"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareNotifier_Emulator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	const projectID = "test-project"
	runID := uuid.NewString()
	topicID := "share-events-" + runID
	subID := "share-events-sub-" + runID

	pubsubConn := emulators.SetupPubsubEmulator(t, ctx, emulators.GetDefaultPubsubConfig(projectID))
	psClient, err := pubsub.NewClient(ctx, projectID, pubsubConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = psClient.Close() })

	topicName := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	_, err = psClient.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topicName})
	require.NoError(t, err)
	_, err = psClient.SubscriptionAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
		Name:  fmt.Sprintf("projects/%s/subscriptions/%s", projectID, subID),
		Topic: topicName,
	})
	require.NoError(t, err)

	notifier := events.NewShareNotifier(events.NewTopicPublisher(psClient, topicID), zerolog.Nop())
	event := sharing.NewShareEvent(sharing.SourcePrimary, sharing.TextPayload("hello"))

	// Act
	require.NoError(t, notifier.Notify(ctx, event))
	notifier.Close()

	// Assert
	receiveCtx, stop := context.WithTimeout(ctx, 30*time.Second)
	defer stop()
	var received sharing.ShareEvent
	err = psClient.Subscriber(subID).Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
		msg.Ack()
		if json.Unmarshal(msg.Data, &received) == nil {
			stop()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("receive failed: %v", err)
	}
	assert.Equal(t, event.ID, received.ID)
	assert.Equal(t, sharing.SourcePrimary, received.Source)
	assert.Equal(t, "text", received.Kind)
}
