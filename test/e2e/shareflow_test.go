//go:build integration

package e2e_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/illmade-knight/share-receiver/app"
	"github.com/illmade-knight/share-receiver/internal/clients"
	"github.com/illmade-knight/share-receiver/internal/events"
	"github.com/illmade-knight/share-receiver/internal/hostserver"
	"github.com/illmade-knight/share-receiver/internal/metrics"
	firestorestorage "github.com/illmade-knight/share-receiver/internal/storage/firestore"
	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareFlow_E2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)
	logger := zerolog.New(zerolog.NewTestWriter(t))
	const projectID = "test-project"
	runID := uuid.NewString()

	// 1. SETUP: Start Emulators
	pubsubConn := emulators.SetupPubsubEmulator(t, ctx, emulators.GetDefaultPubsubConfig(projectID))
	psClient, err := pubsub.NewClient(ctx, projectID, pubsubConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = psClient.Close() })

	firestoreConn := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	fsClient, err := firestore.NewClient(ctx, projectID, firestoreConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsClient.Close() })

	topicID := "share-events-" + runID
	subID := "share-events-sub-" + runID
	createPubsubResources(t, ctx, psClient, projectID, topicID, subID)

	// 2. ARRANGE: Assemble the host on Firestore-backed preferences
	prefs := firestorestorage.NewPreferencesStore(fsClient, "", "shared_content-"+runID)
	store := sharedstore.NewService(prefs, logger)
	notifier := events.NewShareNotifier(events.NewTopicPublisher(psClient, topicID), logger)
	m := metrics.New("")

	application := app.New(store, app.Options{
		Primary:  activity.PrimaryConfig{AutoReturn: true, ReturnDelay: time.Minute},
		Notifier: notifier,
		Observer: m,
		Recorder: m,
	}, logger)
	go application.Run(ctx)
	t.Cleanup(func() { application.Stop(context.Background()) })

	server := httptest.NewServer(hostserver.New(application, hostserver.Options{MetricsHandler: m.Handler(), Recorder: m}, logger).Handler())
	t.Cleanup(server.Close)

	intents := clients.NewIntentClient(server.URL, logger)
	bridge := clients.NewBridgeClient(server.URL, "", logger)

	// 3. ACT: A receiver capture persists to Firestore and wakes the primary screen
	result, err := intents.Capture(ctx, activity.VariantReceiver, sharing.Intent{
		Action: sharing.ActionSendMultiple,
		Type:   "image/*",
		Extras: map[string]any{sharing.ExtraStream: []string{"content://one", "content://two"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "images", result.Kind)

	// 4. ASSERT: The primary drained the handoff and the store is empty again
	uris, err := bridge.GetSharedImageURIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"content://one", "content://two"}, uris)

	entries, err := prefs.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// 5. ASSERT: The share event reached Pub/Sub
	notifier.Close()
	receiveCtx, stop := context.WithTimeout(ctx, 30*time.Second)
	defer stop()
	var event sharing.ShareEvent
	err = psClient.Subscriber(subID).Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
		msg.Ack()
		if json.Unmarshal(msg.Data, &event) == nil {
			stop()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("receiving share events failed: %v", err)
	}
	assert.Equal(t, sharing.SourceCapture, event.Source)
	assert.Equal(t, 2, event.ItemCount)
}

// --- E2E Test Helpers ---

func createPubsubResources(t *testing.T, ctx context.Context, client *pubsub.Client, projectID, topicID, subID string) {
	t.Helper()
	topicAdminClient := client.TopicAdminClient
	subAdminClient := client.SubscriptionAdminClient

	topicName := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	_, err := topicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topicName})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = topicAdminClient.DeleteTopic(context.Background(), &pubsubpb.DeleteTopicRequest{Topic: topicName})
	})

	subName := fmt.Sprintf("projects/%s/subscriptions/%s", projectID, subID)
	_, err = subAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
		Name:  subName,
		Topic: topicName,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = subAdminClient.DeleteSubscription(context.Background(), &pubsubpb.DeleteSubscriptionRequest{Subscription: subName})
	})
}
