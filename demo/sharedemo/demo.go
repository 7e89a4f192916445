// FILE: demo/sharedemo/demo.go
// This demo walks through both share paths in-process: a direct share to the
// primary screen, and a capture handed off through the shared store.

package main

import (
	"context"
	"log"
	"time"

	"github.com/illmade-knight/share-receiver/app"
	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/bridge"
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

func main() {
	log.Println("--- Starting Share Receiver Demo ---")

	// 1. Initialize the shared store and the app
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := sharedstore.NewService(preferences.NewInMemoryStore(), zerolog.Nop())
	a := app.New(store, app.Options{
		Primary: activity.PrimaryConfig{AutoReturn: true, ReturnDelay: 2 * time.Second},
	}, zerolog.Nop())
	go a.Run(ctx)
	defer a.Stop(context.Background())

	call := func(method string) any {
		result, err := a.Invoke(ctx, activity.ShareChannel, bridge.MethodCall{Method: method})
		if err != nil {
			log.Fatalf("❌ %s failed: %v", method, err)
		}
		return result
	}

	// 2. Direct share to the primary screen
	log.Println("\n--- Direct Share ---")
	status, err := a.DeliverToPrimary(ctx, sharing.Intent{
		Action: sharing.ActionSend,
		Type:   "text/plain",
		Extras: map[string]any{sharing.ExtraText: "Look at this article"},
	})
	if err != nil {
		log.Fatalf("❌ deliver failed: %v", err)
	}
	log.Printf("✅ Primary opened from share, return pending: %v", status.ReturnPending)
	log.Printf("   getSharedText -> %v", call(activity.MethodGetSharedText))
	log.Printf("   cancelReturn  -> %v", call(activity.MethodCancelReturn))

	// 3. Quick capture, then resume the primary screen
	log.Println("\n--- Quick Capture ---")
	result, err := a.Capture(ctx, activity.VariantQuick, sharing.Intent{
		Action: sharing.ActionSendMultiple,
		Type:   "image/jpeg",
		Extras: map[string]any{sharing.ExtraStream: []string{"content://media/1", "content://media/2"}},
	})
	if err != nil {
		log.Fatalf("❌ capture failed: %v", err)
	}
	log.Printf("✅ Capture toast: %q (%s)", result.Message, result.Kind)

	if _, err := a.Resume(ctx); err != nil {
		log.Fatalf("❌ resume failed: %v", err)
	}
	log.Printf("   getSharedImageUris -> %v", call(activity.MethodGetSharedImageURIs))
	log.Printf("   checkForNewContent -> %v", call(activity.MethodCheckForNewContent))

	log.Println("\n--- Demo Complete ---")
}
