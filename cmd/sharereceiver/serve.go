package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"github.com/illmade-knight/share-receiver/app"
	"github.com/illmade-knight/share-receiver/internal/config"
	"github.com/illmade-knight/share-receiver/internal/events"
	"github.com/illmade-knight/share-receiver/internal/hostserver"
	"github.com/illmade-knight/share-receiver/internal/metrics"
	"github.com/illmade-knight/share-receiver/internal/storage/badgerstore"
	"github.com/illmade-knight/share-receiver/internal/storage/filestore"
	firestorestorage "github.com/illmade-knight/share-receiver/internal/storage/firestore"
	"github.com/illmade-knight/share-receiver/internal/storage/pebblestore"
	"github.com/illmade-knight/share-receiver/internal/storage/sqlitestore"
	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the entry points behind the HTTP host shell",
		RunE:  runServe,
	}
	cmd.Flags().StringP("listen", "l", ":8090", "Listen address")
	cmd.Flags().StringP("data-dir", "d", "./data", "Data directory for durable backends")
	cmd.Flags().String("backend", "file", "Preferences backend (memory, file, badger, pebble, sqlite, firestore)")
	cmd.Flags().String("namespace", "shared_content", "Preferences namespace holding the shared store")
	cmd.Flags().Bool("auto-return", true, "Return to the sharing app after a direct share")
	cmd.Flags().String("variant", "quick", "Default capture variant (quick, receiver)")
	cmd.Flags().Bool("events", false, "Publish share events to Pub/Sub")
	cmd.Flags().Bool("metrics", true, "Serve Prometheus metrics on /metrics")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)
	logger.Info().Str("version", version).Str("backend", cfg.Store.Backend).Msg("Starting share receiver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Preferences backend and shared store
	prefs, closePrefs, err := openPreferences(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePrefs(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close preferences backend")
		}
	}()
	store := sharedstore.NewService(prefs, logger)

	// 2. Optional observers
	opts := app.Options{
		Primary: activity.PrimaryConfig{
			AutoReturn:  cfg.Primary.AutoReturn,
			ReturnDelay: cfg.Primary.ReturnDelay,
		},
		DefaultVariant: activity.Variant(cfg.Capture.Variant),
	}
	var serverOpts hostserver.Options
	if cfg.Metrics.Enable {
		m := metrics.New(metrics.DefaultNamespace)
		opts.Observer = m
		opts.Recorder = m
		serverOpts.MetricsHandler = m.Handler()
		serverOpts.Recorder = m
	}
	if cfg.Events.Enable {
		psClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to create pubsub client: %w", err)
		}
		defer psClient.Close()
		notifier := events.NewShareNotifier(events.NewTopicPublisher(psClient, cfg.Events.Topic), logger)
		defer notifier.Close()
		opts.Notifier = notifier
		logger.Info().Str("topic", cfg.Events.Topic).Msg("Share events enabled")
	}

	// 3. Application orchestrator and host shell
	application := app.New(store, opts, logger)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		application.Run(ctx)
	}()

	srv := hostserver.New(application, serverOpts, logger)
	serveErr := srv.ListenAndServe(ctx, cfg.Listen)

	application.Stop(context.Background())
	<-loopDone
	logger.Info().Msg("Share receiver stopped")
	return serveErr
}

// openPreferences opens the configured preferences backend and returns its closer.
func openPreferences(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (preferences.Store, func() error, error) {
	noop := func() error { return nil }
	ns := cfg.Store.Namespace

	switch cfg.Store.Backend {
	case "memory":
		return preferences.NewInMemoryStore(), noop, nil
	case "file":
		return filestore.New(cfg.DataDir, ns), noop, nil
	case "badger":
		s, err := badgerstore.Open(badgerstore.Options{DataDir: cfg.DataDir, Namespace: ns, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "pebble":
		s, err := pebblestore.Open(pebblestore.Options{DataDir: cfg.DataDir, Namespace: ns, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "sqlite":
		s, err := sqlitestore.Open(cfg.DataDir, ns, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "firestore":
		fsClient, err := firestore.NewClient(ctx, cfg.Store.FirestoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		logger.Info().Str("project", cfg.Store.FirestoreProject).Msg("Firestore preferences store initialized")
		return firestorestorage.NewPreferencesStore(fsClient, cfg.Store.FirestoreCollection, ns), fsClient.Close, nil
	default:
		return nil, nil, errors.New("unknown store backend: " + cfg.Store.Backend)
	}
}
