package hostserver_test

import (
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/rs/zerolog"
)

func newStore() *sharedstore.Service {
	return sharedstore.NewService(preferences.NewInMemoryStore(), zerolog.Nop())
}
