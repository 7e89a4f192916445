package activity

import (
	"context"

	"github.com/illmade-knight/share-receiver/pkg/bridge"
)

// ShareChannel is the bridge channel served by the primary screen.
const ShareChannel = "sharereceiver/share"

// Bridge method names.
const (
	MethodGetInitialSharedContent = "getInitialSharedContent"
	MethodGetSharedText           = "getSharedText"
	MethodGetSharedImageURIs      = "getSharedImageUris"
	MethodHasSharedContent        = "hasSharedContent"
	MethodCheckForNewContent      = "checkForNewContent"
	MethodCancelReturn            = "cancelReturn"
	MethodSaveContentSuccess      = "saveContentSuccess"
	MethodSaveContentFailure      = "saveContentFailure"
)

// PrimaryResolver returns the primary screen currently in the foreground.
// The shell may recreate the screen, so handlers resolve it on every call.
type PrimaryResolver func() *Primary

// RegisterPrimaryMethods installs the share methods on ch.
func RegisterPrimaryMethods(ch *bridge.Channel, resolve PrimaryResolver) {
	ch.Handle(MethodGetInitialSharedContent, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		return resolve().InitialSharedContent(), nil
	})
	ch.Handle(MethodGetSharedText, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		if text := resolve().TakeSharedText(); text != nil {
			return *text, nil
		}
		return nil, nil
	})
	ch.Handle(MethodGetSharedImageURIs, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		if uris := resolve().TakeSharedImageURIs(); len(uris) > 0 {
			return uris, nil
		}
		return nil, nil
	})
	ch.Handle(MethodHasSharedContent, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		return resolve().HasSharedContent(ctx), nil
	})
	ch.Handle(MethodCheckForNewContent, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		return resolve().CheckForNewContent(ctx), nil
	})
	ch.Handle(MethodCancelReturn, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		return resolve().CancelReturn(), nil
	})
	ch.Handle(MethodSaveContentSuccess, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		p := resolve()
		p.logger.Debug().Msg("Content saved successfully by application")
		p.deps.Observer.ContentSaved(true)
		return true, nil
	})
	ch.Handle(MethodSaveContentFailure, func(ctx context.Context, call bridge.MethodCall) (any, error) {
		p := resolve()
		p.logger.Debug().Msg("Content failed to save in application")
		p.deps.Observer.ContentSaved(false)
		return true, nil
	})
}
