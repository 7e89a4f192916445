package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/illmade-knight/share-receiver/internal/clients"
	"github.com/illmade-knight/share-receiver/internal/config"
	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/spf13/cobra"
)

func addServerFlag(cmd *cobra.Command) {
	cmd.Flags().String("server", "http://localhost:8090", "Base URL of a running host")
}

func newShareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share text or images with a running host",
		Example: `  sharereceiver share --text "hello"
  sharereceiver share --image content://media/1 --image content://media/2 --to capture --variant receiver`,
		RunE: runShare,
	}
	addServerFlag(cmd)
	cmd.Flags().String("text", "", "Text to share")
	cmd.Flags().StringArray("image", nil, "Image URI to share (repeatable)")
	cmd.Flags().String("mime", "", "Override the MIME type")
	cmd.Flags().String("to", "capture", "Entry point receiving the share (capture, primary)")
	cmd.Flags().String("variant", "", "Capture variant (quick, receiver)")
	return cmd
}

// buildIntent assembles the share intent the OS would deliver for text or images.
func buildIntent(text string, images []string, mime string) (sharing.Intent, error) {
	switch {
	case text != "" && len(images) > 0:
		return sharing.Intent{}, errors.New("share either --text or --image, not both")
	case text != "":
		if mime == "" {
			mime = "text/plain"
		}
		return sharing.Intent{Action: sharing.ActionSend, Type: mime, Extras: map[string]any{sharing.ExtraText: text}}, nil
	case len(images) == 1:
		if mime == "" {
			mime = "image/*"
		}
		return sharing.Intent{Action: sharing.ActionSend, Type: mime, Extras: map[string]any{sharing.ExtraStream: images[0]}}, nil
	case len(images) > 1:
		if mime == "" {
			mime = "image/*"
		}
		return sharing.Intent{Action: sharing.ActionSendMultiple, Type: mime, Extras: map[string]any{sharing.ExtraStream: images}}, nil
	default:
		return sharing.Intent{}, errors.New("nothing to share: pass --text or --image")
	}
}

func runShare(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	text, _ := cmd.Flags().GetString("text")
	images, _ := cmd.Flags().GetStringArray("image")
	mime, _ := cmd.Flags().GetString("mime")
	to, _ := cmd.Flags().GetString("to")

	intent, err := buildIntent(text, images, mime)
	if err != nil {
		return err
	}

	client := clients.NewIntentClient(cfg.ServerURL, newLogger(cfg))
	var out any
	switch to {
	case "capture":
		variant, _ := cmd.Flags().GetString("variant")
		out, err = client.Capture(cmd.Context(), activity.Variant(variant), intent)
	case "primary":
		out, err = client.DeliverToPrimary(cmd.Context(), intent)
	default:
		return fmt.Errorf("unknown entry point %q, expected capture or primary", to)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func newResumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume the host's primary screen so it drains the shared store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			status, err := clients.NewIntentClient(cfg.ServerURL, newLogger(cfg)).Resume(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
	addServerFlag(cmd)
	return cmd
}

func newCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> [json-arguments]",
		Short: "Invoke a bridge method on the host",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			channel, _ := cmd.Flags().GetString("channel")

			var callArgs any
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments must be valid JSON")
				}
				callArgs = json.RawMessage(args[1])
			}

			client := clients.NewBridgeClient(cfg.ServerURL, channel, newLogger(cfg))
			result, err := client.Invoke(cmd.Context(), args[0], callArgs)
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Fprintln(os.Stdout, "null")
				return nil
			}
			return printJSON(result)
		},
	}
	addServerFlag(cmd)
	cmd.Flags().String("channel", activity.ShareChannel, "Bridge channel")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
