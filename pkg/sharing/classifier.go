package sharing

// Classify maps an inbound intent onto a Payload.
//
//	SEND          + text/*  -> Text(EXTRA_TEXT)
//	SEND          + image/* -> Images([EXTRA_STREAM])
//	SEND_MULTIPLE + image/* -> Images(EXTRA_STREAM...)
//
// Empty URIs are dropped on both image paths; a list with nothing left is None.
// Every other combination, and any missing or malformed extra, yields None.
func Classify(intent Intent) Payload {
	if intent.Type == "" {
		return None
	}

	switch intent.Action {
	case ActionSend:
		switch {
		case hasMIMEPrefix(intent.Type, "text/"):
			if text, ok := intent.StringExtra(ExtraText); ok {
				return TextPayload(text)
			}
		case hasMIMEPrefix(intent.Type, "image/"):
			if uri, ok := intent.StringExtra(ExtraStream); ok && uri != "" {
				return ImagesPayload([]string{uri})
			}
		}
	case ActionSendMultiple:
		if hasMIMEPrefix(intent.Type, "image/") {
			if uris, ok := intent.StringListExtra(ExtraStream); ok {
				return ImagesPayload(uris)
			}
		}
	}
	return None
}
