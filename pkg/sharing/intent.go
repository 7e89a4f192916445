package sharing

import "strings"

// Intent actions and extra keys, using the platform's own names so that
// intents forwarded verbatim by a native shell classify correctly.
const (
	ActionSend         = "android.intent.action.SEND"
	ActionSendMultiple = "android.intent.action.SEND_MULTIPLE"
	ActionMain         = "android.intent.action.MAIN"

	ExtraText   = "android.intent.extra.TEXT"
	ExtraStream = "android.intent.extra.STREAM"
)

// Intent is an inbound OS request delivered to an entry point.
type Intent struct {
	Action string         `json:"action"`
	Type   string         `json:"type,omitempty"`
	Extras map[string]any `json:"extras,omitempty"`
}

// StringExtra returns the extra stored under key if it is a string.
func (i Intent) StringExtra(key string) (string, bool) {
	v, ok := i.Extras[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringListExtra returns the extra stored under key as a list of strings.
// Lists decoded from JSON arrive as []any; any non-string element makes the
// whole extra unusable.
func (i Intent) StringListExtra(key string) ([]string, bool) {
	v, ok := i.Extras[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// IsShare reports whether the intent carries one of the share actions.
func (i Intent) IsShare() bool {
	return i.Action == ActionSend || i.Action == ActionSendMultiple
}

func hasMIMEPrefix(mimeType, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), prefix)
}
