// Package lookup answers the call-flow read of one message group: every
// message of the group resolved to the spoken text of a single locale.
package lookup

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/promptsync/internal/model"
	"github.com/JonMunkholm/promptsync/internal/sink"
)

// DefaultPlaceholder is returned for messages with nothing to say.
const DefaultPlaceholder = "<speak></speak>"

// Resolve flattens rec to message id -> text for locale. Static messages
// with no text and situational messages that are disabled or have no text
// resolve to placeholder. Situational entries win on a repeated id.
func Resolve(rec model.ExportRecord, locale, placeholder string) map[string]string {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	out := make(map[string]string, len(rec.Static)+len(rec.Situational))
	for _, m := range rec.Static {
		out[m.ID] = textOr(m.TextByLocale[locale], placeholder)
	}
	for _, m := range rec.Situational {
		text := placeholder
		if m.Enabled {
			text = textOr(m.Detail.TextByLocale[locale], placeholder)
		}
		out[m.Detail.ID] = text
	}
	return out
}

func textOr(text, placeholder string) string {
	if text == "" {
		return placeholder
	}
	return text
}

// Service reads records from the key-value sink.
type Service struct {
	kv            sink.KV
	defaultLocale string
	placeholder   string
}

// NewService returns a lookup over kv. Requests without a locale use
// defaultLocale.
func NewService(kv sink.KV, defaultLocale, placeholder string) *Service {
	return &Service{kv: kv, defaultLocale: defaultLocale, placeholder: placeholder}
}

// Prompts returns the resolved prompts of group. found is false when the
// group has no record.
func (s *Service) Prompts(ctx context.Context, group, locale string) (prompts map[string]string, found bool, err error) {
	if locale == "" {
		locale = s.defaultLocale
	}

	rec, ok, err := s.kv.Get(ctx, group)
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", group, err)
	}
	if !ok {
		return nil, false, nil
	}
	return Resolve(rec, locale, s.placeholder), true, nil
}
