package core

import (
	"context"
	"strings"

	"github.com/JonMunkholm/promptsync/internal/logging"
	"github.com/JonMunkholm/promptsync/internal/model"
)

// DefaultPlaceholder is spoken when a message has no text for a locale.
const DefaultPlaceholder = "<speak></speak>"

// EnabledMode selects how the Enabled cell of situational messages is read.
type EnabledMode string

const (
	// EnabledLenient treats anything but an explicit negative as enabled.
	EnabledLenient EnabledMode = "lenient"

	// EnabledStrict enables only on the exact value "true".
	EnabledStrict EnabledMode = "strict"
)

var falseWords = map[string]bool{
	"false":    true,
	"no":       true,
	"0":        true,
	"off":      true,
	"disabled": true,
}

// ParseEnabled interprets a raw Enabled cell. An empty cell is enabled in
// both modes.
func ParseEnabled(mode EnabledMode, raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" {
		return true
	}
	if mode == EnabledStrict {
		return v == "true"
	}
	return !falseWords[strings.ToLower(v)]
}

// Classifier partitions the messages of a group into static and situational
// entries.
type Classifier struct {
	TargetLocales []string
	Placeholder   string
	EnabledMode   EnabledMode
}

// Classify builds the export record of one group. Every message lands in
// exactly one list according to its type; messages of any other type are
// dropped with a warning. Both lists are non-nil.
func (c Classifier) Classify(ctx context.Context, group model.MessageGroup, msgs []model.Message) model.ExportRecord {
	rec := model.ExportRecord{
		GroupName:   group.Name,
		Static:      []model.StaticEntry{},
		Situational: []model.SituationalEntry{},
	}

	for _, m := range msgs {
		text := c.texts(m.Text)

		switch model.MessageType(strings.TrimSpace(string(m.Type))) {
		case model.TypeStatic:
			rec.Static = append(rec.Static, model.StaticEntry{
				ID:                m.ID,
				TextByLocale:      text,
				CustomerForMonths: m.CustomerForMonths,
				ValidStart:        m.ValidStart,
				ValidEnd:          m.ValidEnd,
			})
		case model.TypeSituational:
			rec.Situational = append(rec.Situational, model.SituationalEntry{
				Enabled:           ParseEnabled(c.EnabledMode, m.Enabled),
				Detail:            model.MessageDetail{ID: m.ID, TextByLocale: text},
				CustomerForMonths: m.CustomerForMonths,
				ValidStart:        m.ValidStart,
				ValidEnd:          m.ValidEnd,
			})
		default:
			logging.FromContext(ctx).Warn("dropping message with unknown type",
				"group", group.Name,
				"message_id", m.ID,
				"type", m.Type,
			)
		}
	}

	return rec
}

// texts copies in and fills every target locale that is missing or empty
// with the placeholder. Empty texts of other locales are replaced too so the
// document never carries a blank prompt.
func (c Classifier) texts(in map[string]string) map[string]string {
	placeholder := c.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	out := make(map[string]string, len(in)+len(c.TargetLocales))
	for locale, text := range in {
		if text == "" {
			text = placeholder
		}
		out[locale] = text
	}
	for _, locale := range c.TargetLocales {
		if out[locale] == "" {
			out[locale] = placeholder
		}
	}
	return out
}
