// Package sink holds the export destinations: a key-value store receiving one
// document per message group and an object archive receiving the bulk CSV.
package sink

import (
	"context"
	"errors"

	"github.com/JonMunkholm/promptsync/internal/model"
)

// ErrEmptyKey is returned when a record has no group name to key it by.
var ErrEmptyKey = errors.New("record has empty group name")

// KV stores export records keyed by group name. Put overwrites the whole
// document; there is no partial update.
type KV interface {
	Put(ctx context.Context, rec model.ExportRecord) error
	Get(ctx context.Context, group string) (model.ExportRecord, bool, error)
}

// Archive stores whole objects by key.
type Archive interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)

	// URI returns the archive location of a key prefix, as written into
	// manifests.
	URI(prefix string) string
}
