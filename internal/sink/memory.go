package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/promptsync/internal/model"
)

// MemoryKV keeps JSON copies of records so callers cannot mutate stored
// state.
type MemoryKV struct {
	mu   sync.Mutex
	docs map[string][]byte
	fail map[string]error
	puts int
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{docs: make(map[string][]byte), fail: make(map[string]error)}
}

// FailFor makes Put return err for group.
func (m *MemoryKV) FailFor(group string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[group] = err
}

// Groups returns the stored group names, sorted.
func (m *MemoryKV) Groups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.docs))
	for g := range m.docs {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Puts returns the number of successful writes.
func (m *MemoryKV) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *MemoryKV) Put(ctx context.Context, rec model.ExportRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.GroupName == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[rec.GroupName]; err != nil {
		return err
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.docs[rec.GroupName] = doc
	m.puts++
	return nil
}

func (m *MemoryKV) Get(ctx context.Context, group string) (model.ExportRecord, bool, error) {
	var rec model.ExportRecord
	if err := ctx.Err(); err != nil {
		return rec, false, err
	}

	m.mu.Lock()
	doc, ok := m.docs[group]
	m.mu.Unlock()
	if !ok {
		return rec, false, nil
	}
	if err := json.Unmarshal(doc, &rec); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// Object is a stored archive object.
type Object struct {
	Body        []byte
	ContentType string
}

// MemoryArchive keeps objects in memory.
type MemoryArchive struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]Object
	putErr  error
	writes  []string
}

// NewMemoryArchive returns an empty archive whose URIs use bucket.
func NewMemoryArchive(bucket string) *MemoryArchive {
	return &MemoryArchive{bucket: bucket, objects: make(map[string]Object)}
}

// FailPuts makes PutObject return err.
func (a *MemoryArchive) FailPuts(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.putErr = err
}

// Object returns the object stored at key.
func (a *MemoryArchive) Object(key string) (Object, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.objects[key]
	return o, ok
}

// Writes returns the keys written, in order.
func (a *MemoryArchive) Writes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.writes...)
}

func (a *MemoryArchive) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.putErr != nil {
		return fmt.Errorf("put %s: %w", key, a.putErr)
	}
	a.objects[key] = Object{Body: append([]byte(nil), body...), ContentType: contentType}
	a.writes = append(a.writes, key)
	return nil
}

func (a *MemoryArchive) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.objects[key]
	return ok, nil
}

func (a *MemoryArchive) URI(prefix string) string {
	return "mem://" + a.bucket + "/" + strings.TrimLeft(prefix, "/")
}
