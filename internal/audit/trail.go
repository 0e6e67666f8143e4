// Package audit keeps the append-only activity trail every mutating
// operation in the storefront reports to. Entries live as one JSON array
// under a single store key; ordering is insertion order and entries are
// never rewritten.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gasexpress/internal/kv"
)

// Event kinds recorded by the storefront.
const (
	KindLogin         = "login"
	KindLogout        = "logout"
	KindAccessDenied  = "acceso_denegado"
	KindUserCreate    = "usuario_create"
	KindUserChange    = "usuario_change"
	KindUserDelete    = "usuario_delete"
	KindProductCreate = "producto_create"
	KindProductChange = "producto_change"
	KindProductDelete = "producto_delete"
	KindOrderCreate   = "pedido_create"
	KindOrderChange   = "pedido_change"
)

// SystemActor is recorded when a mutation happens with no session.
const SystemActor = "sistema"

// DefaultMaxEntries bounds trail growth; the oldest entries are trimmed on
// append once the cap is reached.
const DefaultMaxEntries = 1000

// Entry is a single audit record. Detail is free-form but always carries an
// actor id.
type Entry struct {
	ID     string         `json:"id"`
	Kind   string         `json:"tipo"`
	At     time.Time      `json:"fecha"`
	Detail map[string]any `json:"detalle"`
}

// Trail appends and reads audit entries through the Store.
type Trail struct {
	store      kv.Store
	maxEntries int
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Trail.
type Option func(*Trail)

// WithMaxEntries overrides the retention cap. Zero disables trimming.
func WithMaxEntries(n int) Option {
	return func(t *Trail) { t.maxEntries = n }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Trail) { t.now = now }
}

// NewTrail returns a Trail over the given store.
func NewTrail(store kv.Store, opts ...Option) *Trail {
	t := &Trail{
		store:      store,
		maxEntries: DefaultMaxEntries,
		tracer:     otel.Tracer("gasexpress/audit"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append records an entry of the given kind. Detail gains an "actorId" of
// SystemActor when none is present. Appends are best-effort: a storage
// failure is logged, never propagated, so audit pressure cannot fail the
// operation being recorded.
func (t *Trail) Append(ctx context.Context, kind string, detail map[string]any) {
	_, span := t.tracer.Start(ctx, "audit.append",
		trace.WithAttributes(attribute.String("audit.kind", kind)),
	)
	defer span.End()

	if detail == nil {
		detail = map[string]any{}
	}
	if _, ok := detail["actorId"]; !ok {
		detail["actorId"] = SystemActor
	}

	var entries []Entry
	t.store.Get(kv.KeyActivityLog, &entries)

	entries = append(entries, Entry{
		ID:     uuid.New().String(),
		Kind:   kind,
		At:     t.now().UTC(),
		Detail: detail,
	})
	if t.maxEntries > 0 && len(entries) > t.maxEntries {
		entries = entries[len(entries)-t.maxEntries:]
	}
	span.SetAttributes(attribute.Int("audit.length", len(entries)))

	if err := t.store.Set(kv.KeyActivityLog, entries); err != nil {
		slog.Warn("audit append dropped", "kind", kind, "error", err)
	}
}

// Recent returns the newest n entries in insertion order. n <= 0 returns the
// whole trail.
func (t *Trail) Recent(ctx context.Context, n int) []Entry {
	var entries []Entry
	t.store.Get(kv.KeyActivityLog, &entries)
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}
