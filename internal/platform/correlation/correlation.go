// Package correlation tags each poll cycle with a short identifier carried
// through the cycle's context, so every log line a cycle emits can be grepped
// together across the fetch, persist, and broadcast stages.
package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// attrKey is the attribute name stamped onto log records.
const attrKey = "correlation_id"

// idBytes sets the identifier entropy; hex-encoded this yields the
// 8-character cycle ids seen in logs.
const idBytes = 4

type ctxKey struct{}

// NewID mints a fresh cycle identifier.
func NewID() string {
	buf := make([]byte, idBytes)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// WithID attaches a cycle identifier to ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identifier carried by ctx, or "" when the context
// is untagged.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Handler decorates another slog.Handler so records logged with a tagged
// context carry the cycle identifier without every call site passing it
// explicitly.
type Handler struct {
	next slog.Handler
}

func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if id := FromContext(ctx); id != "" {
		record.AddAttrs(slog.String(attrKey, id))
	}
	if err := h.next.Handle(ctx, record); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}
