// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package trace manages execution traces.
package trace

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"

	"go.chromium.org/infra/build/ddtrace/o11y/clog"
)

// Context is a trace context.
type Context struct {
	traceID [16]byte

	mu sync.Mutex
	// first span is the top span in the trace.
	spans []*Span
}

// New creates a new context for id (uuid).
// If id is empty, it generates a new id.
func New(ctx context.Context, id string) *Context {
	if id == "" {
		id = uuid.New().String()
	}
	if log.V(2) {
		clog.Infof(ctx, "new trace context for %s", id)
	}
	u, err := uuid.Parse(id)
	if err != nil {
		clog.Errorf(ctx, "bad id %q: %v", id, err)
	}
	return &Context{
		traceID: ([16]byte)(u),
	}
}

// ID returns the trace id.
func (t *Context) ID() string {
	return uuid.UUID(t.traceID).String()
}

// NewSpan creates new span in the parent.
func (t *Context) NewSpan(ctx context.Context, name string, parent *Span) *Span {
	if t == nil {
		return nil
	}
	var spanID [8]byte
	t.mu.Lock()
	defer t.mu.Unlock()
	id := fmt.Sprintf("%s-%d", name, len(t.spans))
	if parent == nil && len(t.spans) > 0 {
		parent = t.spans[0]
	}
	s := sha256.Sum256([]byte(id))
	copy(spanID[:], s[:])
	span := &Span{
		spanID:      spanID,
		parent:      parent,
		displayName: name,
		start:       time.Now(),
		attrs:       make(map[string]any),
	}
	if log.V(2) {
		clog.Infof(ctx, "new span %s %x", name, spanID)
	}
	t.spans = append(t.spans, span)
	return span
}

// Spans returns span data in the trace context.
func (t *Context) Spans() []SpanData {
	var data []SpanData
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.spans {
		sd := s.data()
		if sd.Name == "" {
			continue
		}
		data = append(data, sd)
	}
	return data
}

type contextKeyType int

const (
	contextKey contextKeyType = iota
	spanKey
)

// NewContext returns new context with a trace context.
func NewContext(ctx context.Context, t *Context) context.Context {
	return context.WithValue(ctx, contextKey, t)
}

// NewSpan returns new contexts and span.
// If no trace context, returns nil span.
func NewSpan(ctx context.Context, name string) (context.Context, *Span) {
	t, ok := ctx.Value(contextKey).(*Context)
	if !ok || t == nil {
		return ctx, nil
	}
	parent, _ := ctx.Value(spanKey).(*Span)
	span := t.NewSpan(ctx, name, parent)
	return context.WithValue(ctx, spanKey, span), span
}

// ID returns the trace id in the context.
func ID(ctx context.Context) string {
	t, ok := ctx.Value(contextKey).(*Context)
	if !ok || t == nil {
		return ""
	}
	return t.ID()
}

// Status converts err to span status. nil for nil err.
func Status(err error) *spb.Status {
	if err == nil {
		return nil
	}
	code := codes.Unknown
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return &spb.Status{
		Code:    int32(code),
		Message: err.Error(),
	}
}

// Span is a trace span.
type Span struct {
	spanID [8]byte
	parent *Span

	mu          sync.Mutex
	displayName string
	start       time.Time
	end         time.Time
	attrs       map[string]any
	status      *spb.Status
}

// SetAttr sets attributes in the span.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// Close closes the span.
func (s *Span) Close(st *spb.Status) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end = time.Now()
	s.status = st
}

func (s *Span) data() SpanData {
	if s == nil {
		return SpanData{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.end
	if end.IsZero() {
		end = time.Now()
	}
	return SpanData{
		Name:   s.displayName,
		Start:  s.start,
		End:    end,
		Attrs:  s.attrs,
		Status: s.status,
	}
}

// SpanData is a span data.
type SpanData struct {
	Name   string
	Start  time.Time
	End    time.Time
	Attrs  map[string]any
	Status *spb.Status
}

// Duration returns duration of the span.
func (sd SpanData) Duration() time.Duration {
	return sd.End.Sub(sd.Start)
}
