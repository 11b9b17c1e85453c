package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Record is one captured log entry.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Recorder is a slog.Handler that keeps records in memory. Tests use it to
// check which degrade paths (skipped elements, missing images, font
// fallbacks) a render went through.
//
//	rec := logging.NewRecorder(slog.LevelDebug)
//	opts.Logger = slog.New(rec)
//	...
//	if !rec.Contains("图片加载失败") { ... }
type Recorder struct {
	level slog.Leveler
	sink  *recordSink
	attrs []slog.Attr
	group string
}

type recordSink struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder captures records at or above level.
func NewRecorder(level slog.Leveler) *Recorder {
	if level == nil {
		level = slog.LevelDebug
	}
	return &Recorder{level: level, sink: &recordSink{}}
}

// Enabled implements slog.Handler.
func (r *Recorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level.Level()
}

// Handle implements slog.Handler.
func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	entry := Record{Level: rec.Level, Message: rec.Message, Attrs: map[string]string{}}
	for _, a := range r.attrs {
		entry.Attrs[a.Key] = a.Value.String()
	}
	rec.Attrs(func(a slog.Attr) bool {
		entry.Attrs[r.key(a.Key)] = a.Value.String()
		return true
	})
	r.sink.mu.Lock()
	r.sink.records = append(r.sink.records, entry)
	r.sink.mu.Unlock()
	return nil
}

func (r *Recorder) key(k string) string {
	if r.group == "" {
		return k
	}
	return r.group + "." + k
}

// WithAttrs implements slog.Handler.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: r.key(a.Key), Value: a.Value})
	}
	return &Recorder{level: r.level, sink: r.sink, attrs: merged, group: r.group}
}

// WithGroup implements slog.Handler.
func (r *Recorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	return &Recorder{level: r.level, sink: r.sink, attrs: r.attrs, group: r.key(name)}
}

// Records returns a copy of everything captured so far.
func (r *Recorder) Records() []Record {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	out := make([]Record, len(r.sink.records))
	copy(out, r.sink.records)
	return out
}

// Contains reports whether any captured message contains s.
func (r *Recorder) Contains(s string) bool {
	for _, rec := range r.Records() {
		if strings.Contains(rec.Message, s) {
			return true
		}
	}
	return false
}
