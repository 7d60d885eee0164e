package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CompactHandler writes one human-readable line per record:
//
//	[LEVEL] HH:MM:SS [component] message | key=value key=value
type CompactHandler struct {
	level  slog.Leveler
	mu     *sync.Mutex
	out    io.Writer
	attrs  []slog.Attr // From WithAttrs, already group-qualified
	prefix string      // Group prefix for record attributes, e.g. "req."
}

// NewCompactHandler creates a compact console handler
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &CompactHandler{level: level, mu: &sync.Mutex{}, out: w}
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func levelLabel(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "[TRACE] "
	case slog.LevelDebug:
		return "[DEBUG] "
	case slog.LevelInfo:
		return "[INFO]  "
	case slog.LevelWarn:
		return "[WARN]  "
	case slog.LevelError:
		return "[ERROR] "
	}
	return fmt.Sprintf("[%-5s] ", l.String())
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		a.Key = h.prefix + a.Key
		attrs = append(attrs, a)
		return true
	})

	// The first component attribute becomes the line's prefix
	component := ""
	for i, a := range attrs {
		if a.Key == "component" {
			component = a.Value.String()
			attrs = append(attrs[:i:i], attrs[i+1:]...)
			break
		}
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, levelLabel(r.Level)...)
	if !r.Time.IsZero() {
		buf = r.Time.AppendFormat(buf, "15:04:05")
		buf = append(buf, ' ')
	}
	if component != "" {
		buf = append(buf, '[')
		buf = append(buf, component...)
		buf = append(buf, "] "...)
	}
	buf = append(buf, r.Message...)

	sep := " | "
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		buf = append(buf, sep...)
		sep = " "
		buf = appendAttr(buf, a)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func appendAttr(buf []byte, a slog.Attr) []byte {
	v := a.Value.Resolve()

	switch a.Key {
	case "requestID":
		if s := v.String(); len(s) > 8 {
			return append(append(buf, "req="...), s[:8]...)
		}
	case "durationMs":
		buf = append(buf, "duration="...)
		buf = appendValue(buf, v)
		return append(buf, "ms"...)
	case "error":
		return strconv.AppendQuote(append(buf, "error="...), fmt.Sprint(v.Any()))
	}

	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, v)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		if s := v.String(); needsQuoting(s) {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, v.String()...)
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	}
	return fmt.Append(buf, v.Any())
}

func needsQuoting(s string) bool {
	return s == "" || strings.ContainsAny(s, " \t\n\"=")
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}
