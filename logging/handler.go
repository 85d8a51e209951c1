// Package logging builds the slog loggers the santorini commands share.
package logging

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Options configures a JSONHandler.
type Options struct {
	Level slog.Leveler
	// Indent is passed to json.MarshalIndent. Empty writes one line per record.
	Indent    string
	AddSource bool
}

// JSONHandler writes one JSON object per record. Values implementing
// encoding.TextMarshaler or fmt.Stringer are logged in their text form, so
// squares, turns and moves show up as "C3", "one" and "w0-C3-D3".
type JSONHandler struct {
	w    io.Writer
	mu   *sync.Mutex
	opts Options

	attrs  []scopedAttr
	groups []string
}

// scopedAttr remembers which groups were open when WithAttrs was called.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

func NewJSONHandler(w io.Writer, opts Options) *JSONHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &JSONHandler{w: w, mu: &sync.Mutex{}, opts: opts}
}

// NewPrettyJSONHandler indents records for reading on a terminal.
func NewPrettyJSONHandler(w io.Writer, level slog.Leveler) *JSONHandler {
	return NewJSONHandler(w, Options{Level: level, Indent: "  "})
}

func (h *JSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *JSONHandler) Handle(_ context.Context, r slog.Record) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}
	rec := map[string]any{
		"time":  when.Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	if h.opts.AddSource {
		if src := sourceFromPC(r.PC); src != "" {
			rec["source"] = src
		}
	}

	for _, sa := range h.attrs {
		put(open(rec, sa.groups), sa.attr)
	}
	dst := open(rec, h.groups)
	r.Attrs(func(a slog.Attr) bool {
		put(dst, a)
		return true
	})

	var (
		out []byte
		err error
	)
	if h.opts.Indent != "" {
		out, err = json.MarshalIndent(rec, "", h.opts.Indent)
	} else {
		out, err = json.Marshal(rec)
	}
	if err != nil {
		out = []byte(`{"time":` + strconv.Quote(rec["time"].(string)) +
			`,"level":` + strconv.Quote(r.Level.String()) +
			`,"msg":` + strconv.Quote(r.Message) +
			`,"log_error":` + strconv.Quote(err.Error()) + `}`)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(out, '\n'))
	return err
}

func (h *JSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append([]scopedAttr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, scopedAttr{groups: h.groups, attr: a})
	}
	return &clone
}

func (h *JSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// open walks (and creates) the nested maps for groups.
func open(rec map[string]any, groups []string) map[string]any {
	dst := rec
	for _, g := range groups {
		m, ok := dst[g].(map[string]any)
		if !ok {
			m = map[string]any{}
			dst[g] = m
		}
		dst = m
	}
	return dst
}

func put(dst map[string]any, a slog.Attr) {
	if a.Key == "" && a.Value.Kind() != slog.KindGroup {
		return
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		target := dst
		if a.Key != "" {
			m, ok := dst[a.Key].(map[string]any)
			if !ok {
				m = map[string]any{}
				dst[a.Key] = m
			}
			target = m
		}
		for _, ga := range v.Group() {
			put(target, ga)
		}
		return
	}
	dst[a.Key] = plain(v)
}

func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case encoding.TextMarshaler:
			if text, err := x.MarshalText(); err == nil {
				return string(text)
			}
			return fmt.Sprint(x)
		case fmt.Stringer:
			return x.String()
		default:
			return x
		}
	default:
		return v.String()
	}
}

func sourceFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}
