package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/brensch/santorini/game"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode: %v\n%s", err, buf.String())
		}
		out = append(out, m)
	}
	return out
}

func TestJSONHandler_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewJSONHandler(&buf, Options{Level: slog.LevelDebug}))
	log.Debug("search complete",
		"square", game.C3,
		"turn", game.PlayerTwo,
		"nodes", uint64(1200),
		"elapsed", 1500*time.Millisecond,
		"err", errors.New("boom"),
	)
	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	r := recs[0]
	t.Logf("%v", r)
	checks := map[string]any{
		"msg":     "search complete",
		"level":   "DEBUG",
		"square":  "C3",
		"turn":    "two",
		"nodes":   float64(1200),
		"elapsed": "1.5s",
		"err":     "boom",
	}
	for k, want := range checks {
		if r[k] != want {
			t.Fatalf("%s=%v want %v", k, r[k], want)
		}
	}
	if strings.Count(buf.String(), "\n") > 1 {
		t.Fatalf("compact handler wrote multiple lines")
	}
}

func TestJSONHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewJSONHandler(&buf, Options{Level: slog.LevelWarn}))
	log.Info("hidden")
	log.Warn("shown")
	recs := decodeLines(t, &buf)
	if len(recs) != 1 || recs[0]["msg"] != "shown" {
		t.Fatalf("records %v", recs)
	}
}

func TestJSONHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, slog.LevelInfo)).
		With("game", "g1").
		WithGroup("search").
		With("depth", 3)
	log.Info("iteration", "eval", -4, slog.Group("best", "to", game.D2))

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	r := recs[0]
	if r["game"] != "g1" {
		t.Fatalf("top level attr lost: %v", r)
	}
	search, ok := r["search"].(map[string]any)
	if !ok {
		t.Fatalf("search group missing: %v", r)
	}
	if search["depth"] != float64(3) || search["eval"] != float64(-4) {
		t.Fatalf("search group %v", search)
	}
	best, ok := search["best"].(map[string]any)
	if !ok || best["to"] != "D2" {
		t.Fatalf("nested group %v", search["best"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Fatalf("pretty handler did not indent")
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"pretty", "json", "text"} {
		var buf bytes.Buffer
		log, err := New(&buf, format, "debug")
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		log.Debug("hello", "k", 1)
		if !strings.Contains(buf.String(), "hello") {
			t.Fatalf("%s: nothing written", format)
		}
	}
	if _, err := New(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := New(&bytes.Buffer{}, "json", "loud"); err == nil {
		t.Fatalf("expected bad level error")
	}
}
