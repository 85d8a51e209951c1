package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/game"
)

func sampleRows(t *testing.T, gameID string) []TurnRow {
	t.Helper()
	b := game.Board{Workers: [4]game.Square{game.B2, game.E1, game.A5, game.E5}}
	b.Blocks[game.B2] = 2
	b.Blocks[game.C3] = 2
	b.Blocks[game.D3] = 3

	build := game.B3
	eval := 7
	first := engine.SearchResult{
		Move:  &engine.Move{From: 0, To: game.C3, Build: &build},
		Eval:  &eval,
		PV:    []engine.Move{{From: 0, To: game.C3, Build: &build}},
		Depth: 4,
		Nodes: 1234,
	}
	rows := []TurnRow{NewTurnRow(gameID, 0, b, "flop", first, 0)}

	b.MakeMove(game.Move{From: 0, To: game.C3, Build: game.B3})
	second := engine.SearchResult{Move: &engine.Move{From: 2, To: game.A4, Build: &build}}
	rows = append(rows, NewTurnRow(gameID, 1, b, "random", second, 0))
	return rows
}

func TestNewTurnRow(t *testing.T) {
	rows := sampleRows(t, "g1")
	r := rows[0]
	if r.Side != "one" || r.From != 0 || r.To != int32(game.C3) || r.Build != int32(game.B3) {
		t.Fatalf("row %+v", r)
	}
	if !r.HasEval || r.Eval != 7 || r.Depth != 4 || r.Nodes != 1234 {
		t.Fatalf("search fields %+v", r)
	}
	if r.PV != "w0-C3-B3" {
		t.Fatalf("pv %q", r.PV)
	}
	if rows[1].HasEval {
		t.Fatalf("row without eval marked HasEval")
	}

	winRes := engine.SearchResult{Move: &engine.Move{From: 0, To: game.D3}}
	win := NewTurnRow("g1", 2, game.Board{Workers: [4]game.Square{game.C3, game.E1, game.A4, game.E5}}, "flop", winRes, 0)
	if win.Build != -1 {
		t.Fatalf("winning climb build %d want -1", win.Build)
	}

	b, err := rows[1].Board()
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if b.Turn != game.PlayerTwo || b.Workers[0] != game.C3 || b.Blocks[game.B3] != 1 {
		t.Fatalf("rebuilt board wrong:\n%s", b.String())
	}
}

func TestSetOutcomes(t *testing.T) {
	rows := sampleRows(t, "g1")
	SetOutcomes(rows, -1)
	if rows[0].Outcome != -1 || rows[1].Outcome != 1 {
		t.Fatalf("outcomes %v %v", rows[0].Outcome, rows[1].Outcome)
	}
}

func TestWriteBatchParquetAtomic_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := append(sampleRows(t, "g1"), sampleRows(t, "g2")...)
	path, err := WriteBatchParquetAtomic(dir, rows)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("file %s not in %s", path, dir)
	}
	left, _ := os.ReadDir(filepath.Join(dir, "tmp"))
	if len(left) != 0 {
		t.Fatalf("tmp dir not empty: %d entries", len(left))
	}

	back, err := ReadTurns(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(back) != len(rows) {
		t.Fatalf("read %d rows want %d", len(back), len(rows))
	}
	for i := range rows {
		got, want := back[i], rows[i]
		if got.GameID != want.GameID || got.Ply != want.Ply || got.Side != want.Side ||
			got.From != want.From || got.To != want.To || got.Build != want.Build ||
			got.Eval != want.Eval || got.HasEval != want.HasEval || got.PV != want.PV ||
			len(got.Blocks) != 25 || len(got.Workers) != 4 {
			t.Fatalf("row %d mismatch\n got %+v\nwant %+v", i, got, want)
		}
		for j := range want.Blocks {
			if got.Blocks[j] != want.Blocks[j] {
				t.Fatalf("row %d block %d: %d want %d", i, j, got.Blocks[j], want.Blocks[j])
			}
		}
	}
}

func TestBatchWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.WriteGame("g1", sampleRows(t, "g1")); err != nil {
		t.Fatalf("write g1: %v", err)
	}
	if err := w.WriteGame("g2", sampleRows(t, "g2")); err != nil {
		t.Fatalf("write g2: %v", err)
	}
	if _, err := os.Stat(w.OutPath()); !os.IsNotExist(err) {
		t.Fatalf("file visible before finalize")
	}
	path, n, err := w.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if n != 4 || len(w.Games()) != 2 {
		t.Fatalf("rows=%d games=%v", n, w.Games())
	}
	rows, err := ReadTurns(path)
	if err != nil || len(rows) != 4 {
		t.Fatalf("read back %d rows, err %v", len(rows), err)
	}
	if err := w.WriteGame("g3", nil); err == nil {
		t.Fatalf("write after finalize should fail")
	}

	empty, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if path, n, err := empty.Finalize(); err != nil || path != "" || n != 0 {
		t.Fatalf("empty finalize = %q %d %v", path, n, err)
	}
}

func TestWrittenLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "written.log")
	l, err := OpenWrittenLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.AddMany([]string{"a", "b", "", "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !l.Has("a") || !l.Has("b") || l.Has("c") || l.Count() != 2 {
		t.Fatalf("unexpected log contents, count %d", l.Count())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := OpenWrittenLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if again.Count() != 2 || !again.Has("b") {
		t.Fatalf("reloaded count %d", again.Count())
	}
}
