// Package store persists played Santorini turns as Parquet.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/game"
)

const schemaName = "santorini_turn_v1"

// TurnRow is one ply of a recorded game: the position before the move,
// the move the engine chose and what its search reported.
//
// Squares are 0..24 from A1. Build is -1 on a winning climb.
// Outcome is the final result from the perspective of the side that moved
// on this ply: 1 won, -1 lost, 0 unfinished.
type TurnRow struct {
	GameID  string  `parquet:"game_id,dict"`
	Ply     int32   `parquet:"ply"`
	Side    string  `parquet:"side,dict"`
	Engine  string  `parquet:"engine,dict"`
	Blocks  []int32 `parquet:"blocks"`
	Workers []int32 `parquet:"workers"`

	From  int32 `parquet:"from"`
	To    int32 `parquet:"to"`
	Build int32 `parquet:"build"`

	HasEval bool   `parquet:"has_eval"`
	Eval    int32  `parquet:"eval"`
	Depth   int32  `parquet:"depth"`
	Nodes   int64  `parquet:"nodes"`
	ThinkMs int64  `parquet:"think_ms"`
	PV      string `parquet:"pv"`

	Outcome float32 `parquet:"outcome"`
}

// NewTurnRow records the engine's answer res for position b. res must carry
// a move.
func NewTurnRow(gameID string, ply int, b game.Board, engineName string, res engine.SearchResult, think time.Duration) TurnRow {
	row := TurnRow{
		GameID:  gameID,
		Ply:     int32(ply),
		Side:    b.Turn.String(),
		Engine:  engineName,
		Blocks:  make([]int32, game.NumSquares),
		Workers: make([]int32, len(b.Workers)),
		Build:   -1,
		Depth:   int32(res.Depth),
		Nodes:   int64(res.Nodes),
		ThinkMs: think.Milliseconds(),
		PV:      engine.FormatPV(res.PV),
	}
	for i, h := range b.Blocks {
		row.Blocks[i] = int32(h)
	}
	for i, w := range b.Workers {
		row.Workers[i] = int32(w)
	}
	if res.Move != nil {
		row.From = int32(res.Move.From)
		row.To = int32(res.Move.To)
		if res.Move.Build != nil {
			row.Build = int32(*res.Move.Build)
		}
	}
	if res.Eval != nil {
		row.HasEval = true
		row.Eval = int32(*res.Eval)
	}
	return row
}

// Board rebuilds the position the row was played from.
func (r TurnRow) Board() (game.Board, error) {
	var b game.Board
	if len(r.Blocks) != game.NumSquares || len(r.Workers) != len(b.Workers) {
		return b, fmt.Errorf("row %s/%d: got %d blocks and %d workers", r.GameID, r.Ply, len(r.Blocks), len(r.Workers))
	}
	for i, h := range r.Blocks {
		b.Blocks[i] = uint8(h)
	}
	for i, w := range r.Workers {
		b.Workers[i] = game.Square(w)
	}
	if err := b.Turn.UnmarshalText([]byte(r.Side)); err != nil {
		return b, fmt.Errorf("row %s/%d: %w", r.GameID, r.Ply, err)
	}
	if err := b.Validate(); err != nil {
		return b, fmt.Errorf("row %s/%d: %w", r.GameID, r.Ply, err)
	}
	return b, nil
}

// SetOutcomes fills Outcome on every row given the game result from
// PlayerOne's perspective.
func SetOutcomes(rows []TurnRow, playerOneResult float32) {
	for i := range rows {
		if rows[i].Side == game.PlayerOne.String() {
			rows[i].Outcome = playerOneResult
		} else {
			rows[i].Outcome = -playerOneResult
		}
	}
}

// WriteBatchParquetAtomic writes rows to outDir/tmp and renames the file
// into outDir once it is complete, so readers never see a partial batch.
func WriteBatchParquetAtomic(outDir string, rows []TurnRow) (string, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("turns_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schemaName),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadTurns loads every row of a turn file.
func ReadTurns(path string) ([]TurnRow, error) {
	rows, err := parquet.ReadFile[TurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
