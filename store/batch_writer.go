package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams turn rows from many games into one Parquet file. The
// file lives under outDir/tmp until Finalize moves it into outDir.
type BatchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TurnRow]

	games []string
	rows  int
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	abs, err := filepath.Abs(outDir)
	if err != nil {
		abs = outDir
	}
	tmpDir := filepath.Join(abs, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("turns_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TurnRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", schemaName)

	return &BatchWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(abs, name),
		file:    f,
		writer:  w,
	}, nil
}

func (b *BatchWriter) OutPath() string { return b.outPath }
func (b *BatchWriter) Rows() int       { return b.rows }

// Games lists the game IDs written so far, in order.
func (b *BatchWriter) Games() []string { return b.games }

// WriteGame appends all rows of one finished game.
func (b *BatchWriter) WriteGame(gameID string, rows []TurnRow) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) > 0 {
		if _, err := b.writer.Write(rows); err != nil {
			return fmt.Errorf("write game %s: %w", gameID, err)
		}
	}
	b.rows += len(rows)
	b.games = append(b.games, gameID)
	return nil
}

// Finalize closes the file and moves it into place. A batch with no rows is
// discarded and reported with an empty path.
func (b *BatchWriter) Finalize() (path string, rows int, err error) {
	if b.writer == nil {
		return "", 0, nil
	}
	closeErr := b.writer.Close()
	b.writer = nil
	_ = b.file.Sync()
	fileErr := b.file.Close()
	b.file = nil

	if closeErr != nil {
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}
	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, b.rows, nil
}
