// Package csv writes report artifacts as comma-separated files.
package csv

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/zeebo/blake3"
)

// Exporter writes artifacts into a single directory.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Export writes records under name, replacing any file of the same name.
// The file is written to a temporary sibling and renamed into place so a
// reader never sees a partial artifact.
func (e *Exporter) Export(ctx context.Context, records []domain.ReportRecord, name string) (domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %w", domain.ErrExport, err)
	}
	if name == "" || filepath.Base(name) != name {
		return domain.Artifact{}, fmt.Errorf("%w: invalid artifact name %q", domain.ErrExport, name)
	}

	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: create artifact dir: %w", domain.ErrExport, err)
	}

	tmp, err := os.CreateTemp(e.dir, "."+name+".*.tmp")
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: create temp file: %w", domain.ErrExport, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := blake3.New()
	size, err := writeRecords(io.MultiWriter(tmp, hasher), records)
	if err != nil {
		tmp.Close()
		return domain.Artifact{}, fmt.Errorf("%w: write %s: %w", domain.ErrExport, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.Artifact{}, fmt.Errorf("%w: sync %s: %w", domain.ErrExport, name, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: close %s: %w", domain.ErrExport, name, err)
	}

	path := filepath.Join(e.dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: rename %s: %w", domain.ErrExport, name, err)
	}

	return domain.Artifact{
		Name:     name,
		Path:     path,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
		Rows:     len(records),
	}, nil
}

func writeRecords(w io.Writer, records []domain.ReportRecord) (int64, error) {
	cw := &countingWriter{w: w}
	writer := csv.NewWriter(cw)

	if err := writer.Write(domain.ReportHeader); err != nil {
		return 0, err
	}
	for _, rec := range records {
		if err := writer.Write(rec.Row()); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
