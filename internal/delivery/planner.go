package delivery

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Outcome is the delivery decision for a built binary.
type Outcome int

const (
	// OutcomeDirect sends the binary as-is.
	OutcomeDirect Outcome = iota
	// OutcomeArchive sends a compressed archive of the binary.
	OutcomeArchive
	// OutcomeReport sends a text report instead: the binary does not
	// fit through the transport even compressed.
	OutcomeReport
)

// Plan describes how a binary will reach the user.
type Plan struct {
	Outcome Outcome
	// Path is the file to transmit for Direct and Archive outcomes.
	Path string
	// Report carries the out-of-band failure text for OutcomeReport.
	Report string
}

// Planner decides between direct transmission, compressed fallback, and
// a descriptive failure, based on the transport's upload ceiling.
type Planner struct {
	uploadCeiling int64
}

// NewPlanner creates a planner for the given upload ceiling in bytes.
func NewPlanner(uploadCeiling int64) *Planner {
	return &Planner{uploadCeiling: uploadCeiling}
}

// Plan examines the binary at path and picks an outcome. Compression is
// attempted exactly once; there is no iterative re-compression.
func (p *Planner) Plan(path string) (Plan, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Plan{}, fmt.Errorf("stat binary: %w", err)
	}

	if info.Size() <= p.uploadCeiling {
		return Plan{Outcome: OutcomeDirect, Path: path}, nil
	}

	archive, err := compress(path)
	if err != nil {
		return Plan{}, fmt.Errorf("compress binary: %w", err)
	}

	archiveInfo, err := os.Stat(archive)
	if err != nil {
		return Plan{}, fmt.Errorf("stat archive: %w", err)
	}
	if archiveInfo.Size() <= p.uploadCeiling {
		return Plan{Outcome: OutcomeArchive, Path: archive}, nil
	}

	report := fmt.Sprintf(
		"The binary was built but is too large for the transport, even compressed. "+
			"Server-side path: %s", path,
	)
	return Plan{Outcome: OutcomeReport, Report: report}, nil
}

// compress writes a maximum-compression zip next to the binary and
// returns its path.
func compress(path string) (string, error) {
	archivePath := strings.TrimSuffix(path, filepath.Ext(path)) + ".zip"

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	entry, err := zw.Create(filepath.Base(path))
	if err != nil {
		zw.Close()
		return "", err
	}
	if _, err := io.Copy(entry, src); err != nil {
		zw.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return archivePath, nil
}
