// Package tracks implements the Track Loader, Timeline Rewriter, and Payload
// Builder (spec §4.A–4.C): reading recorded flight tracks off disk, shifting
// their telemetry onto a fresh wall-clock timeline, and assembling the
// per-USS injection payloads built from them.
package tracks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99souls/ridqualifier/qualifier/errs"
	"github.com/99souls/ridqualifier/qualifier/models"
)

// Loader reads FullFlightRecord files from a locale-scoped directory.
type Loader struct {
	// Root is the directory containing one subdirectory per locale, each
	// with an aircraft_states/ directory of track files, matching
	// test_definitions/{locale}/aircraft_states/* (spec §6). Unlike the
	// original implementation (which os.Chdir'd to its own source
	// directory), Root is caller-supplied so the loader has no dependency
	// on the binary's install location.
	Root string
}

// NewLoader returns a Loader rooted at root.
func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// Load reads every regular file in <Root>/<locale>/aircraft_states/ and
// parses each as a FullFlightRecord, returning them in discovery order.
// Returns errs.ErrNoTracksAvailable if the directory holds no regular files.
func (l *Loader) Load(locale string) ([]models.FullFlightRecord, error) {
	dir := filepath.Join(l.Root, locale, "aircraft_states")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ridqualifier: read tracks directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, errs.ErrNoTracksAvailable
	}
	// os.ReadDir returns entries sorted by filename, so this is already
	// deterministic discovery order.

	records := make([]models.FullFlightRecord, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		record, err := l.loadOne(path)
		if err != nil {
			return nil, fmt.Errorf("ridqualifier: parse track file %s: %w", path, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (l *Loader) loadOne(path string) (models.FullFlightRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.FullFlightRecord{}, err
	}
	var record models.FullFlightRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return models.FullFlightRecord{}, err
	}
	if err := record.Validate(); err != nil {
		return models.FullFlightRecord{}, err
	}
	return record, nil
}
