// Package archive provides durable storage for finalized stroke cases.
// Stores are append-only: a recorded case is never updated or deleted.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
)

// exportVersion is the version of the JSON export format
const exportVersion = "1.0"

// CaseExport represents the JSON export format
type CaseExport struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Count      int           `json:"count"`
	Cases      []domain.Case `json:"cases"`
}

// Open returns the store selected by cfg
func Open(cfg domain.ArchiveConfig, logger *logrus.Logger) (domain.CaseStore, error) {
	switch cfg.Driver {
	case "", domain.ArchiveMemory:
		logger.Info("Using in-memory case archive")
		return NewMemoryStore(), nil
	case domain.ArchiveSQLite:
		store, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.Path).Info("Using SQLite case archive")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

// importCases appends every case in export that is not already stored
func importCases(ctx context.Context, store domain.CaseStore, export CaseExport) (imported, skipped int, err error) {
	for _, c := range export.Cases {
		if _, err := store.Get(ctx, c.ID); err == nil {
			skipped++
			continue
		}
		if err := store.Append(ctx, c); err != nil {
			return imported, skipped, fmt.Errorf("failed to import case %s: %w", c.ID, err)
		}
		imported++
	}
	return imported, skipped, nil
}
