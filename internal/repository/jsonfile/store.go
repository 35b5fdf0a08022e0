// Package jsonfile persists the snapshot as a single JSON document keyed by "productId_variantId".
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/repository"
	"github.com/shopspring/decimal"
)

// Store is a SnapshotStore backed by one JSON file.
type Store struct {
	mu   sync.Mutex
	log  *slog.Logger
	path string
}

// storedRecord is the on-disk shape of one variant. Unknown fields are ignored on load.
type storedRecord struct {
	ProductID string      `json:"product_id,omitempty"`
	VariantID string      `json:"variant_id,omitempty"`
	Product   string      `json:"product"`
	Variant   *string     `json:"variant"`
	Available bool        `json:"available"`
	Price     json.Number `json:"price"`
	URL       string      `json:"url"`
	SKU       string      `json:"sku,omitempty"`
}

// loadedRecord mirrors storedRecord but tolerates prices written as strings.
type loadedRecord struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Product   string          `json:"product"`
	Variant   *string         `json:"variant"`
	Available bool            `json:"available"`
	Price     decimal.Decimal `json:"price"`
	URL       string          `json:"url"`
	SKU       string          `json:"sku"`
}

// NewStore creates a Store at path. It fails when the parent directory cannot be
// created or written, so a bad path is caught at startup.
func NewStore(log *slog.Logger, path string) (*Store, error) {
	const opn = "repository.jsonfile.NewStore"

	if path == "" {
		return nil, fmt.Errorf("%s: empty snapshot path", opn)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: failed to create directory %s: %w", opn, dir, err)
	}

	probe, err := os.CreateTemp(dir, ".stockwatch-probe-*")
	if err != nil {
		return nil, fmt.Errorf("%s: directory %s is not writable: %w", opn, dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return &Store{log: log, path: path}, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot file.
func (s *Store) Load(_ context.Context) (models.Snapshot, error) {
	const opn = "repository.jsonfile.Load"

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrStateNotFound
		}
		return nil, fmt.Errorf("%s: %w: failed to read %s: %w", opn, repository.ErrPersist, s.path, err)
	}

	var raw map[string]loadedRecord
	if err = json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w: corrupt snapshot %s: %w", opn, repository.ErrPersist, s.path, err)
	}

	snap := make(models.Snapshot, len(raw))
	for key, r := range raw {
		rec := models.VariantRecord{
			ProductID:    r.ProductID,
			VariantID:    r.VariantID,
			ProductTitle: r.Product,
			VariantTitle: models.DefaultVariantTitle,
			Available:    r.Available,
			Price:        r.Price,
			URL:          r.URL,
			SKU:          r.SKU,
		}
		if r.Variant != nil {
			rec.VariantTitle = *r.Variant
		}
		if rec.ProductID == "" && rec.VariantID == "" {
			// Older files only carry the ids inside the key.
			rec.ProductID, rec.VariantID, _ = strings.Cut(key, "_")
		}
		snap[key] = rec
	}

	return snap, nil
}

// Save atomically replaces the snapshot file: the document is written to a temporary
// file in the same directory and renamed over the old one.
func (s *Store) Save(_ context.Context, snap models.Snapshot) error {
	const opn = "repository.jsonfile.Save"

	doc := make(map[string]storedRecord, len(snap))
	for key, r := range snap {
		variant := r.VariantTitle
		doc[key] = storedRecord{
			ProductID: r.ProductID,
			VariantID: r.VariantID,
			Product:   r.ProductTitle,
			Variant:   &variant,
			Available: r.Available,
			Price:     json.Number(models.PriceString(r.Price)),
			URL:       r.URL,
			SKU:       r.SKU,
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w: failed to encode snapshot: %w", opn, repository.ErrPersist, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w: failed to create temp file: %w", opn, repository.ErrPersist, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // after a successful rename the temp name no longer exists

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w: failed to write temp file: %w", opn, repository.ErrPersist, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w: failed to sync temp file: %w", opn, repository.ErrPersist, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w: failed to close temp file: %w", opn, repository.ErrPersist, err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%s: %w: failed to replace %s: %w", opn, repository.ErrPersist, s.path, err)
	}

	s.log.Debug("Snapshot saved", "op", opn, "path", s.path, "records", len(snap))

	return nil
}
