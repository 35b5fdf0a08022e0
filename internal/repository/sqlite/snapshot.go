package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/stockwatch/internal/models"
	"github.com/Houeta/stockwatch/internal/repository"
	"github.com/shopspring/decimal"
)

// Load implements repository.SnapshotStore.
func (r *Repository) Load(ctx context.Context) (models.Snapshot, error) {
	const opn = "repository.sqlite.Load"

	// 1. A row in snapshot_state means a snapshot (possibly empty) was saved before.
	var savedAt string
	err := r.db.QueryRowContext(ctx, "SELECT saved_at FROM snapshot_state WHERE id = 1").Scan(&savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrStateNotFound
		}
		return nil, fmt.Errorf("%s: %w: failed to get snapshot state: %w", opn, repository.ErrPersist, err)
	}

	// 2. Get all variants.
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT key, product_id, variant_id, product, variant, available, price, url, sku FROM variants",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: failed to get variants: %w", opn, repository.ErrPersist, err)
	}
	defer rows.Close()

	// 3. Scan every row to a VariantRecord.
	snap := make(models.Snapshot)
	for rows.Next() {
		var (
			key, price string
			rec        models.VariantRecord
		)
		if err = rows.Scan(
			&key, &rec.ProductID, &rec.VariantID, &rec.ProductTitle, &rec.VariantTitle,
			&rec.Available, &price, &rec.URL, &rec.SKU,
		); err != nil {
			return nil, fmt.Errorf("%s: %w: failed to scan variant: %w", opn, repository.ErrPersist, err)
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("%s: %w: invalid price %q for %s: %w", opn, repository.ErrPersist, price, key, err)
		}
		snap[key] = rec
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: rows iteration error: %w", opn, repository.ErrPersist, err)
	}

	r.log.DebugContext(ctx, "Snapshot loaded", "op", opn, "saved_at", savedAt, "records", len(snap))

	return snap, nil
}

// Save replaces the stored snapshot atomically using a transaction.
func (r *Repository) Save(ctx context.Context, snap models.Snapshot) error {
	const opn = "repository.sqlite.Save"

	// 1. begin transaction
	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: %w: failed to begin transaction: %w", opn, repository.ErrPersist, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit only returns sql.ErrTxDone.

	// 2. Mark that a snapshot exists.
	_, err = tx.ExecContext(
		ctx,
		"INSERT OR REPLACE INTO snapshot_state (id, saved_at) VALUES (1, ?)",
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%s: %w: failed to update snapshot state: %w", opn, repository.ErrPersist, err)
	}

	// 3. Completely clear the variants table: saves are full replace.
	if _, err = tx.ExecContext(ctx, "DELETE FROM variants"); err != nil {
		return fmt.Errorf("%s: %w: failed to delete old variants: %w", opn, repository.ErrPersist, err)
	}

	// 4. Insert the new snapshot.
	stmt, err := tx.PrepareContext(
		ctx,
		"INSERT INTO variants (key, product_id, variant_id, product, variant, available, price, url, sku) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("%s: %w: failed to prepare insert statement: %w", opn, repository.ErrPersist, err)
	}
	defer stmt.Close()

	for _, key := range snap.Keys() {
		rec := snap[key]
		if _, err = stmt.ExecContext(
			ctx, key, rec.ProductID, rec.VariantID, rec.ProductTitle, rec.VariantTitle,
			rec.Available, models.PriceString(rec.Price), rec.URL, rec.SKU,
		); err != nil {
			return fmt.Errorf("%s: %w: failed to insert variant %s: %w", opn, repository.ErrPersist, key, err)
		}
	}

	// 5. Confirm the transaction.
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w: failed to commit transaction: %w", opn, repository.ErrPersist, err)
	}

	return nil
}
