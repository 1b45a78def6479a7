package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/isakhq/marketplace/internal/core/domain"
	"github.com/isakhq/marketplace/internal/port"
)

var _ port.Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 0),
    price INTEGER NOT NULL,
    category TEXT NOT NULL,
    expiration_date INTEGER,
    description TEXT NOT NULL DEFAULT '',
    asset_ref TEXT NOT NULL,
    published_at INTEGER NOT NULL,
    owner_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger (
    id TEXT PRIMARY KEY,
    seller_id TEXT NOT NULL,
    buyer_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 1),
    buyer_message TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (item_id) REFERENCES items(id)
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_ledger_buyer ON ledger(buyer_id);
CREATE INDEX IF NOT EXISTS idx_ledger_seller ON ledger(seller_id);
CREATE INDEX IF NOT EXISTS idx_ledger_item ON ledger(item_id);
`

// SQLiteStore implements port.Store on an embedded SQLite database. It is
// the default backend: zero external services, good enough for a single
// instance, and the busy-timeout pragma turns writer contention into
// bounded waits instead of immediate failures.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// the schema migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateItem(ctx context.Context, item *domain.CatalogItem) error {
	var expiration sql.NullInt64
	if item.ExpirationDate != nil {
		expiration = sql.NullInt64{Int64: item.ExpirationDate.Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, quantity, price, category, expiration_date,
		                   description, asset_ref, published_at, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Quantity, item.Price, string(item.Category),
		expiration, item.Description, item.AssetRef, item.PublishedAt.Unix(), item.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items WHERE id = ?`, id)
	return scanItem(row)
}

func (s *SQLiteStore) ListItems(ctx context.Context) ([]domain.CatalogItem, error) {
	return s.queryItems(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items ORDER BY published_at, id`)
}

func (s *SQLiteStore) ItemsByOwner(ctx context.Context, ownerID string) ([]domain.CatalogItem, error) {
	return s.queryItems(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items WHERE owner_id = ? ORDER BY published_at, id`, ownerID)
}

// CommitPurchase performs the atomic purchase unit: a conditional quantity
// decrement guarded by the current value, plus the ledger append, in one
// transaction. The guard, not any caller-side read, is what makes
// concurrent purchases of the same item safe.
func (s *SQLiteStore) CommitPurchase(ctx context.Context, entry *domain.LedgerEntry) (*domain.CatalogItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapSQLiteErr("begin tx", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE items SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?`,
		entry.Quantity, entry.ItemID, entry.Quantity,
	)
	if err != nil {
		return nil, wrapSQLiteErr("decrement quantity", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a missing item from insufficient stock.
		var have int
		err := tx.QueryRowContext(ctx, `SELECT quantity FROM items WHERE id = ?`, entry.ItemID).Scan(&have)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		if err != nil {
			return nil, wrapSQLiteErr("check quantity", err)
		}
		return nil, domain.ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger (id, seller_id, buyer_id, item_id, quantity, buyer_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SellerID, entry.BuyerID, entry.ItemID,
		entry.Quantity, entry.BuyerMessage, entry.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, wrapSQLiteErr("append ledger entry", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items WHERE id = ?`, entry.ItemID)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapSQLiteErr("commit tx", err)
	}
	return item, nil
}

func (s *SQLiteStore) EntriesByPrincipal(ctx context.Context, principalID string) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller_id, buyer_id, item_id, quantity, buyer_message, created_at
		FROM ledger
		WHERE buyer_id = ? OR seller_id = ?
		ORDER BY created_at DESC, id`,
		principalID, principalID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SellerID, &e.BuyerID, &e.ItemID,
			&e.Quantity, &e.BuyerMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) queryItems(ctx context.Context, query string, args ...any) ([]domain.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.CatalogItem, error) {
	var (
		item        domain.CatalogItem
		category    string
		expiration  sql.NullInt64
		publishedAt int64
	)
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Price, &category,
		&expiration, &item.Description, &item.AssetRef, &publishedAt, &item.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}

	item.Category = domain.Category(category)
	item.PublishedAt = time.Unix(publishedAt, 0).UTC()
	if expiration.Valid {
		t := time.Unix(expiration.Int64, 0).UTC()
		item.ExpirationDate = &t
	}
	return &item, nil
}

// wrapSQLiteErr maps writer contention (SQLITE_BUSY / SQLITE_LOCKED) onto
// the retryable conflict sentinel; everything else is wrapped as-is.
func wrapSQLiteErr(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
