package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/isakhq/marketplace/internal/core/domain"
	"github.com/isakhq/marketplace/internal/port"
)

var _ port.Store = (*MySQLStore)(nil)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS items (
    id VARCHAR(36) PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    quantity INT NOT NULL,
    price INT NOT NULL,
    category VARCHAR(16) NOT NULL,
    expiration_date DATETIME NULL,
    description VARCHAR(200) NOT NULL DEFAULT '',
    asset_ref VARCHAR(255) NOT NULL,
    published_at DATETIME NOT NULL,
    owner_id VARCHAR(64) NOT NULL,
    INDEX idx_items_owner (owner_id)
)`

const mysqlLedgerSchema = `
CREATE TABLE IF NOT EXISTS ledger (
    id VARCHAR(36) PRIMARY KEY,
    seller_id VARCHAR(64) NOT NULL,
    buyer_id VARCHAR(64) NOT NULL,
    item_id VARCHAR(36) NOT NULL,
    quantity INT NOT NULL,
    buyer_message VARCHAR(255) NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    INDEX idx_ledger_buyer (buyer_id),
    INDEX idx_ledger_seller (seller_id),
    INDEX idx_ledger_item (item_id)
)`

// MySQLStore implements port.Store against MySQL, the production backend.
// The DSN must carry parseTime=true so DATETIME columns scan into
// time.Time.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore wraps an open connection pool and ensures the schema.
func NewMySQLStore(db *sql.DB) (*MySQLStore, error) {
	for _, stmt := range []string{mysqlSchema, mysqlLedgerSchema} {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) CreateItem(ctx context.Context, item *domain.CatalogItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, quantity, price, category, expiration_date,
		                   description, asset_ref, published_at, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Quantity, item.Price, string(item.Category),
		timeToNull(item.ExpirationDate), item.Description, item.AssetRef, item.PublishedAt, item.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items WHERE id = ?`, id)
	return scanMySQLItem(row)
}

func (s *MySQLStore) ListItems(ctx context.Context) ([]domain.CatalogItem, error) {
	return s.queryItems(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items ORDER BY published_at, id`)
}

func (s *MySQLStore) ItemsByOwner(ctx context.Context, ownerID string) ([]domain.CatalogItem, error) {
	return s.queryItems(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items WHERE owner_id = ? ORDER BY published_at, id`, ownerID)
}

// CommitPurchase mirrors the SQLite implementation: conditional decrement
// plus ledger append in one transaction. InnoDB row locks serialize
// concurrent commits on the same item; deadlocks and lock-wait timeouts
// surface as the retryable conflict sentinel.
func (s *MySQLStore) CommitPurchase(ctx context.Context, entry *domain.LedgerEntry) (*domain.CatalogItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapMySQLErr("begin tx", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE items SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?`,
		entry.Quantity, entry.ItemID, entry.Quantity,
	)
	if err != nil {
		return nil, wrapMySQLErr("decrement quantity", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var have int
		err := tx.QueryRowContext(ctx, `SELECT quantity FROM items WHERE id = ?`, entry.ItemID).Scan(&have)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		if err != nil {
			return nil, wrapMySQLErr("check quantity", err)
		}
		return nil, domain.ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger (id, seller_id, buyer_id, item_id, quantity, buyer_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SellerID, entry.BuyerID, entry.ItemID,
		entry.Quantity, entry.BuyerMessage, entry.CreatedAt,
	)
	if err != nil {
		return nil, wrapMySQLErr("append ledger entry", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, quantity, price, category, expiration_date,
		       description, asset_ref, published_at, owner_id
		FROM items WHERE id = ?`, entry.ItemID)
	item, err := scanMySQLItem(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapMySQLErr("commit tx", err)
	}
	return item, nil
}

func (s *MySQLStore) EntriesByPrincipal(ctx context.Context, principalID string) ([]domain.LedgerEntry, error) {
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
		if err := rows.Scan(&e.ID, &e.SellerID, &e.BuyerID, &e.ItemID,
			&e.Quantity, &e.BuyerMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return entries, nil
}

func (s *MySQLStore) queryItems(ctx context.Context, query string, args ...any) ([]domain.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		item, err := scanMySQLItem(rows)
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

func scanMySQLItem(row rowScanner) (*domain.CatalogItem, error) {
	var (
		item       domain.CatalogItem
		category   string
		expiration sql.NullTime
	)
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Price, &category,
		&expiration, &item.Description, &item.AssetRef, &item.PublishedAt, &item.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}

	item.Category = domain.Category(category)
	if expiration.Valid {
		t := expiration.Time.UTC()
		item.ExpirationDate = &t
	}
	return &item, nil
}

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

func wrapMySQLErr(op string, err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// timeToNull keeps NULL expiration handling symmetric with the SQLite
// adapter when a caller passes a zero time by mistake.
func timeToNull(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
