package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/pkg/uid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteCatalogueRepository implements CatalogueRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteCatalogueRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteCatalogueRepository creates a new SQLite catalogue repository.
// dbPath is the path to the SQLite database file (e.g., "./data/catalogue.db")
func NewSQLiteCatalogueRepository(dbPath string) (*SQLiteCatalogueRepository, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteCatalogueRepository] Initialized with database: %s", dbPath)
	return &SQLiteCatalogueRepository{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS offers (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		price INTEGER NOT NULL,
		items_in_stock INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		closed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_offers_product ON offers(product_id);
	CREATE INDEX IF NOT EXISTS idx_offers_closed_at ON offers(closed_at);
	CREATE TABLE IF NOT EXISTS offer_credentials (
		refresh_token TEXT PRIMARY KEY,
		access_token TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		access_token TEXT NOT NULL UNIQUE
	);
	CREATE INDEX IF NOT EXISTS idx_users_token ON users(access_token);
	`
	_, err := db.Exec(query)
	return err
}

// CreateProduct inserts the product and runs register inside one transaction.
func (r *SQLiteCatalogueRepository) CreateProduct(ctx context.Context, p *model.Product, register func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO products (id, name, description) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, p.ID, p.Name, p.Description); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if register != nil {
		if err := register(ctx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by id.
func (r *SQLiteCatalogueRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT id, name, description FROM products WHERE id = ?`

	var p model.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// ListProducts returns all products.
func (r *SQLiteCatalogueRepository) ListProducts(ctx context.Context) ([]*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM products`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

// UpdateProduct fully replaces name and description by id.
func (r *SQLiteCatalogueRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ? WHERE id = ?`,
		p.Name, p.Description, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes the product and all of its offers.
func (r *SQLiteCatalogueRepository) DeleteProduct(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM offers WHERE product_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete offers: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ListOpenSellableOffers returns open offers with stock left for one product.
func (r *SQLiteCatalogueRepository) ListOpenSellableOffers(ctx context.Context, productID string) ([]*model.Offer, error) {
	query := `
		SELECT id, product_id, price, items_in_stock, created_at, closed_at
		FROM offers
		WHERE product_id = ? AND items_in_stock > 0 AND closed_at IS NULL`
	return r.queryOffers(ctx, query, productID)
}

// ListOpenOffers returns open offers regardless of stock.
func (r *SQLiteCatalogueRepository) ListOpenOffers(ctx context.Context, productID string) ([]*model.Offer, error) {
	query := `
		SELECT id, product_id, price, items_in_stock, created_at, closed_at
		FROM offers
		WHERE product_id = ? AND closed_at IS NULL`
	return r.queryOffers(ctx, query, productID)
}

// ListOffersActiveAt returns offers active within the [dayStart, dayEnd) window.
func (r *SQLiteCatalogueRepository) ListOffersActiveAt(ctx context.Context, productID string, dayStart, dayEnd time.Time) ([]*model.Offer, error) {
	query := `
		SELECT id, product_id, price, items_in_stock, created_at, closed_at
		FROM offers
		WHERE product_id = ? AND created_at < ? AND (closed_at IS NULL OR closed_at > ?)`
	return r.queryOffers(ctx, query, productID, dayEnd, dayStart)
}

func (r *SQLiteCatalogueRepository) queryOffers(ctx context.Context, query string, args ...interface{}) ([]*model.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var offers []*model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func scanOffer(rows *sql.Rows) (*model.Offer, error) {
	var o model.Offer
	var closedAt sql.NullTime
	if err := rows.Scan(&o.ID, &o.ProductID, &o.Price, &o.ItemsInStock, &o.CreatedAt, &closedAt); err != nil {
		return nil, fmt.Errorf("failed to scan offer: %w", err)
	}
	if closedAt.Valid {
		t := closedAt.Time
		o.ClosedAt = &t
	}
	return &o, nil
}

// UpsertOffer creates or fully updates an offer by id.
func (r *SQLiteCatalogueRepository) UpsertOffer(ctx context.Context, o *model.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closedAt sql.NullTime
	if o.ClosedAt != nil {
		closedAt = sql.NullTime{Time: *o.ClosedAt, Valid: true}
	}

	query := `
		INSERT INTO offers (id, product_id, price, items_in_stock, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			price = excluded.price,
			items_in_stock = excluded.items_in_stock,
			closed_at = excluded.closed_at`

	_, err := r.db.ExecContext(ctx, query, o.ID, o.ProductID, o.Price, o.ItemsInStock, o.CreatedAt, closedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert offer: %w", err)
	}
	return nil
}

// GetOrCreateCredentials loads the credentials row, creating it lazily.
func (r *SQLiteCatalogueRepository) GetOrCreateCredentials(ctx context.Context, refreshToken string) (*model.OfferCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	insert := `INSERT INTO offer_credentials (refresh_token, access_token, updated_at)
		VALUES (?, '', ?) ON CONFLICT(refresh_token) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, refreshToken, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to create credentials: %w", err)
	}

	var c model.OfferCredentials
	query := `SELECT refresh_token, access_token, updated_at FROM offer_credentials WHERE refresh_token = ?`
	if err := r.db.QueryRowContext(ctx, query, refreshToken).Scan(&c.RefreshToken, &c.AccessToken, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &c, nil
}

// SaveCredentials updates access_token and updated_at in place.
func (r *SQLiteCatalogueRepository) SaveCredentials(ctx context.Context, c *model.OfferCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`UPDATE offer_credentials SET access_token = ?, updated_at = ? WHERE refresh_token = ?`,
		c.AccessToken, c.UpdatedAt, c.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// GetOrCreateUser returns the user for the email, creating one if absent.
func (r *SQLiteCatalogueRepository) GetOrCreateUser(ctx context.Context, email string) (*model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, access_token) VALUES (?, ?) ON CONFLICT(email) DO NOTHING`,
		email, uid.New())
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	inserted, _ := res.RowsAffected()

	var u model.User
	err = r.db.QueryRowContext(ctx, `SELECT email, access_token FROM users WHERE email = ?`, email).
		Scan(&u.Email, &u.AccessToken)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, inserted > 0, nil
}

// GetUserByToken finds a user by access token.
func (r *SQLiteCatalogueRepository) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var u model.User
	err := r.db.QueryRowContext(ctx, `SELECT email, access_token FROM users WHERE access_token = ?`, token).
		Scan(&u.Email, &u.AccessToken)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return &u, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteCatalogueRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLiteCatalogueRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteCatalogueRepository implements CatalogueRepository
var _ CatalogueRepository = (*SQLiteCatalogueRepository)(nil)
