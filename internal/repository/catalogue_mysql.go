package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"offerhub-catalogue-api/internal/model"
	"offerhub-catalogue-api/pkg/uid"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLCatalogueRepository implements CatalogueRepository using MySQL.
type MySQLCatalogueRepository struct {
	db *sql.DB
}

// NewMySQLCatalogueRepository creates a new MySQL catalogue repository.
// The DSN must include parseTime=true so DATETIME columns scan into time.Time.
func NewMySQLCatalogueRepository(dsn string) (*MySQLCatalogueRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLCatalogueRepository] Initialized")
	return &MySQLCatalogueRepository{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS offers (
			id VARCHAR(36) PRIMARY KEY,
			product_id VARCHAR(36) NOT NULL,
			price BIGINT NOT NULL,
			items_in_stock BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			closed_at DATETIME(6) NULL,
			INDEX idx_offers_product (product_id),
			INDEX idx_offers_closed_at (closed_at)
		)`,
		`CREATE TABLE IF NOT EXISTS offer_credentials (
			refresh_token VARCHAR(255) PRIMARY KEY,
			access_token VARCHAR(255) NOT NULL DEFAULT '',
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			email VARCHAR(255) PRIMARY KEY,
			access_token VARCHAR(36) NOT NULL UNIQUE
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateProduct inserts the product and runs register inside one transaction.
func (r *MySQLCatalogueRepository) CreateProduct(ctx context.Context, p *model.Product, register func(ctx context.Context) error) error {
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
func (r *MySQLCatalogueRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// ListProducts returns all products.
func (r *MySQLCatalogueRepository) ListProducts(ctx context.Context) ([]*model.Product, error) {
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
func (r *MySQLCatalogueRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
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
func (r *MySQLCatalogueRepository) DeleteProduct(ctx context.Context, id string) error {
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
func (r *MySQLCatalogueRepository) ListOpenSellableOffers(ctx context.Context, productID string) ([]*model.Offer, error) {
	query := `
		SELECT id, product_id, price, items_in_stock, created_at, closed_at
		FROM offers
		WHERE product_id = ? AND items_in_stock > 0 AND closed_at IS NULL`
	return r.queryOffers(ctx, query, productID)
}

// ListOpenOffers returns open offers regardless of stock.
func (r *MySQLCatalogueRepository) ListOpenOffers(ctx context.Context, productID string) ([]*model.Offer, error) {
	query := `
		SELECT id, product_id, price, items_in_stock, created_at, closed_at
		FROM offers
		WHERE product_id = ? AND closed_at IS NULL`
	return r.queryOffers(ctx, query, productID)
}

// ListOffersActiveAt returns offers active within the [dayStart, dayEnd) window.
func (r *MySQLCatalogueRepository) ListOffersActiveAt(ctx context.Context, productID string, dayStart, dayEnd time.Time) ([]*model.Offer, error) {
	query := `
		SELECT id, product_id, price, items_in_stock, created_at, closed_at
		FROM offers
		WHERE product_id = ? AND created_at < ? AND (closed_at IS NULL OR closed_at > ?)`
	return r.queryOffers(ctx, query, productID, dayEnd, dayStart)
}

func (r *MySQLCatalogueRepository) queryOffers(ctx context.Context, query string, args ...interface{}) ([]*model.Offer, error) {
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

// UpsertOffer creates or fully updates an offer by id.
func (r *MySQLCatalogueRepository) UpsertOffer(ctx context.Context, o *model.Offer) error {
	var closedAt sql.NullTime
	if o.ClosedAt != nil {
		closedAt = sql.NullTime{Time: *o.ClosedAt, Valid: true}
	}

	query := `
		INSERT INTO offers (id, product_id, price, items_in_stock, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			price = VALUES(price),
			items_in_stock = VALUES(items_in_stock),
			closed_at = VALUES(closed_at)`

	_, err := r.db.ExecContext(ctx, query, o.ID, o.ProductID, o.Price, o.ItemsInStock, o.CreatedAt, closedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert offer: %w", err)
	}
	return nil
}

// GetOrCreateCredentials loads the credentials row, creating it lazily.
func (r *MySQLCatalogueRepository) GetOrCreateCredentials(ctx context.Context, refreshToken string) (*model.OfferCredentials, error) {
	insert := `INSERT IGNORE INTO offer_credentials (refresh_token, access_token, updated_at) VALUES (?, '', ?)`
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
func (r *MySQLCatalogueRepository) SaveCredentials(ctx context.Context, c *model.OfferCredentials) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE offer_credentials SET access_token = ?, updated_at = ? WHERE refresh_token = ?`,
		c.AccessToken, c.UpdatedAt, c.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// GetOrCreateUser returns the user for the email, creating one if absent.
func (r *MySQLCatalogueRepository) GetOrCreateUser(ctx context.Context, email string) (*model.User, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO users (email, access_token) VALUES (?, ?)`,
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
func (r *MySQLCatalogueRepository) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
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
func (r *MySQLCatalogueRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *MySQLCatalogueRepository) Close() error {
	return r.db.Close()
}

// Ensure MySQLCatalogueRepository implements CatalogueRepository
var _ CatalogueRepository = (*MySQLCatalogueRepository)(nil)
