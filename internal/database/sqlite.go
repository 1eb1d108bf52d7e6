package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"

	"sari-go/internal/database/migrations"
	"sari-go/internal/inventory"
	"sari-go/internal/model"
)

// SQLiteDatabase implements the inventory.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteDatabase opens a SQLite database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sqlx.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite connection.
// Foreign keys and the busy timeout are set through the DSN so that every
// pooled connection gets them. The pool is limited to one connection: SQLite
// serializes writers anyway, and ":memory:" databases exist per connection.
func OpenConnection(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

type categoryRow struct {
	ID       int64         `db:"id"`
	Name     string        `db:"name"`
	ParentID sql.NullInt64 `db:"parent_id"`
}

func (r categoryRow) toModel() *model.Category {
	return &model.Category{ID: r.ID, Name: r.Name, Parent: model.ParentFromNull(r.ParentID)}
}

type productRow struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	CategoryID   int64           `db:"category_id"`
	CategoryName sql.NullString  `db:"category_name"`
	Quantity     int             `db:"quantity"`
	Price        decimal.Decimal `db:"price"`
	Image        sql.NullString  `db:"image"`
}

func (r productRow) toModel() *model.Product {
	return &model.Product{
		ID:           r.ID,
		Name:         r.Name,
		CategoryID:   r.CategoryID,
		CategoryName: r.CategoryName.String,
		Quantity:     r.Quantity,
		Price:        r.Price,
		Image:        r.Image.String,
	}
}

const selectProduct = `
	SELECT p.id, p.name, p.category_id, c.name AS category_name, p.quantity, p.price, p.image
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

// subtree selects a category and every category below it.
const subtree = `
	WITH RECURSIVE tree(id) AS (
		SELECT id FROM categories WHERE id = ?
		UNION ALL
		SELECT c.id FROM categories c JOIN tree t ON c.parent_id = t.id
	)`

// translateError maps SQLite constraint failures onto inventory errors.
func translateError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w (%v)", inventory.ErrDuplicate, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("referenced category %w (%v)", inventory.ErrNotFound, err)
	case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
		return inventory.NewValidationError("", err.Error())
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Category operations

func (s *SQLiteDatabase) CreateCategory(ctx context.Context, name string, parent model.Parent) (*model.Category, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if parentID, ok := parent.ID(); ok {
		if _, err := findCategory(ctx, tx, parentID); err != nil {
			return nil, fmt.Errorf("parent category: %w", err)
		}
	}

	var existing int64
	err = tx.GetContext(ctx, &existing,
		`SELECT id FROM categories WHERE name = ? AND IFNULL(parent_id, 0) = IFNULL(?, 0)`,
		name, parent.Null())
	if err == nil {
		return nil, fmt.Errorf("category %q: %w", name, inventory.ErrDuplicate)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checking for existing category: %w", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO categories (name, parent_id) VALUES (?, ?)`, name, parent.Null())
	if err != nil {
		return nil, fmt.Errorf("inserting category: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading category id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &model.Category{ID: id, Name: name, Parent: parent}, nil
}

func (s *SQLiteDatabase) FindCategory(ctx context.Context, id int64) (*model.Category, error) {
	return findCategory(ctx, s.db, id)
}

func findCategory(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Category, error) {
	var row categoryRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT id, name, parent_id FROM categories WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, inventory.ErrNotFound)
		}
		return nil, fmt.Errorf("finding category: %w", err)
	}
	return row.toModel(), nil
}

func (s *SQLiteDatabase) RenameCategory(ctx context.Context, id int64, name string) (*model.Category, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := findCategory(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	var sibling int64
	err = tx.GetContext(ctx, &sibling,
		`SELECT id FROM categories WHERE name = ? AND IFNULL(parent_id, 0) = IFNULL(?, 0) AND id != ?`,
		name, c.Parent.Null(), id)
	if err == nil {
		return nil, fmt.Errorf("category %q: %w", name, inventory.ErrDuplicate)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checking for sibling category: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id); err != nil {
		return nil, fmt.Errorf("renaming category: %w", translateError(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	c.Name = name
	return c, nil
}

func (s *SQLiteDatabase) DeleteCategory(ctx context.Context, id int64) ([]*model.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := findCategory(ctx, tx, id); err != nil {
		return nil, err
	}

	var rows []productRow
	err = tx.SelectContext(ctx, &rows,
		subtree+selectProduct+` WHERE p.category_id IN (SELECT id FROM tree) ORDER BY p.id`, id)
	if err != nil {
		return nil, fmt.Errorf("finding products to remove: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		subtree+` DELETE FROM products WHERE category_id IN (SELECT id FROM tree)`, id); err != nil {
		return nil, fmt.Errorf("deleting products: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		subtree+` DELETE FROM categories WHERE id IN (SELECT id FROM tree)`, id); err != nil {
		return nil, fmt.Errorf("deleting categories: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	removed := make([]*model.Product, len(rows))
	for i := range rows {
		removed[i] = rows[i].toModel()
	}
	return removed, nil
}

func (s *SQLiteDatabase) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, parent_id FROM categories ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	result := make([]*model.Category, len(rows))
	for i := range rows {
		result[i] = rows[i].toModel()
	}
	return result, nil
}

// Product operations

func (s *SQLiteDatabase) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, category_id, quantity, price, image) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.CategoryID, p.Quantity, p.Price, nullString(p.Image))
	if err != nil {
		return nil, fmt.Errorf("inserting product: %w", translateError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading product id: %w", err)
	}
	return findProduct(ctx, s.db, id)
}

func (s *SQLiteDatabase) FindProduct(ctx context.Context, id int64) (*model.Product, error) {
	return findProduct(ctx, s.db, id)
}

func findProduct(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Product, error) {
	var row productRow
	if err := sqlx.GetContext(ctx, q, &row, selectProduct+` WHERE p.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, inventory.ErrNotFound)
		}
		return nil, fmt.Errorf("finding product: %w", err)
	}
	return row.toModel(), nil
}

func (s *SQLiteDatabase) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, category_id = ?, quantity = ?, price = ?, image = COALESCE(?, image)
		WHERE id = ?`,
		p.Name, p.CategoryID, p.Quantity, p.Price, nullString(p.Image), p.ID)
	if err != nil {
		return nil, fmt.Errorf("updating product: %w", translateError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("product %d: %w", p.ID, inventory.ErrNotFound)
	}
	return findProduct(ctx, s.db, p.ID)
}

func (s *SQLiteDatabase) DecrementStock(ctx context.Context, id int64, amount int) (*model.Product, error) {
	if amount <= 0 {
		return nil, inventory.NewValidationError("qty", "amount must be positive")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`,
		amount, id, amount)
	if err != nil {
		return nil, fmt.Errorf("decrementing stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading rows affected: %w", err)
	}

	p, err := findProduct(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%d requested, %d on hand: %w", amount, p.Quantity, inventory.ErrInsufficientStock)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return p, nil
}

func (s *SQLiteDatabase) DeleteProduct(ctx context.Context, id int64) (*model.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := findProduct(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return p, nil
}

func (s *SQLiteDatabase) ListProducts(ctx context.Context) ([]*model.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, selectProduct+` ORDER BY p.id`); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	result := make([]*model.Product, len(rows))
	for i := range rows {
		result[i] = rows[i].toModel()
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies any pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db.DB)
}

// MigrationStatus reports the schema version relative to the binary.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.CurrentStatus(s.db.DB)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db.DB)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements inventory.Database interface
var _ inventory.Database = (*SQLiteDatabase)(nil)
