package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/store"
	"kadaipos/engine/internal/xid"
)

// Store implements store.Repository on an embedded sqlite database file.
// A single connection is used for all queries: sqlite serializes writers
// anyway, and one connection keeps the WAL pragmas applied everywhere.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL COLLATE NOCASE UNIQUE,
	role       TEXT NOT NULL,
	phone      TEXT UNIQUE,
	pin_hash   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	created_by TEXT
);

CREATE TABLE IF NOT EXISTS categories (
	id         TEXT PRIMARY KEY,
	name_en    TEXT NOT NULL,
	name_ta    TEXT,
	icon       TEXT,
	color      TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	product_code   TEXT COLLATE NOCASE UNIQUE,
	barcode        TEXT UNIQUE,
	name_en        TEXT NOT NULL,
	name_ta        TEXT,
	category_id    TEXT REFERENCES categories(id),
	price          REAL NOT NULL,
	tax_percentage REAL NOT NULL DEFAULT 0,
	tax_inclusive  INTEGER NOT NULL DEFAULT 0,
	unit           TEXT,
	stock          INTEGER NOT NULL DEFAULT 0,
	image_uri      TEXT,
	created_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_name_en ON products(name_en);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);

CREATE TABLE IF NOT EXISTS bills (
	id           TEXT PRIMARY KEY,
	items        TEXT NOT NULL,
	subtotal     REAL NOT NULL,
	tax_amount   REAL NOT NULL,
	round_off    REAL NOT NULL DEFAULT 0,
	grand_total  REAL NOT NULL,
	customer_id  TEXT,
	print_status TEXT NOT NULL DEFAULT 'not_printed',
	created_at   INTEGER NOT NULL,
	created_by   TEXT
);

CREATE INDEX IF NOT EXISTS idx_bills_created_at ON bills(created_at);

CREATE TABLE IF NOT EXISTS customers (
	id         TEXT PRIMARY KEY,
	name       TEXT,
	phone      TEXT NOT NULL UNIQUE,
	address    TEXT,
	notes      TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	id                  TEXT PRIMARY KEY,
	shop_name           TEXT NOT NULL,
	address_line        TEXT,
	phone               TEXT,
	tax_id              TEXT,
	currency_symbol     TEXT,
	admin_password_hash TEXT,
	setup_complete      INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL
);
`

// New opens (or creates) the database file at path and applies the schema.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

// nullIfEmpty keeps optional unique columns (barcode, product_code, phone)
// as NULL instead of colliding on the empty string.
func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func unixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

const productColumns = `id, product_code, barcode, name_en, name_ta, category_id,
	price, tax_percentage, tax_inclusive, unit, stock, image_uri, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p          domain.Product
		code       sql.NullString
		barcode    sql.NullString
		nameTA     sql.NullString
		categoryID sql.NullString
		unit       sql.NullString
		imageURI   sql.NullString
		createdAt  int64
	)
	err := row.Scan(&p.ID, &code, &barcode, &p.NameEN, &nameTA, &categoryID,
		&p.Price, &p.TaxPercentage, &p.TaxInclusive, &unit, &p.Stock, &imageURI, &createdAt)
	if err != nil {
		return nil, err
	}
	p.ProductCode = code.String
	p.Barcode = barcode.String
	p.NameTA = nameTA.String
	p.CategoryID = categoryID.String
	p.Unit = unit.String
	p.ImageURI = imageURI.String
	p.CreatedAt = fromUnixNano(createdAt)
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name_en COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	if code == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_code = ? COLLATE NOCASE`, code)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product by code: %w", err)
	}
	return p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	if barcode == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE barcode = ?`, barcode)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return p, nil
}

func validProduct(p domain.Product) error {
	if p.NameEN == "" || p.Price < 0 {
		return store.ErrInvalidInput
	}
	if p.TaxPercentage < 0 || p.TaxPercentage > 100 {
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validProduct(product); err != nil {
		return nil, err
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, product_code, barcode, name_en, name_ta, category_id,
			price, tax_percentage, tax_inclusive, unit, stock, image_uri, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, nullIfEmpty(product.ProductCode), nullIfEmpty(product.Barcode),
		product.NameEN, nullIfEmpty(product.NameTA), nullIfEmpty(product.CategoryID),
		product.Price, product.TaxPercentage, product.TaxInclusive,
		nullIfEmpty(product.Unit), product.Stock, nullIfEmpty(product.ImageURI),
		unixNano(product.CreatedAt))
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("%w: %v", store.ErrConstraint, err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validProduct(product); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET product_code = ?, barcode = ?, name_en = ?, name_ta = ?,
			category_id = ?, price = ?, tax_percentage = ?, tax_inclusive = ?,
			unit = ?, stock = ?, image_uri = ?
		 WHERE id = ?`,
		nullIfEmpty(product.ProductCode), nullIfEmpty(product.Barcode),
		product.NameEN, nullIfEmpty(product.NameTA), nullIfEmpty(product.CategoryID),
		product.Price, product.TaxPercentage, product.TaxInclusive,
		nullIfEmpty(product.Unit), product.Stock, nullIfEmpty(product.ImageURI),
		product.ID)
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("%w: %v", store.ErrConstraint, err)
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + ? WHERE id = ?`, delta, productID)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) BulkInsertProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (id, product_code, barcode, name_en, name_ta, category_id,
			price, tax_percentage, tax_inclusive, unit, stock, image_uri, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, product := range products {
		if err := validProduct(product); err != nil {
			return err
		}
		if product.ID == "" {
			product.ID = xid.New("prod")
		}
		if product.CreatedAt.IsZero() {
			product.CreatedAt = now
		}
		_, err := stmt.ExecContext(ctx,
			product.ID, nullIfEmpty(product.ProductCode), nullIfEmpty(product.Barcode),
			product.NameEN, nullIfEmpty(product.NameTA), nullIfEmpty(product.CategoryID),
			product.Price, product.TaxPercentage, product.TaxInclusive,
			nullIfEmpty(product.Unit), product.Stock, nullIfEmpty(product.ImageURI),
			unixNano(product.CreatedAt))
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrConstraint, err)
		}
		if err != nil {
			return fmt.Errorf("bulk insert product %s: %w", product.NameEN, err)
		}
	}
	return tx.Commit()
}

// SearchProducts returns a candidate set matching the query on code,
// barcode or either name. Ranking happens in the service layer so both
// repository implementations order results identically.
func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE product_code = ? COLLATE NOCASE
		    OR barcode = ?
		    OR product_code LIKE ? ESCAPE '\' COLLATE NOCASE
		    OR barcode LIKE ? ESCAPE '\'
		    OR name_en LIKE ? ESCAPE '\' COLLATE NOCASE
		    OR name_ta LIKE ? ESCAPE '\'
		 LIMIT 200`,
		query, query, pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name_en, name_ta, icon, color, created_at
		 FROM categories ORDER BY name_en COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var (
			c         domain.Category
			nameTA    sql.NullString
			icon      sql.NullString
			color     sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.NameEN, &nameTA, &icon, &color, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.NameTA = nameTA.String
		c.Icon = icon.String
		c.Color = color.String
		c.CreatedAt = fromUnixNano(createdAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.NameEN == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name_en, name_ta, icon, color, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		category.ID, category.NameEN, nullIfEmpty(category.NameTA),
		nullIfEmpty(category.Icon), nullIfEmpty(category.Color), unixNano(category.CreatedAt))
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("%w: %v", store.ErrConstraint, err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.NameEN == "" {
		return nil, store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name_en = ?, name_ta = ?, icon = ?, color = ? WHERE id = ?`,
		category.NameEN, nullIfEmpty(category.NameTA),
		nullIfEmpty(category.Icon), nullIfEmpty(category.Color), category.ID)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("count category products: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: category %s still has products", store.ErrConstraint, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %v", store.ErrConstraint, err)
	}
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	if len(bill.Items) == 0 {
		return nil, store.ErrEmptyCart
	}
	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	if bill.PrintStatus == "" {
		bill.PrintStatus = domain.PrintStatusNotPrinted
	}

	encoded, err := store.EncodeBillItems(bill.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create bill: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (id, items, subtotal, tax_amount, round_off, grand_total,
			customer_id, print_status, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, encoded, bill.Subtotal, bill.TaxAmount, bill.RoundOff, bill.GrandTotal,
		nullIfEmpty(bill.CustomerID), bill.PrintStatus, unixNano(bill.CreatedAt),
		nullIfEmpty(bill.CreatedBy))
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("%w: %v", store.ErrConstraint, err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert bill: %w", err)
	}

	if err := adjustStockTx(ctx, tx, bill.Items, -1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create bill: %w", err)
	}
	created := bill
	return &created, nil
}

// UpdateBill overwrites a bill's items and totals. An empty item list is
// legal here: it means every line was removed and all stock goes back.
func (s *Store) UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update bill: %w", err)
	}
	defer tx.Rollback()

	var (
		rawItems    []byte
		createdAt   int64
		createdBy   sql.NullString
		printStatus string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT items, created_at, created_by, print_status FROM bills WHERE id = ?`,
		bill.ID).Scan(&rawItems, &createdAt, &createdBy, &printStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bill for update: %w", err)
	}
	originalItems, err := store.DecodeBillItems(rawItems)
	if err != nil {
		return nil, err
	}

	// Revert the original quantities, then apply the new ones. Both run in
	// the same transaction as the row overwrite.
	if err := adjustStockTx(ctx, tx, originalItems, +1); err != nil {
		return nil, err
	}
	if err := adjustStockTx(ctx, tx, bill.Items, -1); err != nil {
		return nil, err
	}

	encoded, err := store.EncodeBillItems(bill.Items)
	if err != nil {
		return nil, err
	}
	bill.CreatedAt = fromUnixNano(createdAt)
	bill.CreatedBy = createdBy.String
	bill.PrintStatus = printStatus

	_, err = tx.ExecContext(ctx,
		`UPDATE bills SET items = ?, subtotal = ?, tax_amount = ?, round_off = ?,
			grand_total = ?, customer_id = ?
		 WHERE id = ?`,
		encoded, bill.Subtotal, bill.TaxAmount, bill.RoundOff, bill.GrandTotal,
		nullIfEmpty(bill.CustomerID), bill.ID)
	if err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update bill: %w", err)
	}
	updated := bill
	return &updated, nil
}

func adjustStockTx(ctx context.Context, tx *sql.Tx, items []domain.BillItem, sign int) error {
	for _, item := range items {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock + ? WHERE id = ?`,
			sign*item.Qty, item.ProductID)
		if err != nil {
			return fmt.Errorf("adjust stock for %s: %w", item.ProductID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
	}
	return nil
}

func scanBill(row rowScanner) (*domain.Bill, error) {
	var (
		b          domain.Bill
		rawItems   []byte
		customerID sql.NullString
		createdAt  int64
		createdBy  sql.NullString
	)
	err := row.Scan(&b.ID, &rawItems, &b.Subtotal, &b.TaxAmount, &b.RoundOff,
		&b.GrandTotal, &customerID, &b.PrintStatus, &createdAt, &createdBy)
	if err != nil {
		return nil, err
	}
	items, err := store.DecodeBillItems(rawItems)
	if err != nil {
		return nil, fmt.Errorf("bill %s: %w", b.ID, err)
	}
	b.Items = items
	b.CustomerID = customerID.String
	b.CreatedAt = fromUnixNano(createdAt)
	b.CreatedBy = createdBy.String
	return &b, nil
}

const billColumns = `id, items, subtotal, tax_amount, round_off, grand_total,
	customer_id, print_status, created_at, created_by`

func (s *Store) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

func (s *Store) ListBillsInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills
		 WHERE created_at >= ? AND created_at <= ?
		 ORDER BY created_at, id`,
		unixNano(from), unixNano(to))
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

func (s *Store) SetPrintStatus(ctx context.Context, billID string, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bills SET print_status = ? WHERE id = ?`, status, billID)
	if err != nil {
		return fmt.Errorf("set print status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Phone == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, phone, address, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		customer.ID, nullIfEmpty(customer.Name), customer.Phone,
		nullIfEmpty(customer.Address), nullIfEmpty(customer.Notes), unixNano(customer.CreatedAt))
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("%w: %v", store.ErrConstraint, err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone, address, notes, created_at
		 FROM customers ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var (
		c         domain.Customer
		name      sql.NullString
		address   sql.NullString
		notes     sql.NullString
		createdAt int64
	)
	if err := row.Scan(&c.ID, &name, &c.Phone, &address, &notes, &createdAt); err != nil {
		return nil, err
	}
	c.Name = name.String
	c.Address = address.String
	c.Notes = notes.String
	c.CreatedAt = fromUnixNano(createdAt)
	return &c, nil
}

func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	if phone == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, address, notes, created_at FROM customers WHERE phone = ?`, phone)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by phone: %w", err)
	}
	return c, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.Username == "" {
		return nil, store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, role, phone, pin_hash, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Role, nullIfEmpty(user.Phone),
		user.PINHash, unixNano(user.CreatedAt), nullIfEmpty(user.CreatedBy))
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("%w: %v", store.ErrConstraint, err)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created := user
	return &created, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, role, phone, pin_hash, created_at, created_by
		 FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		phone     sql.NullString
		createdAt int64
		createdBy sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Role, &phone, &u.PINHash, &createdAt, &createdBy); err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.CreatedAt = fromUnixNano(createdAt)
	u.CreatedBy = createdBy.String
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, role, phone, pin_hash, created_at, created_by
		 FROM users WHERE username = ? COLLATE NOCASE`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if phone == "" {
		return nil, store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, role, phone, pin_hash, created_at, created_by
		 FROM users WHERE phone = ?`, phone)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	var role string
	err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load user for delete: %w", err)
	}

	if role == domain.RoleSuperAdmin {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE role = ?`, domain.RoleSuperAdmin).Scan(&count); err != nil {
			return fmt.Errorf("count super admins: %w", err)
		}
		if count <= 1 {
			return fmt.Errorf("%w: cannot delete the last super_admin", store.ErrConstraint)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return tx.Commit()
}

func (s *Store) CountUsersByRole(ctx context.Context, role string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *Store) GetSettings(ctx context.Context) (*domain.ShopSettings, error) {
	var (
		st            domain.ShopSettings
		addressLine   sql.NullString
		phone         sql.NullString
		taxID         sql.NullString
		currency      sql.NullString
		adminPassword sql.NullString
		createdAt     int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, shop_name, address_line, phone, tax_id, currency_symbol,
			admin_password_hash, setup_complete, created_at
		 FROM settings WHERE id = ?`, domain.SettingsID).
		Scan(&st.ID, &st.ShopName, &addressLine, &phone, &taxID, &currency,
			&adminPassword, &st.SetupComplete, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	st.AddressLine = addressLine.String
	st.Phone = phone.String
	st.TaxID = taxID.String
	st.CurrencySymbol = currency.String
	st.AdminPasswordHash = adminPassword.String
	st.CreatedAt = fromUnixNano(createdAt)
	return &st, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.ShopSettings) error {
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, shop_name, address_line, phone, tax_id,
			currency_symbol, admin_password_hash, setup_complete, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			shop_name = excluded.shop_name,
			address_line = excluded.address_line,
			phone = excluded.phone,
			tax_id = excluded.tax_id,
			currency_symbol = excluded.currency_symbol,
			admin_password_hash = excluded.admin_password_hash,
			setup_complete = excluded.setup_complete`,
		domain.SettingsID, settings.ShopName, nullIfEmpty(settings.AddressLine),
		nullIfEmpty(settings.Phone), nullIfEmpty(settings.TaxID),
		nullIfEmpty(settings.CurrencySymbol), nullIfEmpty(settings.AdminPasswordHash),
		settings.SetupComplete, unixNano(settings.CreatedAt))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) ResetTransactionalData(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bills`); err != nil {
		return fmt.Errorf("reset bills: %w", err)
	}
	return nil
}

// ResetAll wipes everything except settings and super_admin accounts.
func (s *Store) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM bills`,
		`DELETE FROM customers`,
		`DELETE FROM products`,
		`DELETE FROM categories`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM users WHERE role != ?`, domain.RoleSuperAdmin); err != nil {
		return fmt.Errorf("reset users: %w", err)
	}
	return tx.Commit()
}
