package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kadaipos/engine/internal/cache"
	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/search"
	"kadaipos/engine/internal/store"
	"kadaipos/engine/internal/tax"
	"kadaipos/engine/internal/xid"
)

// ErrForbidden is returned when the acting user's role does not allow the
// requested operation.
var ErrForbidden = errors.New("forbidden")

const (
	defaultSearchLimit     = 50
	maxSearchLimit         = 200
	defaultLowStockLevel   = 10
	maxBulkImportBatch     = 1000
	minPINLength           = 4
	adminPasswordMinLength = 6
	defaultCurrencySymbol  = "₹"
)

type actorKey struct{}

// WithActor attaches the authenticated actor to the context. The HTTP
// layer does this after token verification.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// Service owns all billing, catalog and reporting rules. Handlers stay
// thin; everything the engine guarantees is enforced here or in the store.
type Service struct {
	repo          store.Repository
	products      cache.ProductCache
	lowStockLevel int
}

func New(repo store.Repository, products cache.ProductCache, lowStockLevel int) *Service {
	if products == nil {
		products = cache.NewNoopProductCache()
	}
	if lowStockLevel < 1 {
		lowStockLevel = defaultLowStockLevel
	}
	return &Service{repo: repo, products: products, lowStockLevel: lowStockLevel}
}

func (s *Service) requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrForbidden
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, fmt.Errorf("%w: role %s", ErrForbidden, actor.Role)
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	return s.requireRole(ctx, domain.RoleSuperAdmin, domain.RoleAdmin)
}

// --- catalog ---

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	return s.repo.GetProductByCode(ctx, strings.TrimSpace(code))
}

// GetProductByBarcode is the scanner path. It consults the cache first and
// falls back to the store; a found product is cached for the next scan.
func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, nil
	}
	if p, ok := s.products.Get(ctx, barcode); ok {
		return p, nil
	}
	p, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil || p == nil {
		return p, err
	}
	s.products.Set(ctx, barcode, *p)
	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.NameEN) == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	if req.Price < 0 || req.InitialStock < 0 {
		return nil, fmt.Errorf("%w: price and stock must not be negative", store.ErrInvalidInput)
	}

	product := domain.Product{
		ProductCode:   strings.TrimSpace(req.ProductCode),
		Barcode:       strings.TrimSpace(req.Barcode),
		NameEN:        strings.TrimSpace(req.NameEN),
		NameTA:        strings.TrimSpace(req.NameTA),
		CategoryID:    req.CategoryID,
		Price:         tax.Round2(req.Price),
		TaxPercentage: req.TaxPercentage,
		TaxInclusive:  req.TaxInclusive,
		Unit:          req.Unit,
		Stock:         req.InitialStock,
		ImageURI:      req.ImageURI,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	log.Printf("[service] created product %s (%s)", created.ID, created.NameEN)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	oldBarcode := existing.Barcode

	applyProductUpdate(existing, req)
	if existing.Price < 0 || existing.NameEN == "" {
		return nil, store.ErrInvalidInput
	}
	existing.Price = tax.Round2(existing.Price)

	updated, err := s.repo.UpdateProduct(ctx, *existing)
	if err != nil {
		return nil, err
	}
	s.products.Invalidate(ctx, oldBarcode)
	if updated.Barcode != oldBarcode {
		s.products.Invalidate(ctx, updated.Barcode)
	}
	return updated, nil
}

func applyProductUpdate(p *domain.Product, req domain.ProductUpdateRequest) {
	if req.ProductCode != nil {
		p.ProductCode = strings.TrimSpace(*req.ProductCode)
	}
	if req.Barcode != nil {
		p.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.NameEN != nil {
		p.NameEN = strings.TrimSpace(*req.NameEN)
	}
	if req.NameTA != nil {
		p.NameTA = strings.TrimSpace(*req.NameTA)
	}
	if req.CategoryID != nil {
		p.CategoryID = *req.CategoryID
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.TaxPercentage != nil {
		p.TaxPercentage = *req.TaxPercentage
	}
	if req.TaxInclusive != nil {
		p.TaxInclusive = *req.TaxInclusive
	}
	if req.Unit != nil {
		p.Unit = *req.Unit
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.ImageURI != nil {
		p.ImageURI = *req.ImageURI
	}
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.products.Invalidate(ctx, existing.Barcode)
	log.Printf("[service] deleted product %s", id)
	return nil
}

// BulkImportProducts inserts a batch in one shot; a bad row rejects the
// whole batch so a half-imported price list never reaches the register.
func (s *Service) BulkImportProducts(ctx context.Context, reqs []domain.ProductCreateRequest) (int, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return 0, err
	}
	if len(reqs) == 0 {
		return 0, fmt.Errorf("%w: empty batch", store.ErrInvalidInput)
	}
	if len(reqs) > maxBulkImportBatch {
		return 0, fmt.Errorf("%w: batch exceeds %d rows", store.ErrInvalidInput, maxBulkImportBatch)
	}

	products := make([]domain.Product, 0, len(reqs))
	for i, req := range reqs {
		if strings.TrimSpace(req.NameEN) == "" {
			return 0, fmt.Errorf("%w: row %d has no name", store.ErrInvalidInput, i)
		}
		if req.Price < 0 || req.InitialStock < 0 {
			return 0, fmt.Errorf("%w: row %d has negative price or stock", store.ErrInvalidInput, i)
		}
		products = append(products, domain.Product{
			ProductCode:   strings.TrimSpace(req.ProductCode),
			Barcode:       strings.TrimSpace(req.Barcode),
			NameEN:        strings.TrimSpace(req.NameEN),
			NameTA:        strings.TrimSpace(req.NameTA),
			CategoryID:    req.CategoryID,
			Price:         tax.Round2(req.Price),
			TaxPercentage: req.TaxPercentage,
			TaxInclusive:  req.TaxInclusive,
			Unit:          req.Unit,
			Stock:         req.InitialStock,
			ImageURI:      req.ImageURI,
		})
	}
	if err := s.repo.BulkInsertProducts(ctx, products); err != nil {
		return 0, err
	}
	log.Printf("[service] bulk imported %d products", len(products))
	return len(products), nil
}

// SearchProducts ranks store candidates by match quality: exact code,
// exact barcode, name prefix, then substring, alphabetical within a tier.
func (s *Service) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit < 1 {
		limit = defaultSearchLimit
	} else if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	candidates, err := s.repo.SearchProducts(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	ranked := search.Rank(candidates, query)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// --- categories ---

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (*domain.Category, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.NameEN) == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	return s.repo.CreateCategory(ctx, domain.Category{
		NameEN: strings.TrimSpace(req.NameEN),
		NameTA: strings.TrimSpace(req.NameTA),
		Icon:   req.Icon,
		Color:  req.Color,
	})
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (*domain.Category, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	var existing *domain.Category
	for i := range categories {
		if categories[i].ID == id {
			existing = &categories[i]
			break
		}
	}
	if existing == nil {
		return nil, store.ErrNotFound
	}
	if req.NameEN != nil {
		existing.NameEN = strings.TrimSpace(*req.NameEN)
	}
	if req.NameTA != nil {
		existing.NameTA = strings.TrimSpace(*req.NameTA)
	}
	if req.Icon != nil {
		existing.Icon = *req.Icon
	}
	if req.Color != nil {
		existing.Color = *req.Color
	}
	return s.repo.UpdateCategory(ctx, *existing)
}

// DeleteCategory refuses while products still reference the category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteCategory(ctx, id)
}

// --- billing ---

// CreateBill turns a cart into a persisted bill. Product pricing is
// snapshotted into the line items, totals are computed from the snapshot,
// and stock decrements commit atomically with the bill row.
func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (*domain.Bill, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, ErrForbidden
	}
	items, err := s.snapshotItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	bill := domain.Bill{
		ID:          xid.New("bill"),
		Items:       items,
		CustomerID:  req.CustomerID,
		PrintStatus: domain.PrintStatusNotPrinted,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   actor.UserID,
	}
	if err := s.fillTotals(&bill); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return nil, err
	}
	log.Printf("[service] bill %s: %d items, total %.2f", created.ID, len(created.Items), created.GrandTotal)
	return created, nil
}

// UpdateBill replaces the line items of an existing bill. The store
// reverts the original quantities and applies the new ones in the same
// transaction, so net stock movement always matches the final bill. An
// empty cart is allowed on update: it zeroes the bill and returns all
// stock.
func (s *Service) UpdateBill(ctx context.Context, id string, req domain.BillUpdateRequest) (*domain.Bill, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	items := []domain.BillItem{}
	if len(req.Items) > 0 {
		var err error
		items, err = s.snapshotItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
	}

	bill := domain.Bill{
		ID:         id,
		Items:      items,
		CustomerID: req.CustomerID,
	}
	if err := s.fillTotals(&bill); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateBill(ctx, bill)
	if err != nil {
		return nil, err
	}
	log.Printf("[service] bill %s corrected, new total %.2f", updated.ID, updated.GrandTotal)
	return updated, nil
}

// snapshotItems resolves cart lines against the current catalog, freezing
// price and tax fields per line. Duplicate product lines are merged.
func (s *Service) snapshotItems(ctx context.Context, cart []domain.CartItem) ([]domain.BillItem, error) {
	if len(cart) == 0 {
		return nil, store.ErrEmptyCart
	}

	merged := make([]domain.CartItem, 0, len(cart))
	index := make(map[string]int, len(cart))
	for _, line := range cart {
		if line.ProductID == "" || line.Qty < 1 {
			return nil, fmt.Errorf("%w: each line needs a product and a positive quantity", store.ErrInvalidInput)
		}
		if i, seen := index[line.ProductID]; seen {
			merged[i].Qty += line.Qty
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	items := make([]domain.BillItem, 0, len(merged))
	for _, line := range merged {
		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
			}
			return nil, err
		}
		items = append(items, domain.BillItem{
			ProductID:     product.ID,
			NameEN:        product.NameEN,
			NameTA:        product.NameTA,
			Price:         product.Price,
			TaxPercentage: product.TaxPercentage,
			TaxInclusive:  product.TaxInclusive,
			Unit:          product.Unit,
			Qty:           line.Qty,
		})
	}
	return items, nil
}

func (s *Service) fillTotals(bill *domain.Bill) error {
	subtotal, taxAmount, grandTotal, err := tax.Totals(bill.Items)
	if err != nil {
		return err
	}
	rounded, adjustment := tax.RoundOff(grandTotal)
	bill.Subtotal = subtotal
	bill.TaxAmount = taxAmount
	bill.RoundOff = adjustment
	bill.GrandTotal = rounded
	return nil
}

func (s *Service) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	return s.repo.GetBill(ctx, id)
}

func (s *Service) ListBills(ctx context.Context, from, to time.Time) ([]domain.Bill, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", store.ErrInvalidInput)
	}
	return s.repo.ListBillsInRange(ctx, from, to)
}

// MarkPrinted records a print. The first print moves not_printed to
// printed; any later print marks the bill reprinted. Calling it on an
// already-reprinted bill is a no-op.
func (s *Service) MarkPrinted(ctx context.Context, billID string) (*domain.Bill, error) {
	bill, err := s.repo.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	next := domain.PrintStatusPrinted
	if bill.PrintStatus != domain.PrintStatusNotPrinted {
		next = domain.PrintStatusReprinted
	}
	if next != bill.PrintStatus {
		if err := s.repo.SetPrintStatus(ctx, billID, next); err != nil {
			return nil, err
		}
		bill.PrintStatus = next
	}
	return bill, nil
}

// --- reporting ---

// SalesSummary aggregates bills in [from, to]. Revenue comes from the
// stored grand totals, so later product price edits never rewrite history.
func (s *Service) SalesSummary(ctx context.Context, from, to time.Time) (*domain.SalesSummary, error) {
	bills, err := s.ListBills(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary := &domain.SalesSummary{Bills: bills}
	var revenue float64
	for _, bill := range bills {
		revenue += bill.GrandTotal
		for _, item := range bill.Items {
			summary.TotalQuantity += item.Qty
		}
	}
	summary.TotalRevenue = tax.Round2(revenue)
	summary.BillCount = len(bills)
	return summary, nil
}

// ProductSales reports per-product quantity and revenue at the price each
// unit actually sold for, ordered by revenue descending.
func (s *Service) ProductSales(ctx context.Context, from, to time.Time) ([]domain.ProductSales, error) {
	bills, err := s.ListBills(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[string]*domain.ProductSales)
	for _, bill := range bills {
		for _, item := range bill.Items {
			entry, ok := byProduct[item.ProductID]
			if !ok {
				entry = &domain.ProductSales{ProductID: item.ProductID, NameEN: item.NameEN}
				byProduct[item.ProductID] = entry
			}
			entry.QuantitySold += item.Qty
			entry.TotalRevenue += item.Price * float64(item.Qty)
		}
	}

	stats := make([]domain.ProductSales, 0, len(byProduct))
	for _, entry := range byProduct {
		entry.TotalRevenue = tax.Round2(entry.TotalRevenue)
		stats = append(stats, *entry)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalRevenue != stats[j].TotalRevenue {
			return stats[i].TotalRevenue > stats[j].TotalRevenue
		}
		return stats[i].NameEN < stats[j].NameEN
	})
	return stats, nil
}

// LowStock lists products at or below the threshold, most depleted
// first. Negative stock (over-sells) sorts to the top. A threshold
// below 1 falls back to the configured default.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	if threshold < 1 {
		threshold = s.lowStockLevel
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock <= threshold {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	return low, nil
}

// InventoryValue totals price times stock across the catalog. Products
// with zero or negative stock contribute nothing.
func (s *Service) InventoryValue(ctx context.Context) (*domain.InventoryValueResponse, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	resp := &domain.InventoryValueResponse{ProductCount: len(products)}
	var total float64
	for _, p := range products {
		if p.Stock > 0 {
			total += p.Price * float64(p.Stock)
		}
	}
	resp.TotalValue = tax.Round2(total)
	return resp, nil
}

// --- customers ---

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, ErrForbidden
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", store.ErrInvalidInput)
	}
	return s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    strings.TrimSpace(req.Name),
		Phone:   phone,
		Address: strings.TrimSpace(req.Address),
		Notes:   req.Notes,
	})
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return s.repo.GetCustomerByPhone(ctx, strings.TrimSpace(phone))
}

// --- users ---

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (*domain.User, error) {
	actor, err := s.requireRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", store.ErrInvalidInput)
	}
	switch req.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleUser:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrInvalidInput, req.Role)
	}
	if len(req.PIN) < minPINLength {
		return nil, fmt.Errorf("%w: PIN must be at least %d digits", store.ErrInvalidInput, minPINLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash PIN: %w", err)
	}
	created, err := s.repo.CreateUser(ctx, domain.User{
		Username:  username,
		Role:      req.Role,
		Phone:     strings.TrimSpace(req.Phone),
		PINHash:   string(hash),
		CreatedBy: actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[service] user %s created with role %s", created.Username, created.Role)
	return created, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

// DeleteUser removes an account. The store refuses to delete the last
// remaining super_admin so the shop can never lock itself out.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, err := s.requireRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if actor.UserID == id {
		return fmt.Errorf("%w: cannot delete your own account", store.ErrConstraint)
	}
	return s.repo.DeleteUser(ctx, id)
}

// EnsureSuperAdmin bootstraps the first account on an empty users table.
// Called at startup; a no-op once any super_admin exists.
func (s *Service) EnsureSuperAdmin(ctx context.Context, username, pin string) error {
	count, err := s.repo.CountUsersByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if len(pin) < minPINLength {
		return fmt.Errorf("%w: bootstrap PIN must be at least %d digits", store.ErrInvalidInput, minPINLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap PIN: %w", err)
	}
	if _, err := s.repo.CreateUser(ctx, domain.User{
		Username: username,
		Role:     domain.RoleSuperAdmin,
		PINHash:  string(hash),
	}); err != nil {
		return err
	}
	log.Printf("[service] bootstrapped super_admin %q", username)
	return nil
}

// --- settings ---

func (s *Service) GetSettings(ctx context.Context) (*domain.ShopSettings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return &domain.ShopSettings{
			ID:             domain.SettingsID,
			CurrencySymbol: defaultCurrencySymbol,
		}, nil
	}
	if settings.CurrencySymbol == "" {
		settings.CurrencySymbol = defaultCurrencySymbol
	}
	return settings, nil
}

func (s *Service) SaveSettings(ctx context.Context, req domain.SettingsSaveRequest) (*domain.ShopSettings, error) {
	if _, err := s.requireRole(ctx, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ShopName) == "" {
		return nil, fmt.Errorf("%w: shop name is required", store.ErrInvalidInput)
	}

	existing, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	settings := domain.ShopSettings{
		ID:             domain.SettingsID,
		ShopName:       strings.TrimSpace(req.ShopName),
		AddressLine:    strings.TrimSpace(req.AddressLine),
		Phone:          strings.TrimSpace(req.Phone),
		TaxID:          strings.TrimSpace(req.TaxID),
		CurrencySymbol: req.CurrencySymbol,
		SetupComplete:  req.SetupComplete,
	}
	if existing != nil {
		settings.AdminPasswordHash = existing.AdminPasswordHash
		settings.CreatedAt = existing.CreatedAt
	}
	if req.AdminPassword != "" {
		if len(req.AdminPassword) < adminPasswordMinLength {
			return nil, fmt.Errorf("%w: admin password too short", store.ErrInvalidInput)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		settings.AdminPasswordHash = string(hash)
	}

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return s.GetSettings(ctx)
}

// --- maintenance ---

// ResetTransactionalData deletes all bills while keeping the catalog,
// customers, users and settings.
func (s *Service) ResetTransactionalData(ctx context.Context) error {
	actor, err := s.requireRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return err
	}
	log.Printf("[service] WARN: %s is wiping all bills", actor.Username)
	return s.repo.ResetTransactionalData(ctx)
}

// ResetAll performs a factory reset: bills, customers, catalog and
// non-super_admin users are removed. Settings survive.
func (s *Service) ResetAll(ctx context.Context) error {
	actor, err := s.requireRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return err
	}
	log.Printf("[service] WARN: %s triggered a factory reset", actor.Username)
	return s.repo.ResetAll(ctx)
}
