package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/search"
	"kadaipos/engine/internal/store"
	"kadaipos/engine/internal/xid"
)

// Store is an in-memory Repository used by tests and by dev mode when no
// database path is configured. Multi-step mutations are staged on local
// copies and applied under one lock, so a mid-step failure leaves no
// partial state. That matches the all-or-nothing contract the sqlite
// store gets from real transactions.
type Store struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	categories map[string]domain.Category
	bills      map[string]domain.Bill
	customers  map[string]domain.Customer
	users      map[string]domain.User
	settings   *domain.ShopSettings

	// BillFault, when set, is called once per line item while a bill
	// mutation is being staged. Returning an error aborts the whole
	// operation with nothing applied. Tests use it to simulate a store
	// failure between the bill insert and the stock adjustments.
	BillFault func(itemIndex int, productID string) error
}

func New() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		categories: make(map[string]domain.Category),
		bills:      make(map[string]domain.Bill),
		customers:  make(map[string]domain.Customer),
		users:      make(map[string]domain.User),
	}
}

// NewSeeded returns a store preloaded with a small Tamil grocery catalog
// and a super_admin account for dev/demo mode. The admin PIN comes from
// SEED_ADMIN_PIN; a hardcoded dev default is used with a warning when the
// variable is unset.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: "cat-grains", NameEN: "Grains", NameTA: "தானியங்கள்", Icon: "grain", Color: "#8d6e63", CreatedAt: now},
		{ID: "cat-beverages", NameEN: "Beverages", NameTA: "பானங்கள்", Icon: "cup", Color: "#42a5f5", CreatedAt: now},
		{ID: "cat-household", NameEN: "Household", NameTA: "வீட்டுப் பொருட்கள்", Icon: "home", Color: "#66bb6a", CreatedAt: now},
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}

	products := []domain.Product{
		{ID: "prod-rice", ProductCode: "RICE-01", Barcode: "8901001000011", NameEN: "Ponni Rice 1kg", NameTA: "பொன்னி அரிசி", CategoryID: "cat-grains", Price: 60, TaxPercentage: 5, Unit: "kg", Stock: 100, CreatedAt: now},
		{ID: "prod-sugar", ProductCode: "SUGR-01", Barcode: "8901001000028", NameEN: "Sugar 1kg", NameTA: "சர்க்கரை", CategoryID: "cat-grains", Price: 45, TaxPercentage: 5, Unit: "kg", Stock: 80, CreatedAt: now},
		{ID: "prod-dal", ProductCode: "TDAL-01", Barcode: "8901001000035", NameEN: "Toor Dal 500g", NameTA: "துவரம் பருப்பு", CategoryID: "cat-grains", Price: 82, TaxPercentage: 5, Unit: "pack", Stock: 60, CreatedAt: now},
		{ID: "prod-tea", ProductCode: "TEA-01", Barcode: "8901001000042", NameEN: "Tea Powder 250g", NameTA: "தேயிலை தூள்", CategoryID: "cat-beverages", Price: 140, TaxPercentage: 18, TaxInclusive: true, Unit: "pack", Stock: 40, CreatedAt: now},
		{ID: "prod-soda", ProductCode: "7", Barcode: "8901001000059", NameEN: "7-Up 750ml", NameTA: "செவன் அப்", CategoryID: "cat-beverages", Price: 40, TaxPercentage: 12, TaxInclusive: true, Unit: "bottle", Stock: 48, CreatedAt: now},
		{ID: "prod-soap", ProductCode: "SOAP-01", Barcode: "8901001000066", NameEN: "Bath Soap", NameTA: "குளியல் சோப்பு", CategoryID: "cat-household", Price: 34, TaxPercentage: 18, Unit: "piece", Stock: 120, CreatedAt: now},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	s.users = seedUsers(now)
	return s
}

func seedUsers(now time.Time) map[string]domain.User {
	adminPIN := envOr("SEED_ADMIN_PIN", "908172")
	if os.Getenv("SEED_ADMIN_PIN") == "" {
		log.Println("[memory-store] WARNING: using default dev PIN. Set SEED_ADMIN_PIN to override.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPIN), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed PIN: %v", err)
	}

	owner := domain.User{
		ID:        "user-owner",
		Username:  "owner",
		Role:      domain.RoleSuperAdmin,
		PINHash:   string(hash),
		CreatedAt: now,
	}
	return map[string]domain.User{owner.ID: owner}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(strings.ToLower(a.NameEN), strings.ToLower(b.NameEN))
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (s *Store) GetProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if code == "" {
		return nil, nil
	}
	for _, p := range s.products {
		if strings.EqualFold(p.ProductCode, code) {
			copied := p
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if barcode == "" {
		return nil, nil
	}
	for _, p := range s.products {
		if p.Barcode == barcode {
			copied := p
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.NameEN == "" || product.Price < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.TaxPercentage < 0 || product.TaxPercentage > 100 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConstraint
	}
	if err := s.checkProductUniqueness(product); err != nil {
		return nil, err
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.NameEN == "" || product.Price < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.TaxPercentage < 0 || product.TaxPercentage > 100 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := s.checkProductUniqueness(product); err != nil {
		return nil, err
	}

	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

// checkProductUniqueness must be called with the write lock held.
func (s *Store) checkProductUniqueness(product domain.Product) error {
	for _, other := range s.products {
		if other.ID == product.ID {
			continue
		}
		if product.ProductCode != "" && strings.EqualFold(other.ProductCode, product.ProductCode) {
			return fmt.Errorf("%w: product code %s", store.ErrConstraint, product.ProductCode)
		}
		if product.Barcode != "" && other.Barcode == product.Barcode {
			return fmt.Errorf("%w: barcode %s", store.ErrConstraint, product.Barcode)
		}
	}
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	// No clamping: negative stock records an over-sell for reporting.
	p.Stock += delta
	s.products[productID] = p
	return nil
}

func (s *Store) BulkInsertProducts(_ context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage everything before touching the live map so a failure on any
	// row inserts none of them.
	staged := make([]domain.Product, 0, len(products))
	seenCodes := make(map[string]struct{}, len(products))
	seenBarcodes := make(map[string]struct{}, len(products))
	for _, product := range products {
		if product.NameEN == "" || product.Price < 0 {
			return store.ErrInvalidInput
		}
		if product.TaxPercentage < 0 || product.TaxPercentage > 100 {
			return store.ErrInvalidInput
		}
		if product.ID == "" {
			product.ID = xid.New("prod")
		}
		if product.CreatedAt.IsZero() {
			product.CreatedAt = time.Now().UTC()
		}
		if err := s.checkProductUniqueness(product); err != nil {
			return err
		}
		if product.ProductCode != "" {
			code := strings.ToLower(product.ProductCode)
			if _, dup := seenCodes[code]; dup {
				return fmt.Errorf("%w: product code %s", store.ErrConstraint, product.ProductCode)
			}
			seenCodes[code] = struct{}{}
		}
		if product.Barcode != "" {
			if _, dup := seenBarcodes[product.Barcode]; dup {
				return fmt.Errorf("%w: barcode %s", store.ErrConstraint, product.Barcode)
			}
			seenBarcodes[product.Barcode] = struct{}{}
		}
		staged = append(staged, product)
	}

	for _, product := range staged {
		s.products[product.ID] = product
	}
	return nil
}

func (s *Store) SearchProducts(_ context.Context, query string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	matches := make([]domain.Product, 0, limit)
	for _, p := range s.products {
		if search.Matches(p, query) {
			matches = append(matches, p)
		}
	}
	// Candidate set only; the service applies tier ranking and the limit.
	return matches, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(strings.ToLower(a.NameEN), strings.ToLower(b.NameEN))
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if category.NameEN == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.categories[category.ID]; exists {
		return nil, store.ErrConstraint
	}
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if category.NameEN == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	category.CreatedAt = existing.CreatedAt
	s.categories[category.ID] = category
	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			return fmt.Errorf("%w: category %s still has products", store.ErrConstraint, id)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	if len(bill.Items) == 0 {
		return nil, store.ErrEmptyCart
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	if bill.PrintStatus == "" {
		bill.PrintStatus = domain.PrintStatusNotPrinted
	}
	if _, exists := s.bills[bill.ID]; exists {
		return nil, store.ErrConstraint
	}

	stagedStock, err := s.stageStockDeltas(bill.Items, -1)
	if err != nil {
		return nil, err
	}

	s.bills[bill.ID] = cloneBill(bill)
	s.applyStagedStock(stagedStock)
	created := cloneBill(bill)
	return &created, nil
}

// UpdateBill overwrites a bill's items and totals. An empty item list is
// legal here: it means every line was removed and all stock goes back.
func (s *Store) UpdateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.bills[bill.ID]
	if !ok {
		return nil, store.ErrNotFound
	}

	// Revert-then-reapply, staged as one unit: restore the original
	// quantities, then subtract the new ones, applying only on success.
	reverted, err := s.stageStockDeltas(original.Items, +1)
	if err != nil {
		return nil, err
	}
	applied, err := s.stageStockDeltasOn(reverted, bill.Items, -1)
	if err != nil {
		return nil, err
	}

	bill.CreatedAt = original.CreatedAt
	bill.CreatedBy = original.CreatedBy
	bill.PrintStatus = original.PrintStatus
	s.bills[bill.ID] = cloneBill(bill)
	s.applyStagedStock(applied)
	updated := cloneBill(bill)
	return &updated, nil
}

// stageStockDeltas computes post-adjustment stock levels for the given
// items without mutating the catalog. Must be called with the write lock
// held. sign is -1 for applying a sale, +1 for reverting one.
func (s *Store) stageStockDeltas(items []domain.BillItem, sign int) (map[string]int, error) {
	return s.stageStockDeltasOn(nil, items, sign)
}

func (s *Store) stageStockDeltasOn(base map[string]int, items []domain.BillItem, sign int) (map[string]int, error) {
	staged := make(map[string]int, len(items)+len(base))
	for id, stock := range base {
		staged[id] = stock
	}
	for i, item := range items {
		if s.BillFault != nil && sign < 0 {
			if err := s.BillFault(i, item.ProductID); err != nil {
				return nil, err
			}
		}
		current, ok := staged[item.ProductID]
		if !ok {
			p, exists := s.products[item.ProductID]
			if !exists {
				return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
			}
			current = p.Stock
		}
		staged[item.ProductID] = current + sign*item.Qty
	}
	return staged, nil
}

// applyStagedStock must be called with the write lock held.
func (s *Store) applyStagedStock(staged map[string]int) {
	for id, stock := range staged {
		p := s.products[id]
		p.Stock = stock
		s.products[id] = p
	}
}

func (s *Store) GetBill(_ context.Context, id string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.bills[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := cloneBill(bill)
	return &copied, nil
}

func (s *Store) ListBillsInRange(_ context.Context, from time.Time, to time.Time) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bills := make([]domain.Bill, 0, 32)
	for _, bill := range s.bills {
		if bill.CreatedAt.Before(from) || bill.CreatedAt.After(to) {
			continue
		}
		bills = append(bills, cloneBill(bill))
	}
	slices.SortFunc(bills, func(a, b domain.Bill) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return bills, nil
}

func (s *Store) SetPrintStatus(_ context.Context, billID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, ok := s.bills[billID]
	if !ok {
		return store.ErrNotFound
	}
	bill.PrintStatus = status
	s.bills[billID] = bill
	return nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Phone == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	for _, other := range s.customers {
		if other.Phone == customer.Phone {
			return nil, fmt.Errorf("%w: phone %s", store.ErrConstraint, customer.Phone)
		}
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return customers, nil
}

func (s *Store) GetCustomerByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if phone == "" {
		return nil, nil
	}
	for _, c := range s.customers {
		if c.Phone == phone {
			copied := c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	if user.Username == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	for _, other := range s.users {
		if strings.EqualFold(other.Username, user.Username) {
			return nil, fmt.Errorf("%w: username %s", store.ErrConstraint, user.Username)
		}
		if user.Phone != "" && other.Phone == user.Phone {
			return nil, fmt.Errorf("%w: phone %s", store.ErrConstraint, user.Phone)
		}
	}
	s.users[user.ID] = user
	created := user
	return &created, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			copied := u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByPhone(_ context.Context, phone string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if phone == "" {
		return nil, store.ErrNotFound
	}
	for _, u := range s.users {
		if u.Phone == phone {
			copied := u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if user.Role == domain.RoleSuperAdmin && s.countRoleLocked(domain.RoleSuperAdmin) <= 1 {
		return fmt.Errorf("%w: cannot delete the last super_admin", store.ErrConstraint)
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CountUsersByRole(_ context.Context, role string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countRoleLocked(role), nil
}

func (s *Store) countRoleLocked(role string) int {
	count := 0
	for _, u := range s.users {
		if u.Role == role {
			count++
		}
	}
	return count
}

func (s *Store) GetSettings(_ context.Context) (*domain.ShopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return nil, nil
	}
	copied := *s.settings
	return &copied, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.ShopSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.ID = domain.SettingsID
	if settings.CreatedAt.IsZero() {
		if s.settings != nil {
			settings.CreatedAt = s.settings.CreatedAt
		} else {
			settings.CreatedAt = time.Now().UTC()
		}
	}
	copied := settings
	s.settings = &copied
	return nil
}

func (s *Store) ResetTransactionalData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bills = make(map[string]domain.Bill)
	return nil
}

func (s *Store) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bills = make(map[string]domain.Bill)
	s.customers = make(map[string]domain.Customer)
	s.products = make(map[string]domain.Product)
	s.categories = make(map[string]domain.Category)
	for id, user := range s.users {
		if user.Role != domain.RoleSuperAdmin {
			delete(s.users, id)
		}
	}
	return nil
}

func cloneBill(bill domain.Bill) domain.Bill {
	copied := bill
	copied.Items = make([]domain.BillItem, len(bill.Items))
	copy(copied.Items, bill.Items)
	return copied
}
