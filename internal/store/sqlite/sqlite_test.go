package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustProduct(t *testing.T, s *Store, p domain.Product) *domain.Product {
	t.Helper()
	created, err := s.CreateProduct(context.Background(), p)
	if err != nil {
		t.Fatalf("create product %s: %v", p.NameEN, err)
	}
	return created
}

func stockOf(t *testing.T, s *Store, id string) int {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return p.Stock
}

func billItem(p *domain.Product, qty int) domain.BillItem {
	return domain.BillItem{
		ProductID:     p.ID,
		NameEN:        p.NameEN,
		Price:         p.Price,
		TaxPercentage: p.TaxPercentage,
		TaxInclusive:  p.TaxInclusive,
		Qty:           qty,
	}
}

func searchCodes(t *testing.T, s *Store, query string) map[string]bool {
	t.Helper()
	got, err := s.SearchProducts(context.Background(), query, 50)
	if err != nil {
		t.Fatalf("search %q: %v", query, err)
	}
	codes := make(map[string]bool, len(got))
	for _, p := range got {
		codes[p.ProductCode] = true
	}
	return codes
}

func TestSearchProductsCandidates(t *testing.T) {
	s := newTestStore(t)
	mustProduct(t, s, domain.Product{NameEN: "Marie Biscuit", ProductCode: "BIS-7", Barcode: "777000111", Price: 10})
	mustProduct(t, s, domain.Product{NameEN: "Lemon Soda", ProductCode: "7", Barcode: "900100", Price: 15})
	mustProduct(t, s, domain.Product{NameEN: "Ponni Rice 1kg", ProductCode: "RICE-01", NameTA: "பொன்னி அரிசி", Price: 60})
	mustProduct(t, s, domain.Product{NameEN: "Bath Soap", ProductCode: "SOAP-01", Price: 34})

	// A short numeric query must surface code and barcode substrings, not
	// just exact hits.
	codes := searchCodes(t, s, "7")
	if !codes["BIS-7"] {
		t.Errorf("query 7: BIS-7 missing (code substring)")
	}
	if !codes["7"] {
		t.Errorf("query 7: exact code match missing")
	}
	if codes["RICE-01"] || codes["SOAP-01"] {
		t.Errorf("query 7: unrelated products returned: %v", codes)
	}

	if codes := searchCodes(t, s, "777000"); !codes["BIS-7"] {
		t.Errorf("barcode substring query missed BIS-7")
	}
	if codes := searchCodes(t, s, "bis-7"); !codes["BIS-7"] {
		t.Errorf("code lookup must be case-insensitive")
	}
	if codes := searchCodes(t, s, "rice"); !codes["RICE-01"] {
		t.Errorf("name substring query missed RICE-01")
	}
	if codes := searchCodes(t, s, "அரிசி"); !codes["RICE-01"] {
		t.Errorf("Tamil name query missed RICE-01")
	}
	// LIKE metacharacters are data, not wildcards.
	if codes := searchCodes(t, s, "%"); len(codes) != 0 {
		t.Errorf("literal %% matched %v", codes)
	}
}

func TestCreateBillAdjustsStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rice := mustProduct(t, s, domain.Product{NameEN: "Rice", ProductCode: "RICE-01", Price: 60, Stock: 100})
	sugar := mustProduct(t, s, domain.Product{NameEN: "Sugar", ProductCode: "SUG-01", Price: 45, Stock: 80})

	_, err := s.CreateBill(ctx, domain.Bill{
		Items:     []domain.BillItem{billItem(rice, 3), billItem(sugar, 2)},
		CreatedBy: "u-owner",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if got := stockOf(t, s, rice.ID); got != 97 {
		t.Errorf("rice stock = %d, want 97", got)
	}
	if got := stockOf(t, s, sugar.ID); got != 78 {
		t.Errorf("sugar stock = %d, want 78", got)
	}

	// A bill naming an unknown product rolls back in full, including the
	// lines that would have succeeded.
	_, err = s.CreateBill(ctx, domain.Bill{
		Items: []domain.BillItem{
			billItem(rice, 5),
			{ProductID: "prod-ghost", NameEN: "Ghost", Price: 1, Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("bill with unknown product: err = %v, want ErrNotFound", err)
	}
	if got := stockOf(t, s, rice.ID); got != 97 {
		t.Errorf("rice stock after failed bill = %d, want 97", got)
	}

	if _, err := s.CreateBill(ctx, domain.Bill{}); !errors.Is(err, store.ErrEmptyCart) {
		t.Fatalf("empty create: err = %v, want ErrEmptyCart", err)
	}
}

func TestUpdateBillNetsStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rice := mustProduct(t, s, domain.Product{NameEN: "Rice", ProductCode: "RICE-01", Price: 60, Stock: 100})
	sugar := mustProduct(t, s, domain.Product{NameEN: "Sugar", ProductCode: "SUG-01", Price: 45, Stock: 80})

	bill, err := s.CreateBill(ctx, domain.Bill{
		Items:     []domain.BillItem{billItem(rice, 3)},
		CreatedBy: "u-owner",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	// Revert then reapply: rice 100-1, sugar 80-2.
	updated, err := s.UpdateBill(ctx, domain.Bill{
		ID:    bill.ID,
		Items: []domain.BillItem{billItem(rice, 1), billItem(sugar, 2)},
	})
	if err != nil {
		t.Fatalf("update bill: %v", err)
	}
	if got := stockOf(t, s, rice.ID); got != 99 {
		t.Errorf("rice stock = %d, want 99", got)
	}
	if got := stockOf(t, s, sugar.ID); got != 78 {
		t.Errorf("sugar stock = %d, want 78", got)
	}
	if updated.CreatedBy != "u-owner" || !updated.CreatedAt.Equal(bill.CreatedAt) {
		t.Errorf("update must preserve provenance, got by=%q at=%v", updated.CreatedBy, updated.CreatedAt)
	}
	if updated.PrintStatus != domain.PrintStatusNotPrinted {
		t.Errorf("print status = %q, want %q", updated.PrintStatus, domain.PrintStatusNotPrinted)
	}

	// Removing every line puts all stock back.
	if _, err := s.UpdateBill(ctx, domain.Bill{ID: bill.ID, Items: []domain.BillItem{}}); err != nil {
		t.Fatalf("update to empty: %v", err)
	}
	if got := stockOf(t, s, rice.ID); got != 100 {
		t.Errorf("rice stock after emptying = %d, want 100", got)
	}
	if got := stockOf(t, s, sugar.ID); got != 80 {
		t.Errorf("sugar stock after emptying = %d, want 80", got)
	}
	reloaded, err := s.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if len(reloaded.Items) != 0 {
		t.Errorf("emptied bill still has %d items", len(reloaded.Items))
	}

	if _, err := s.UpdateBill(ctx, domain.Bill{ID: "bill-absent"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing bill: err = %v, want ErrNotFound", err)
	}
}

func TestConstraintMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustProduct(t, s, domain.Product{NameEN: "Rice", ProductCode: "RICE-01", Barcode: "111", Price: 60})
	if _, err := s.CreateProduct(ctx, domain.Product{NameEN: "Other", ProductCode: "rice-01", Price: 10}); !errors.Is(err, store.ErrConstraint) {
		t.Errorf("duplicate code (case-insensitive): err = %v, want ErrConstraint", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{NameEN: "Other", Barcode: "111", Price: 10}); !errors.Is(err, store.ErrConstraint) {
		t.Errorf("duplicate barcode: err = %v, want ErrConstraint", err)
	}
	// NULL codes never collide.
	mustProduct(t, s, domain.Product{NameEN: "A", Price: 1})
	mustProduct(t, s, domain.Product{NameEN: "B", Price: 1})

	if _, err := s.CreateCustomer(ctx, domain.Customer{Phone: "9876500001"}); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if _, err := s.CreateCustomer(ctx, domain.Customer{Phone: "9876500001"}); !errors.Is(err, store.ErrConstraint) {
		t.Errorf("duplicate phone: err = %v, want ErrConstraint", err)
	}

	if _, err := s.CreateUser(ctx, domain.User{Username: "owner", Role: domain.RoleSuperAdmin, PINHash: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, domain.User{Username: "Owner", Role: domain.RoleUser, PINHash: "x"}); !errors.Is(err, store.ErrConstraint) {
		t.Errorf("duplicate username (case-insensitive): err = %v, want ErrConstraint", err)
	}
}

func TestLookupMisses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.GetProductByCode(ctx, "NOPE")
	if err != nil || p != nil {
		t.Errorf("GetProductByCode miss = (%v, %v), want (nil, nil)", p, err)
	}
	p, err = s.GetProductByBarcode(ctx, "000")
	if err != nil || p != nil {
		t.Errorf("GetProductByBarcode miss = (%v, %v), want (nil, nil)", p, err)
	}
	c, err := s.GetCustomerByPhone(ctx, "999")
	if err != nil || c != nil {
		t.Errorf("GetCustomerByPhone miss = (%v, %v), want (nil, nil)", c, err)
	}
	if _, err := s.GetProduct(ctx, "absent"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetProduct miss: err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUserByUsername miss: err = %v, want ErrNotFound", err)
	}
}

func TestLastSuperAdminUndeletable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, domain.User{Username: "owner", Role: domain.RoleSuperAdmin, PINHash: "x"})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	if err := s.DeleteUser(ctx, owner.ID); !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("delete last super_admin: err = %v, want ErrConstraint", err)
	}

	if _, err := s.CreateUser(ctx, domain.User{Username: "backup", Role: domain.RoleSuperAdmin, PINHash: "x"}); err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if err := s.DeleteUser(ctx, owner.ID); err != nil {
		t.Fatalf("delete with a second super_admin present: %v", err)
	}
}
