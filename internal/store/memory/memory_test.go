package memory

import (
	"context"
	"errors"
	"testing"

	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/store"
)

func TestProductUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{NameEN: "Rice", Price: 60, ProductCode: "RICE-01", Barcode: "111"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{NameEN: "Other", Price: 10, ProductCode: "rice-01"}); !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("duplicate code (case-insensitive): err = %v, want ErrConstraint", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{NameEN: "Other", Price: 10, Barcode: "111"}); !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("duplicate barcode: err = %v, want ErrConstraint", err)
	}
	// Empty codes never collide with each other.
	if _, err := s.CreateProduct(ctx, domain.Product{NameEN: "A", Price: 1}); err != nil {
		t.Fatalf("first codeless product: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{NameEN: "B", Price: 1}); err != nil {
		t.Fatalf("second codeless product: %v", err)
	}
}

func TestLookupMissesReturnNilNil(t *testing.T) {
	s := New()
	ctx := context.Background()

	p, err := s.GetProductByCode(ctx, "NOPE")
	if err != nil || p != nil {
		t.Fatalf("GetProductByCode miss = (%v, %v), want (nil, nil)", p, err)
	}
	p, err = s.GetProductByBarcode(ctx, "000")
	if err != nil || p != nil {
		t.Fatalf("GetProductByBarcode miss = (%v, %v), want (nil, nil)", p, err)
	}
	c, err := s.GetCustomerByPhone(ctx, "999")
	if err != nil || c != nil {
		t.Fatalf("GetCustomerByPhone miss = (%v, %v), want (nil, nil)", c, err)
	}
	// Direct id lookups are a hard miss.
	if _, err := s.GetProduct(ctx, "absent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetProduct miss: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	s := New()
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, domain.Category{NameEN: "Grains"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{NameEN: "Rice", Price: 60, CategoryID: cat.ID}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := s.DeleteCategory(ctx, cat.ID); !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("delete referenced category: err = %v, want ErrConstraint", err)
	}
}

func TestBulkInsertAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()

	batch := []domain.Product{
		{NameEN: "A", Price: 1, Barcode: "111"},
		{NameEN: "B", Price: 2, Barcode: "111"}, // duplicate inside the batch
	}
	if err := s.BulkInsertProducts(ctx, batch); !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("err = %v, want ErrConstraint", err)
	}
	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("%d products inserted from a rejected batch", len(products))
	}
}

func TestCreateBillUnknownProductAppliesNothing(t *testing.T) {
	s := New()
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, domain.Product{NameEN: "Rice", Price: 60, Stock: 10})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	_, err = s.CreateBill(ctx, domain.Bill{
		Items: []domain.BillItem{
			{ProductID: p.ID, Price: 60, Qty: 2},
			{ProductID: "ghost", Price: 5, Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 10 {
		t.Fatalf("stock = %d after failed bill, want 10", after.Stock)
	}
}

func TestDeleteLastSuperAdmin(t *testing.T) {
	s := New()
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, domain.User{Username: "owner", Role: domain.RoleSuperAdmin, PINHash: "x"})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	if err := s.DeleteUser(ctx, owner.ID); !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("deleting the only super_admin: err = %v, want ErrConstraint", err)
	}

	second, err := s.CreateUser(ctx, domain.User{Username: "partner", Role: domain.RoleSuperAdmin, PINHash: "x"})
	if err != nil {
		t.Fatalf("create partner: %v", err)
	}
	if err := s.DeleteUser(ctx, second.ID); err != nil {
		t.Fatalf("deleting a non-last super_admin: %v", err)
	}
}

func TestResetAllKeepsSuperAdminsAndSettings(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, domain.User{Username: "cashier", Role: domain.RoleUser, PINHash: "x"}); err != nil {
		t.Fatalf("create cashier: %v", err)
	}
	if err := s.SaveSettings(ctx, domain.ShopSettings{ShopName: "Kadai"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if err := s.ResetAll(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	products, _ := s.ListProducts(ctx)
	if len(products) != 0 {
		t.Errorf("%d products survived the reset", len(products))
	}
	users, _ := s.ListUsers(ctx)
	for _, u := range users {
		if u.Role != domain.RoleSuperAdmin {
			t.Errorf("non-super_admin %s survived the reset", u.Username)
		}
	}
	if len(users) == 0 {
		t.Error("reset removed the super_admin")
	}
	settings, err := s.GetSettings(ctx)
	if err != nil || settings == nil {
		t.Fatalf("settings after reset = (%v, %v), want kept", settings, err)
	}
	if settings.ShopName != "Kadai" {
		t.Errorf("shop name = %q after reset", settings.ShopName)
	}
}
