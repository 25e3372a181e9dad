package domain

import "time"

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

const (
	PrintStatusNotPrinted = "not_printed"
	PrintStatusPrinted    = "printed"
	PrintStatusReprinted  = "reprinted"
)

// SettingsID is the fixed key of the singleton shop settings row.
const SettingsID = "default"

type Category struct {
	ID        string    `json:"id"`
	NameEN    string    `json:"name_en"`
	NameTA    string    `json:"name_ta,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryCreateRequest struct {
	NameEN string `json:"name_en"`
	NameTA string `json:"name_ta,omitempty"`
	Icon   string `json:"icon,omitempty"`
	Color  string `json:"color,omitempty"`
}

type CategoryUpdateRequest struct {
	NameEN *string `json:"name_en,omitempty"`
	NameTA *string `json:"name_ta,omitempty"`
	Icon   *string `json:"icon,omitempty"`
	Color  *string `json:"color,omitempty"`
}

type Product struct {
	ID            string    `json:"id"`
	ProductCode   string    `json:"product_code,omitempty"`
	Barcode       string    `json:"barcode,omitempty"`
	NameEN        string    `json:"name_en"`
	NameTA        string    `json:"name_ta,omitempty"`
	CategoryID    string    `json:"category_id,omitempty"`
	Price         float64   `json:"price"`
	TaxPercentage float64   `json:"tax_percentage"`
	TaxInclusive  bool      `json:"tax_inclusive"`
	Unit          string    `json:"unit,omitempty"`
	Stock         int       `json:"stock"`
	ImageURI      string    `json:"image_uri,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	ProductCode   string  `json:"product_code,omitempty"`
	Barcode       string  `json:"barcode,omitempty"`
	NameEN        string  `json:"name_en"`
	NameTA        string  `json:"name_ta,omitempty"`
	CategoryID    string  `json:"category_id,omitempty"`
	Price         float64 `json:"price"`
	TaxPercentage float64 `json:"tax_percentage"`
	TaxInclusive  bool    `json:"tax_inclusive"`
	Unit          string  `json:"unit,omitempty"`
	InitialStock  int     `json:"initial_stock"`
	ImageURI      string  `json:"image_uri,omitempty"`
}

type ProductUpdateRequest struct {
	ProductCode   *string  `json:"product_code,omitempty"`
	Barcode       *string  `json:"barcode,omitempty"`
	NameEN        *string  `json:"name_en,omitempty"`
	NameTA        *string  `json:"name_ta,omitempty"`
	CategoryID    *string  `json:"category_id,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	TaxPercentage *float64 `json:"tax_percentage,omitempty"`
	TaxInclusive  *bool    `json:"tax_inclusive,omitempty"`
	Unit          *string  `json:"unit,omitempty"`
	Stock         *int     `json:"stock,omitempty"`
	ImageURI      *string  `json:"image_uri,omitempty"`
}

// CartItem is a transient cart entry. It references a product by id only;
// the pricing snapshot is taken when the cart becomes a bill.
type CartItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// BillItem is a frozen copy of the product's pricing fields at the time of
// sale. Later product edits must not change what an old bill says.
type BillItem struct {
	ProductID     string  `json:"product_id"`
	NameEN        string  `json:"name_en"`
	NameTA        string  `json:"name_ta,omitempty"`
	Price         float64 `json:"price"`
	TaxPercentage float64 `json:"tax_percentage"`
	TaxInclusive  bool    `json:"tax_inclusive"`
	Unit          string  `json:"unit,omitempty"`
	Qty           int     `json:"qty"`
}

type Bill struct {
	ID          string     `json:"id"`
	Items       []BillItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	TaxAmount   float64    `json:"tax_amount"`
	RoundOff    float64    `json:"round_off"`
	GrandTotal  float64    `json:"grand_total"`
	CustomerID  string     `json:"customer_id,omitempty"`
	PrintStatus string     `json:"print_status"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by"`
}

type BillCreateRequest struct {
	Items      []CartItem `json:"items"`
	CustomerID string     `json:"customer_id,omitempty"`
}

type BillUpdateRequest struct {
	Items      []CartItem `json:"items"`
	CustomerID string     `json:"customer_id,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// User is a persistence model; the PIN hash never leaves the engine.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	PINHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	PIN      string `json:"pin"`
}

type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
	PIN      string `json:"pin"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the authenticated user behind a request.
type Actor struct {
	UserID   string
	Username string
	Role     string
}

// ShopSettings is the singleton configuration row. The admin password hash
// stays server-side; everything else is served to the UI as-is.
type ShopSettings struct {
	ID                string    `json:"id"`
	ShopName          string    `json:"shop_name"`
	AddressLine       string    `json:"address_line,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	TaxID             string    `json:"tax_id,omitempty"`
	CurrencySymbol    string    `json:"currency_symbol,omitempty"`
	AdminPasswordHash string    `json:"-"`
	SetupComplete     bool      `json:"setup_complete"`
	CreatedAt         time.Time `json:"created_at"`
}

type SettingsSaveRequest struct {
	ShopName       string `json:"shop_name"`
	AddressLine    string `json:"address_line,omitempty"`
	Phone          string `json:"phone,omitempty"`
	TaxID          string `json:"tax_id,omitempty"`
	CurrencySymbol string `json:"currency_symbol,omitempty"`
	AdminPassword  string `json:"admin_password,omitempty"`
	SetupComplete  bool   `json:"setup_complete"`
}

type SalesSummary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int     `json:"total_quantity"`
	BillCount     int     `json:"bill_count"`
	Bills         []Bill  `json:"bills"`
}

// ProductSales reports per-product totals at price-at-time-of-sale.
type ProductSales struct {
	ProductID    string  `json:"product_id"`
	NameEN       string  `json:"name_en"`
	QuantitySold int     `json:"quantity_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

type InventoryValueResponse struct {
	TotalValue   float64 `json:"total_value"`
	ProductCount int     `json:"product_count"`
}
