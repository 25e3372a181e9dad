package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/service"
	"kadaipos/engine/internal/store"
)

const maxBodyBytes = 1 << 20

// Server exposes the engine over JSON/HTTP for the register UI.
type Server struct {
	svc           *service.Service
	auth          *AuthManager
	logins        *attemptLimiter
	allowedOrigin string
	mux           *http.ServeMux
}

func NewServer(svc *service.Service, auth *AuthManager, allowedOrigin string) *Server {
	s := &Server{
		svc:           svc,
		auth:          auth,
		logins:        newAttemptLimiter(5, 10*time.Minute),
		allowedOrigin: allowedOrigin,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/login", s.handleLogin)

	s.mux.Handle("GET /api/products", s.requireAuth(s.handleListProducts))
	s.mux.Handle("POST /api/products", s.requireAuth(s.handleCreateProduct, domain.RoleSuperAdmin, domain.RoleAdmin))
	s.mux.Handle("POST /api/products/bulk", s.requireAuth(s.handleBulkImport, domain.RoleSuperAdmin, domain.RoleAdmin))
	s.mux.Handle("GET /api/products/search", s.requireAuth(s.handleSearchProducts))
	s.mux.Handle("GET /api/products/barcode/{barcode}", s.requireAuth(s.handleProductByBarcode))
	s.mux.Handle("GET /api/products/code/{code}", s.requireAuth(s.handleProductByCode))
	s.mux.Handle("GET /api/products/{id}", s.requireAuth(s.handleGetProduct))
	s.mux.Handle("PUT /api/products/{id}", s.requireAuth(s.handleUpdateProduct, domain.RoleSuperAdmin, domain.RoleAdmin))
	s.mux.Handle("DELETE /api/products/{id}", s.requireAuth(s.handleDeleteProduct, domain.RoleSuperAdmin, domain.RoleAdmin))

	s.mux.Handle("GET /api/categories", s.requireAuth(s.handleListCategories))
	s.mux.Handle("POST /api/categories", s.requireAuth(s.handleCreateCategory, domain.RoleSuperAdmin, domain.RoleAdmin))
	s.mux.Handle("PUT /api/categories/{id}", s.requireAuth(s.handleUpdateCategory, domain.RoleSuperAdmin, domain.RoleAdmin))
	s.mux.Handle("DELETE /api/categories/{id}", s.requireAuth(s.handleDeleteCategory, domain.RoleSuperAdmin, domain.RoleAdmin))

	s.mux.Handle("POST /api/bills", s.requireAuth(s.handleCreateBill))
	s.mux.Handle("GET /api/bills", s.requireAuth(s.handleListBills))
	s.mux.Handle("GET /api/bills/{id}", s.requireAuth(s.handleGetBill))
	s.mux.Handle("PUT /api/bills/{id}", s.requireAuth(s.handleUpdateBill, domain.RoleSuperAdmin, domain.RoleAdmin))
	s.mux.Handle("POST /api/bills/{id}/print", s.requireAuth(s.handlePrintBill))

	s.mux.Handle("GET /api/reports/sales", s.requireAuth(s.handleSalesSummary))
	s.mux.Handle("GET /api/reports/products", s.requireAuth(s.handleProductSales))
	s.mux.Handle("GET /api/reports/low-stock", s.requireAuth(s.handleLowStock))
	s.mux.Handle("GET /api/reports/inventory-value", s.requireAuth(s.handleInventoryValue))

	s.mux.Handle("GET /api/customers", s.requireAuth(s.handleListCustomers))
	s.mux.Handle("POST /api/customers", s.requireAuth(s.handleCreateCustomer))
	s.mux.Handle("GET /api/customers/phone/{phone}", s.requireAuth(s.handleCustomerByPhone))

	s.mux.Handle("GET /api/users", s.requireAuth(s.handleListUsers, domain.RoleSuperAdmin, domain.RoleAdmin))
	s.mux.Handle("POST /api/users", s.requireAuth(s.handleCreateUser, domain.RoleSuperAdmin))
	s.mux.Handle("DELETE /api/users/{id}", s.requireAuth(s.handleDeleteUser, domain.RoleSuperAdmin))

	s.mux.Handle("GET /api/settings", s.requireAuth(s.handleGetSettings))
	s.mux.Handle("PUT /api/settings", s.requireAuth(s.handleSaveSettings, domain.RoleSuperAdmin))

	s.mux.Handle("POST /api/admin/reset-bills", s.requireAuth(s.handleResetBills, domain.RoleSuperAdmin))
	s.mux.Handle("POST /api/admin/factory-reset", s.requireAuth(s.handleFactoryReset, domain.RoleSuperAdmin))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	s.mux.ServeHTTP(w, r)
}

// requireAuth verifies the bearer token, attaches the actor to the request
// context and optionally gates on role. The service layer re-checks roles
// on every privileged operation; this is the outer gate.
func (s *Server) requireAuth(next http.HandlerFunc, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		actor, err := s.auth.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if actor.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
		}
		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	key := clientKey(r, req)
	if !s.logins.allowed(key) {
		writeError(w, http.StatusTooManyRequests, "too many failed attempts, try again later")
		return
	}

	resp, err := s.auth.Login(r.Context(), req)
	if errors.Is(err, errInvalidCredentials) {
		s.logins.recordFailure(key)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logins.reset(key)
	writeJSON(w, http.StatusOK, resp)
}

func clientKey(r *http.Request, req domain.LoginRequest) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if req.Username != "" {
		return host + "|" + strings.ToLower(req.Username)
	}
	return host + "|" + req.Phone
}

// --- products ---

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.ListProducts(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleProductByBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.GetProductByBarcode(r.Context(), r.PathValue("barcode"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "no product with that barcode")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleProductByCode(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.GetProductByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "no product with that code")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	products, err := s.svc.SearchProducts(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := s.svc.CreateProduct(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := s.svc.UpdateProduct(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	var reqs []domain.ProductCreateRequest
	if !decodeBody(w, r, &reqs) {
		return
	}
	count, err := s.svc.BulkImportProducts(r.Context(), reqs)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"imported": count})
}

// --- categories ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.ListCategories(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	category, err := s.svc.CreateCategory(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	category, err := s.svc.UpdateCategory(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- bills ---

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req domain.BillCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	bill, err := s.svc.CreateBill(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bills, err := s.svc.ListBills(r.Context(), from, to)
	if err != nil {
		s.fail(w, err)
		return
	}
	if bills == nil {
		bills = []domain.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.GetBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var req domain.BillUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	bill, err := s.svc.UpdateBill(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handlePrintBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.MarkPrinted(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// --- reports ---

func (s *Server) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := s.svc.SalesSummary(r.Context(), from, to)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleProductSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := s.svc.ProductSales(r.Context(), from, to)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be an integer")
			return
		}
		threshold = n
	}
	products, err := s.svc.LowStock(r.Context(), threshold)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	value, err := s.svc.InventoryValue(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

// --- customers ---

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.svc.ListCustomers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	customer, err := s.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) handleCustomerByPhone(w http.ResponseWriter, r *http.Request) {
	customer, err := s.svc.GetCustomerByPhone(r.Context(), r.PathValue("phone"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "no customer with that phone")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// --- users ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := s.svc.CreateUser(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- settings & maintenance ---

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.GetSettings(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SettingsSaveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	settings, err := s.svc.SaveSettings(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleResetBills(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetTransactionalData(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetAll(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

// parseTimeRange reads from/to query params as RFC 3339 or plain dates.
// Defaults cover the current day: a bare date in "to" means end of day.
func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, _, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, dateOnly, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = t
	}
	return from, to, nil
}

func parseTimeParam(raw string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	if t, err = time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, errors.New("time must be RFC 3339 or YYYY-MM-DD")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] WARN: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps domain errors to HTTP statuses. Unknown errors become 500s
// with the detail kept in the server log only.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, store.ErrEmptyCart), errors.Is(err, store.ErrDecode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConstraint):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("[httpapi] ERROR: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
