package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/charmntreats/internal/config"
	"github.com/example/charmntreats/internal/handlers"
	"github.com/example/charmntreats/internal/localstore"
	"github.com/example/charmntreats/internal/models"
	"github.com/example/charmntreats/internal/repository"
	"github.com/example/charmntreats/internal/services"
	"github.com/example/charmntreats/internal/services/mail"
	"github.com/example/charmntreats/internal/testutil"
	"github.com/example/charmntreats/internal/utils"
)

// inbox is a mail provider that keeps every message.
type inbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (i *inbox) Name() string { return "inbox" }

func (i *inbox) Send(ctx context.Context, msg mail.Message) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, msg)
	return "msg-1", nil
}

var codePattern = regexp.MustCompile(`>(\d{6})<`)

func (i *inbox) lastCode(t *testing.T, to string) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	for j := len(i.msgs) - 1; j >= 0; j-- {
		if i.msgs[j].To == to {
			if m := codePattern.FindStringSubmatch(i.msgs[j].HTML); m != nil {
				return m[1]
			}
		}
	}
	t.Fatalf("no code mailed to %s", to)
	return ""
}

type testServer struct {
	app   *fiber.App
	db    *gorm.DB
	inbox *inbox
	cfg   *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewDB(t)
	local, err := localstore.New(t.TempDir())
	require.NoError(t, err)

	adminHash, err := utils.HashPassword("owner-pass")
	require.NoError(t, err)
	cfg := &config.Config{
		JWTSecret:         "route-secret",
		TokenExpires:      time.Hour,
		AdminEmail:        "owner@charmntreats.com",
		AdminPasswordHash: adminHash,
	}

	box := &inbox{}
	chain := mail.NewChain(mail.NewRelayProvider("", time.Second), box)
	notifier := services.NewNotifier(chain, "", 0, nil)
	customers := repository.NewCustomerRepository(db, local)
	orderRepo := repository.NewOrderRepository(repository.NewGormOrderPrimary(db), local)
	otp := services.NewOTPService(services.NewMemoryOTPStore())

	accounts := services.NewAccountService(customers, otp, notifier, services.AuthConfig{
		JWTSecret:         cfg.JWTSecret,
		TokenTTL:          cfg.TokenExpires,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
	})
	orders := services.NewOrderService(services.NewOrderBuilder(services.DefaultShippingPolicy), orderRepo, customers, nil)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	Register(app, Dependencies{
		Config:    cfg,
		DB:        db,
		Accounts:  accounts,
		Orders:    orders,
		Customers: customers,
		Notifier:  notifier,
		Mail:      chain,
	})

	return &testServer{app: app, db: db, inbox: box, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func checkoutBody(orderID, email string) map[string]any {
	return map[string]any{
		"orderId": orderID,
		"customerInfo": map[string]any{
			"name":    "Asha Rao",
			"email":   email,
			"phone":   "9876543210",
			"address": "12 Lake Road",
			"city":    "Pune",
			"state":   "MH",
			"pincode": "411001",
		},
		"items": []map[string]any{
			{"id": "p1", "name": "Dreamcatcher", "price": 300, "quantity": 1},
			{"id": "p2", "name": "Scented Candle", "price": 250, "quantity": 2},
		},
		"paymentMethod": "cod",
	}
}

func TestSignupLoginAndProfile(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "asha@example.com", "password": "secret1", "full_name": "Asha",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/api/auth/signup/verify", "", map[string]any{
		"email": "asha@example.com", "code": "000000x",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_code", body["reason"])
	assert.Equal(t, float64(2), body["remaining_attempts"])

	code := s.inbox.lastCode(t, "asha@example.com")
	status, body = s.do(t, http.MethodPost, "/api/auth/signup/verify", "", map[string]any{
		"email": "asha@example.com", "code": code,
	})
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])

	status, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "asha@example.com", "password": "secret1",
	})
	require.Equal(t, fiber.StatusOK, status)
	token := body["data"].(map[string]any)["token"].(string)

	status, body = s.do(t, http.MethodPut, "/api/profile", token, map[string]any{"mobile": "9999999999"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "9999999999", body["data"].(map[string]any)["mobile"])

	status, _ = s.do(t, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCheckoutTrackAndAdminFlow(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/orders/checkout", "", checkoutBody("CNT-77", "asha@example.com"))
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(800), data["total_amount"])
	assert.Equal(t, float64(0), data["shipping_cost"])

	status, _ = s.do(t, http.MethodGet, "/api/orders/track/CNT-77?email=other@example.com", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = s.do(t, http.MethodGet, "/api/orders/track/CNT-77?email=asha@example.com", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	progress := body["data"].(map[string]any)["progress"].(map[string]any)
	assert.Equal(t, float64(16), progress["percent"])

	status, body = s.do(t, http.MethodPost, "/api/admin/login", "", map[string]any{
		"email": "owner@charmntreats.com", "password": "owner-pass",
	})
	require.Equal(t, fiber.StatusOK, status)
	adminToken := body["token"].(string)

	status, _ = s.do(t, http.MethodPut, "/api/admin/orders/CNT-77/status", adminToken, map[string]any{"status": "shipped"})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, http.MethodPut, "/api/admin/orders/CNT-77/status", adminToken, map[string]any{"status": "shipped"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, http.MethodPut, "/api/admin/orders/CNT-77/status", adminToken, map[string]any{"status": "teleported"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/admin/orders?status=shipped", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodGet, "/api/admin/orders?page=4611686018427387904&limit=4", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])

	status, body = s.do(t, http.MethodGet, "/api/admin/dashboard", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["total_orders"])

	status, body = s.do(t, http.MethodGet, "/api/admin/customers", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	customerToken, err := utils.GenerateToken(s.cfg.JWTSecret, "asha@example.com", utils.RoleCustomer, time.Hour)
	require.NoError(t, err)
	status, _ = s.do(t, http.MethodGet, "/api/admin/dashboard", customerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.do(t, http.MethodGet, "/api/orders", customerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestCheckoutValidation(t *testing.T) {
	s := newTestServer(t)

	payload := checkoutBody("CNT-78", "")
	status, body := s.do(t, http.MethodPost, "/api/orders/checkout", "", payload)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestSendOrderConfirmationEndpoint(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/send-order-confirmation", "", checkoutBody("CNT-90", "asha@example.com"))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])

	missing := checkoutBody("", "asha@example.com")
	status, _ = s.do(t, http.MethodPost, "/api/send-order-confirmation", "", missing)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/send-order-confirmation", "", nil)
	assert.Equal(t, fiber.StatusMethodNotAllowed, status)

	req := httptest.NewRequest(http.MethodOptions, "/api/send-order-confirmation", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSendEmailRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	msg := map[string]any{"to": "x@example.com", "subject": "Hi", "htmlContent": "<p>Hi</p>"}

	status, _ := s.do(t, http.MethodPost, "/api/send-email", "", msg)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	adminToken, err := utils.GenerateToken(s.cfg.JWTSecret, s.cfg.AdminEmail, utils.RoleAdmin, time.Hour)
	require.NoError(t, err)
	status, body := s.do(t, http.MethodPost, "/api/send-email", adminToken, msg)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "msg-1", body["messageId"])
	assert.Equal(t, "inbox", body["provider"])
}

func TestBlogCommentsAndCatalog(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()

	category := models.BlogCategory{Name: "Crafts", Slug: "crafts"}
	require.NoError(t, s.db.Create(&category).Error)
	post := models.BlogPost{Title: "Making candles", Slug: "making-candles", CategoryID: &category.ID, Published: true, PublishedAt: &now}
	require.NoError(t, s.db.Create(&post).Error)
	require.NoError(t, s.db.Create(&models.Product{Name: "Dreamcatcher", Slug: "dreamcatcher", Category: "dream-catchers", Price: 300}).Error)
	require.NoError(t, s.db.Create(&models.Testimonial{CustomerName: "Ravi", Rating: 5, Content: "Lovely", Featured: true}).Error)

	status, body := s.do(t, http.MethodGet, "/api/blog/posts?category=crafts", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, http.MethodPost, "/api/blog/posts/making-candles/comments", "", map[string]any{"name": "Ravi", "content": "Nice"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/blog/posts/making-candles/comments", "", map[string]any{
		"name": "Ravi", "email": "ravi@example.com", "content": "Nice",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body = s.do(t, http.MethodGet, "/api/blog/posts/making-candles/comments", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])

	status, _ = s.do(t, http.MethodGet, "/api/blog/posts/missing", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = s.do(t, http.MethodGet, "/api/products/dreamcatcher", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Dreamcatcher", body["data"].(map[string]any)["name"])

	status, body = s.do(t, http.MethodGet, "/api/products?search=dream", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodGet, "/api/testimonials", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
}
