package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"payment-service/config"
	"payment-service/controllers"
	"payment-service/middleware"
	"payment-service/models"
	"payment-service/repository"
	"payment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---- mock payment repository ----

type mockPaymentRepo struct {
	created   *models.Payment
	createErr error

	payment *models.Payment
	findErr error

	applied     bool
	applyErr    error
	applyUpdate *repository.NotificationUpdate

	updatedStatus   string
	updateStatusErr error

	savedCoords     *models.Coordinates
	coordsUpdated   bool
	updateCoordsErr error

	customerPayments   []models.Payment
	restaurantPayments []models.Payment
	listErr            error
}

func (m *mockPaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = payment
	return nil
}

func (m *mockPaymentRepo) FindByOrderID(_ context.Context, _ string) (*models.Payment, error) {
	return m.payment, m.findErr
}

func (m *mockPaymentRepo) ApplyNotification(_ context.Context, _ string, update repository.NotificationUpdate) (bool, error) {
	m.applyUpdate = &update
	return m.applied, m.applyErr
}

func (m *mockPaymentRepo) UpdateStatus(_ context.Context, _ string, status string) error {
	m.updatedStatus = status
	return m.updateStatusErr
}

func (m *mockPaymentRepo) UpdateCoordinates(_ context.Context, _ string, coords *models.Coordinates) error {
	m.coordsUpdated = true
	m.savedCoords = coords
	return m.updateCoordsErr
}

func (m *mockPaymentRepo) FindByCustomerID(_ context.Context, _ string) ([]models.Payment, error) {
	return m.customerPayments, m.listErr
}

func (m *mockPaymentRepo) FindByRestaurantID(_ context.Context, _ string) ([]models.Payment, error) {
	return m.restaurantPayments, m.listErr
}

// ---- mock sync task repository ----

type mockTaskRepo struct {
	enqueued   []models.OrderSyncTask
	enqueueCtx context.Context
	enqueueErr error
}

func (m *mockTaskRepo) Enqueue(ctx context.Context, orderID, paymentStatus, paymentID string) (*models.OrderSyncTask, error) {
	m.enqueueCtx = ctx
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	task := models.OrderSyncTask{OrderID: orderID, PaymentStatus: paymentStatus, PaymentID: paymentID}
	m.enqueued = append(m.enqueued, task)
	return &task, nil
}

func (m *mockTaskRepo) ClaimDue(_ context.Context, _ time.Time) (*models.OrderSyncTask, error) {
	return nil, nil
}
func (m *mockTaskRepo) MarkDone(_ context.Context, _ string) error { return nil }
func (m *mockTaskRepo) Reschedule(_ context.Context, _ string, _ int, _ time.Time, _ string) error {
	return nil
}
func (m *mockTaskRepo) MarkFailed(_ context.Context, _ string, _ string) error { return nil }

// ---- mock geocoder / order notifier ----

type mockGeocoder struct {
	coords *models.Coordinates
}

func (m *mockGeocoder) Geocode(_ context.Context, _, _, _, _ string) *models.Coordinates {
	return m.coords
}

type mockNotifier struct {
	err        error
	calls      int
	lastStatus string
}

func (m *mockNotifier) UpdatePaymentStatus(_ context.Context, _, paymentStatus, _ string) error {
	m.calls++
	m.lastStatus = paymentStatus
	return m.err
}

// ---- fixture ----

type fixture struct {
	repo     *mockPaymentRepo
	tasks    *mockTaskRepo
	geocoder *mockGeocoder
	orders   *mockNotifier
	router   *gin.Engine
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)

	f := &fixture{
		repo:     &mockPaymentRepo{},
		tasks:    &mockTaskRepo{},
		geocoder: &mockGeocoder{},
		orders:   &mockNotifier{},
	}

	pc := &controllers.PaymentController{
		Repo:     f.repo,
		Tasks:    f.tasks,
		PayHere:  services.NewPayHereService("1211149", "MySecret123"),
		Geocoder: f.geocoder,
		Orders:   f.orders,
		Config: &config.Config{
			PayHereMerchantID: "1211149",
			PayHereReturnURL:  "https://app.example/return",
			PayHereCancelURL:  "https://app.example/cancel",
			PayHereNotifyURL:  "https://api.example/api/payments/callback",
		},
		Logger: zap.NewNop(),
	}

	r := gin.New()
	// Stand-in for AuthMiddleware: tests inject the authenticated user.
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(middleware.UserContextKey, uid)
		}
	})
	r.POST("/api/payments/initialize", pc.InitializePayment)
	r.POST("/api/payments/callback", pc.HandlePayHereNotify)
	r.GET("/api/payments/status/:orderId", pc.GetPaymentStatus)
	r.PUT("/api/payments/status/:orderId", pc.UpdatePaymentStatus)
	r.GET("/api/payments/customer", pc.ListCustomerPayments)
	r.GET("/api/payments/restaurant/:restaurantId", pc.ListRestaurantPayments)
	r.POST("/api/payments/customer/order/:orderId/regenerate-coordinates", pc.RegenerateCoordinates)
	r.POST("/api/payments/sync/:orderId", pc.SyncPaymentWithOrder)
	f.router = r
	return f
}

func (f *fixture) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func validInitBody() map[string]interface{} {
	return map[string]interface{}{
		"orderId":      "ORD-1",
		"customerId":   "CUST-1",
		"restaurantId": "REST-1",
		"amount":       1000,
		"items": []map[string]interface{}{
			{"name": "Burger", "price": 1000, "quantity": 1},
		},
		"customerDetails": map[string]interface{}{
			"firstName": "Nimal",
			"lastName":  "Perera",
			"email":     "nimal@example.com",
			"phone":     "0771234567",
			"address":   "12 Galle Road",
			"city":      "Colombo",
		},
	}
}

// ---- initialize ----

func TestInitializePayment_Success(t *testing.T) {
	f := newFixture()
	f.geocoder.coords = &models.Coordinates{Latitude: 6.9271, Longitude: 79.8612}

	w := f.do(http.MethodPost, "/api/payments/initialize", validInitBody(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	if assert.NotNil(t, f.repo.created) {
		assert.Equal(t, models.StatusPending, f.repo.created.Status)
		assert.Equal(t, "LKR", f.repo.created.Currency)
		assert.Equal(t, "ORD-1", f.repo.created.OrderID)
		assert.NotNil(t, f.repo.created.CustomerDetails.Coordinates)
	}

	var resp struct {
		PaymentData         map[string]interface{} `json:"paymentData"`
		CustomerCoordinates *models.Coordinates    `json:"customerCoordinates"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "1000.00", resp.PaymentData["amount"])
	assert.Equal(t, "LKR", resp.PaymentData["currency"])
	assert.Equal(t, "Burger", resp.PaymentData["items"])
	assert.Equal(t, "CUST-1", resp.PaymentData["custom_1"])
	assert.Equal(t, "REST-1", resp.PaymentData["custom_2"])
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{32}$`), resp.PaymentData["hash"])
	if assert.NotNil(t, resp.CustomerCoordinates) {
		assert.Equal(t, 6.9271, resp.CustomerCoordinates.Latitude)
	}
}

func TestInitializePayment_MissingFields(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/payments/initialize", map[string]interface{}{"orderId": "ORD-1"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.repo.created)
}

func TestInitializePayment_DuplicateOrder(t *testing.T) {
	f := newFixture()
	f.repo.createErr = repository.ErrDuplicateOrder

	w := f.do(http.MethodPost, "/api/payments/initialize", validInitBody(), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already initialized")
}

func TestInitializePayment_GeocodingFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	f.geocoder.coords = nil

	w := f.do(http.MethodPost, "/api/payments/initialize", validInitBody(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp["customerCoordinates"])
	if assert.NotNil(t, f.repo.created) {
		assert.Nil(t, f.repo.created.CustomerDetails.Coordinates)
	}
}

// ---- status read ----

func TestGetPaymentStatus_NotFound(t *testing.T) {
	f := newFixture()
	f.repo.findErr = repository.ErrPaymentNotFound

	w := f.do(http.MethodGet, "/api/payments/status/ORD-404", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPaymentStatus_Success(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{
		OrderID:   "ORD-1",
		Status:    models.StatusSuccess,
		Amount:    1000,
		Currency:  "LKR",
		PaymentID: "PAY-9",
	}

	w := f.do(http.MethodGet, "/api/payments/status/ORD-1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "PAY-9", resp["paymentId"])
}

// ---- manual status override ----

func TestUpdatePaymentStatus_InvalidStatus(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{OrderID: "ORD-1", Status: models.StatusPending}

	w := f.do(http.MethodPut, "/api/payments/status/ORD-1", map[string]string{"status": "paid"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.repo.updatedStatus)
}

func TestUpdatePaymentStatus_SuccessEnqueuesSync(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{OrderID: "ORD-1", Status: models.StatusPending, PaymentID: "PAY-1"}

	w := f.do(http.MethodPut, "/api/payments/status/ORD-1", map[string]string{"status": "success"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusSuccess, f.repo.updatedStatus)

	if assert.Len(t, f.tasks.enqueued, 1) {
		assert.Equal(t, "ORD-1", f.tasks.enqueued[0].OrderID)
		assert.Equal(t, "Paid", f.tasks.enqueued[0].PaymentStatus)
	}
}

func TestUpdatePaymentStatus_NonSuccessDoesNotEnqueue(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{OrderID: "ORD-1", Status: models.StatusPending}

	w := f.do(http.MethodPut, "/api/payments/status/ORD-1", map[string]string{"status": "failed"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.tasks.enqueued)
}

// ---- listings ----

func TestListCustomerPayments(t *testing.T) {
	f := newFixture()
	f.repo.customerPayments = []models.Payment{{OrderID: "ORD-1", CustomerID: "CUST-1"}}

	w := f.do(http.MethodGet, "/api/payments/customer", nil, map[string]string{"X-Test-User": "CUST-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ORD-1")
}

func TestListRestaurantPayments_WrongOwner(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/payments/restaurant/REST-2", nil, map[string]string{"X-Test-User": "REST-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListRestaurantPayments_Owner(t *testing.T) {
	f := newFixture()
	f.repo.restaurantPayments = []models.Payment{{OrderID: "ORD-7", RestaurantID: "REST-1"}}

	w := f.do(http.MethodGet, "/api/payments/restaurant/REST-1", nil, map[string]string{"X-Test-User": "REST-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ORD-7")
}

// ---- coordinate regeneration ----

func TestRegenerateCoordinates_NoStoredAddress(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{OrderID: "ORD-1", Status: models.StatusPending}

	w := f.do(http.MethodPost, "/api/payments/customer/order/ORD-1/regenerate-coordinates", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, f.repo.coordsUpdated)
}

func TestRegenerateCoordinates_Success(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{
		OrderID: "ORD-1",
		CustomerDetails: models.CustomerDetails{
			Address: "12 Galle Road",
			City:    "Colombo",
		},
	}
	f.geocoder.coords = &models.Coordinates{Latitude: 6.9, Longitude: 79.8}

	w := f.do(http.MethodPost, "/api/payments/customer/order/ORD-1/regenerate-coordinates", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.repo.coordsUpdated)
	if assert.NotNil(t, f.repo.savedCoords) {
		assert.Equal(t, 6.9, f.repo.savedCoords.Latitude)
	}
}

func TestRegenerateCoordinates_GeocodingFails(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{
		OrderID:         "ORD-1",
		CustomerDetails: models.CustomerDetails{Address: "12 Galle Road"},
	}
	f.geocoder.coords = nil

	w := f.do(http.MethodPost, "/api/payments/customer/order/ORD-1/regenerate-coordinates", nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, f.repo.coordsUpdated)
}

// ---- manual sync ----

func TestSyncPaymentWithOrder_NotSuccessful(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{OrderID: "ORD-1", Status: models.StatusPending}

	w := f.do(http.MethodPost, "/api/payments/sync/ORD-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.orders.calls)
}

func TestSyncPaymentWithOrder_Success(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{OrderID: "ORD-1", Status: models.StatusSuccess, PaymentID: "PAY-1"}

	w := f.do(http.MethodPost, "/api/payments/sync/ORD-1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.orders.calls)
	assert.Equal(t, "Paid", f.orders.lastStatus)
}

func TestSyncPaymentWithOrder_OrderServiceDown(t *testing.T) {
	f := newFixture()
	f.repo.payment = &models.Payment{OrderID: "ORD-1", Status: models.StatusSuccess}
	f.orders.err = assert.AnError

	w := f.do(http.MethodPost, "/api/payments/sync/ORD-1", nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
