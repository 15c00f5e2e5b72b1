package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchplease/facility-booking/services/api-gateway/internal/clients"
	"github.com/pitchplease/facility-booking/services/api-gateway/internal/middlewares"
	"github.com/pitchplease/facility-booking/services/api-gateway/internal/saga"
)

// downstream is an in-memory stand-in for the booking, payment, facility and
// auth services.
type downstream struct {
	mu       sync.Mutex
	groups   map[int64]int // group id -> live slots
	payments []map[string]any
	nextID   int64
	hits     map[string]int
}

func newDownstream() *downstream {
	return &downstream{groups: map[int64]int{}, nextID: 1000, hits: map[string]int{}}
}

func (d *downstream) hit(k string) {
	d.mu.Lock()
	d.hits[k]++
	d.mu.Unlock()
}

func (d *downstream) booking() http.Handler {
	r := gin.New()
	r.POST("/create", func(c *gin.Context) {
		d.hit("booking.create")
		var in struct {
			UserID     int64           `json:"userId"`
			FacilityID int64           `json:"facilityId"`
			TimeSlots  []saga.TimeSlot `json:"timeSlots"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d.mu.Lock()
		d.nextID++
		id := d.nextID
		d.groups[id] = len(in.TimeSlots)
		d.mu.Unlock()
		bookings := make([]gin.H, 0, len(in.TimeSlots))
		for _, s := range in.TimeSlots {
			bookings = append(bookings, gin.H{
				"bookingGroupId": id,
				"totalPrice":     strconv.Itoa((s.EndHour-s.StartHour)*20) + ".00",
				"status":         "completed",
			})
		}
		c.JSON(http.StatusCreated, gin.H{
			"bookingGroupId": id, "userId": in.UserID, "facilityId": in.FacilityID,
			"status": "COMPLETED", "bookings": bookings,
		})
	})
	r.DELETE("/cancel-group", func(c *gin.Context) {
		d.hit("booking.cancel")
		id, _ := strconv.ParseInt(c.Query("bookingGroupId"), 10, 64)
		d.mu.Lock()
		n := d.groups[id]
		d.groups[id] = 0
		d.mu.Unlock()
		status := "cancelled"
		if n == 0 {
			status = "not_found"
		}
		c.JSON(http.StatusOK, gin.H{"bookingGroupId": id, "cancelledCount": n, "status": status})
	})
	r.GET("/get_available_slots", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"facilityId": c.Query("facilityId"), "date": c.Query("date"), "availableSlots": []gin.H{}})
	})
	r.GET("/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	})
	return r
}

func (d *downstream) payment() http.Handler {
	r := gin.New()
	r.POST("/create", func(c *gin.Context) {
		d.hit("payment.create")
		var in map[string]any
		_ = c.ShouldBindJSON(&in)
		if in["paymentMethod"] != "Credit Card" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported payment method: " + in["paymentMethod"].(string)})
			return
		}
		in["paymentStatus"] = "COMPLETED"
		in["transactionId"] = "cc_0123456789"
		d.mu.Lock()
		d.payments = append(d.payments, in)
		d.mu.Unlock()
		c.JSON(http.StatusCreated, in)
	})
	r.PUT("/update_status_by_bookingID", func(c *gin.Context) {
		d.hit("payment.by_group")
		id, _ := strconv.ParseFloat(c.Query("bookingId"), 64)
		d.mu.Lock()
		n := 0
		for _, p := range d.payments {
			if p["bookingGroupId"] == id {
				p["paymentStatus"] = c.Query("status")
				n++
			}
		}
		d.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"updatedCount": n})
	})
	r.PUT("/update_status_by_facilityId", func(c *gin.Context) {
		d.hit("payment.by_facility")
		c.JSON(http.StatusOK, gin.H{"updatedCount": 0})
	})
	r.GET("/user/:userId", func(c *gin.Context) {
		d.mu.Lock()
		defer d.mu.Unlock()
		c.JSON(http.StatusOK, d.payments)
	})
	return r
}

func (d *downstream) facility() http.Handler {
	r := gin.New()
	r.DELETE("/delete", func(c *gin.Context) {
		d.hit("facility.delete")
		c.JSON(http.StatusOK, gin.H{"message": "Facility deleted", "facilityId": c.Query("facilityId")})
	})
	r.GET("/search", func(c *gin.Context) {
		d.hit("facility.search")
		c.JSON(http.StatusOK, []gin.H{{"facilityId": 5, "city": c.Query("city"), "minPrice": c.Query("minPrice")}})
	})
	return r
}

func (d *downstream) auth() http.Handler {
	r := gin.New()
	r.POST("/validate-token", func(c *gin.Context) {
		switch c.GetHeader("Authorization") {
		case "Bearer user-token":
			c.JSON(http.StatusOK, gin.H{"valid": true, "sub": "u-1", "role": "USER"})
		case "Bearer owner-token":
			c.JSON(http.StatusOK, gin.H{"valid": true, "sub": "u-2", "role": "OWNER"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		}
	})
	r.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"accessToken": "user-token"})
	})
	return r
}

func newGateway(t *testing.T) (*gin.Engine, *downstream) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	d := newDownstream()

	start := func(h http.Handler) *clients.Client {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		return clients.New("stub", srv.URL, 2*time.Second)
	}
	authC, bookingC, paymentC, facilityC := start(d.auth()), start(d.booking()), start(d.payment()), start(d.facility())

	orch := saga.New(clients.NewBooking(bookingC), clients.NewPayment(paymentC), clients.NewFacility(facilityC), time.Second, log)
	r := gin.New()
	Routes{
		Gate:     middlewares.AuthGate(clients.NewAuth(authC), []string{"/api/auth/login"}, false, log),
		Auth:     NewAuthHandler(authC, log),
		Booking:  NewBookingHandler(bookingC, orch, log),
		Payment:  NewPaymentHandler(paymentC, orch, log),
		Facility: NewFacilityHandler(facilityC, orch, log),
	}.Mount(r)
	return r, d
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sagaBody(method string) map[string]any {
	return map[string]any{
		"userId": 1, "facilityId": 5, "date": "2024-06-01",
		"timeSlots":   []map[string]int{{"startHour": 10, "endHour": 12}},
		"totalAmount": 40, "paymentMethod": method,
		"userName": "alice", "facilityName": "Court A",
	}
}

func TestSagaCreateEndToEnd(t *testing.T) {
	r, _ := newGateway(t)
	w := call(t, r, http.MethodPost, "/api/payments/create", "user-token", sagaBody("Credit Card"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		BookingGroupID int64            `json:"bookingGroupId"`
		Bookings       []map[string]any `json:"bookings"`
		Payment        map[string]any   `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, int64(1001), out.BookingGroupID)
	require.Len(t, out.Bookings, 1)
	assert.Equal(t, "40.00", out.Bookings[0]["totalPrice"])
	assert.Equal(t, "COMPLETED", out.Payment["paymentStatus"])
	assert.Equal(t, float64(1001), out.Payment["bookingGroupId"])
	assert.Regexp(t, `^cc_`, out.Payment["transactionId"])
}

func TestSagaPaymentFailureKeepsBooking(t *testing.T) {
	r, d := newGateway(t)
	w := call(t, r, http.MethodPost, "/api/payments/create", "user-token", sagaBody("Bitcoin"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Unsupported payment method: Bitcoin"}`, w.Body.String())
	assert.Equal(t, "1001", w.Header().Get("X-Booking-Group-Id"))

	assert.Equal(t, 1, d.groups[1001])
	assert.Equal(t, 0, d.hits["booking.cancel"])
}

func TestSagaValidationNeverLeavesGateway(t *testing.T) {
	r, d := newGateway(t)
	body := sagaBody("Credit Card")
	body["timeSlots"] = []map[string]int{}
	w := call(t, r, http.MethodPost, "/api/payments/create", "user-token", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, d.hits["booking.create"])
	assert.Zero(t, d.hits["payment.create"])
}

func TestCancelGroupCascadesToPayment(t *testing.T) {
	r, d := newGateway(t)
	require.Equal(t, http.StatusCreated, call(t, r, http.MethodPost, "/api/payments/create", "user-token", sagaBody("Credit Card")).Code)

	w := call(t, r, http.MethodDelete, "/api/bookings/cancel-group?bookingGroupId=1001", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"bookingGroupId":1001,"cancelledCount":1,"status":"cancelled"}`, w.Body.String())
	assert.Equal(t, 1, d.hits["payment.by_group"])

	w = call(t, r, http.MethodGet, "/api/payments/user/1", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "CANCELLED", payments[0]["paymentStatus"])

	w = call(t, r, http.MethodDelete, "/api/bookings/cancel-group?bookingGroupId=4242", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelledCount":0`)
	assert.Equal(t, 2, d.hits["payment.by_group"])
}

func TestDeleteFacilityRequiresOwnerAndCascades(t *testing.T) {
	r, d := newGateway(t)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodDelete, "/api/facilities/delete?facilityId=5", "user-token", nil).Code)
	assert.Zero(t, d.hits["facility.delete"])

	w := call(t, r, http.MethodDelete, "/api/facilities/delete?facilityId=5", "owner-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, d.hits["facility.delete"])
	assert.Equal(t, 1, d.hits["payment.by_facility"])
}

func TestFacilitySearchForwardsFilters(t *testing.T) {
	r, d := newGateway(t)
	w := call(t, r, http.MethodGet, "/api/facilities/search?city=Bangkok&minPrice=10&ignored=1", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[{"facilityId":5,"city":"Bangkok","minPrice":"10"}]`, w.Body.String())
	assert.Equal(t, 1, d.hits["facility.search"])
}

func TestGateOnEdgeRoutes(t *testing.T) {
	r, _ := newGateway(t)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/bookings/available_slots?facilityId=5&date=2024-06-01", "forged", nil).Code)

	w := call(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.c"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-token")

	w = call(t, r, http.MethodGet, "/api/bookings/available_slots?facilityId=5&date=2024-06-01", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"date":"2024-06-01"`)

	// downstream 404 relayed as-is
	w = call(t, r, http.MethodGet, "/api/bookings/77", "user-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"booking not found"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/healthz", "", nil).Code)
}
