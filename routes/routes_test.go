package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/middleware"
	"salonsync-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu   sync.Mutex
	sent []services.Message
}

func (o *outbox) Send(ctx context.Context, msg services.Message) (*services.Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return &services.Receipt{Channel: services.ChannelSMS, ProviderID: "SM1"}, nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	outbox *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("BCRYPT_COST", "4")

	dsn := filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	previous := config.DB
	config.DB = db

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{Rate: 100})
	t.Cleanup(func() {
		limiter.Stop()
		config.DB = previous
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	box := &outbox{}
	return &testServer{
		t:      t,
		router: SetupRouter(Deps{Notifier: box, RateLimiter: limiter}),
		outbox: box,
	}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// expect asserts the status and returns the decoded body
func (s *testServer) expect(w *httptest.ResponseRecorder, code int) map[string]interface{} {
	s.t.Helper()
	require.Equal(s.t, code, w.Code, w.Body.String())
	return decode(s.t, w)
}

func (s *testServer) register(email string) string {
	s.t.Helper()
	body := s.expect(s.do(http.MethodPost, "/auth/register", "", gin.H{
		"email":     email,
		"password":  "Sup3rSecret!",
		"firstName": "Jordan",
		"lastName":  "Reyes",
	}), http.StatusCreated)
	return body["token"].(string)
}

// createSalon returns the salon id and slug
func (s *testServer) createSalon(token, name string) (string, string) {
	s.t.Helper()
	body := s.expect(s.do(http.MethodPost, "/api/salons", token, gin.H{"name": name}), http.StatusCreated)
	return body["id"].(string), body["slug"].(string)
}

// nextOpenDay skips Sundays, which are closed by default
func nextOpenDay(days int) time.Time {
	d := time.Now().AddDate(0, 0, days)
	if d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	body := s.expect(s.do(http.MethodGet, "/health", "", nil), http.StatusOK)
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register("jordan@example.com")

	me := s.expect(s.do(http.MethodGet, "/auth/me", token, nil), http.StatusOK)
	assert.Equal(t, "jordan@example.com", me["user"].(map[string]interface{})["email"])

	s.expect(s.do(http.MethodPost, "/auth/register", "", gin.H{
		"email": "JORDAN@example.com", "password": "Sup3rSecret!", "firstName": "J",
	}), http.StatusConflict)

	login := s.expect(s.do(http.MethodPost, "/auth/login", "", gin.H{
		"email": "jordan@example.com", "password": "Sup3rSecret!",
	}), http.StatusOK)
	assert.NotEmpty(t, login["token"])

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/salons", "", nil).Code)
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	s.register("locked@example.com")

	wrong := gin.H{"email": "locked@example.com", "password": "nope-nope"}
	for i := 0; i < 4; i++ {
		s.expect(s.do(http.MethodPost, "/auth/login", "", wrong), http.StatusUnauthorized)
	}
	s.expect(s.do(http.MethodPost, "/auth/login", "", wrong), http.StatusLocked)

	// the right password is refused while locked
	s.expect(s.do(http.MethodPost, "/auth/login", "", gin.H{
		"email": "locked@example.com", "password": "Sup3rSecret!",
	}), http.StatusLocked)
}

func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice@example.com")
	bob := s.register("bob@example.com")

	aliceSalon, _ := s.createSalon(alice, "Alice Hair")
	bobSalon, _ := s.createSalon(bob, "Bob Barbers")

	client := s.expect(s.do(http.MethodPost, "/api/salons/"+aliceSalon+"/clients", alice, gin.H{
		"firstName": "Ava", "phone": "+15551230000",
	}), http.StatusCreated)
	assert.Equal(t, aliceSalon, client["salonId"])

	s.expect(s.do(http.MethodGet, "/api/salons/"+aliceSalon+"/clients", bob, nil), http.StatusForbidden)
	s.expect(s.do(http.MethodGet, "/api/salons/"+aliceSalon+"/clients/"+client["id"].(string), bob, nil), http.StatusForbidden)

	// a record id from another salon is not found under the caller's salon
	s.expect(s.do(http.MethodGet, "/api/salons/"+bobSalon+"/clients/"+client["id"].(string), bob, nil), http.StatusNotFound)

	list := s.expect(s.do(http.MethodGet, "/api/salons", bob, nil), http.StatusOK)
	assert.NotContains(t, w2s(t, list), aliceSalon)
}

func w2s(t *testing.T, v interface{}) string {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestSaleUsesSalonFromURL(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, _ := s.createSalon(owner, "Studio Glow")

	sale := s.expect(s.do(http.MethodPost, "/api/salons/"+salonID+"/sales", owner, gin.H{
		"salonId":       uuid.NewString(),
		"paymentMethod": "card",
		"taxAmount":     4.5,
		"items": []gin.H{
			{"itemType": "service", "name": "Blowout", "unitPrice": 45},
		},
	}), http.StatusCreated)

	assert.Equal(t, salonID, sale["salonId"])
	assert.Equal(t, 49.5, sale["total"])
	assert.Equal(t, "completed", sale["paymentStatus"])
}

func TestAppointmentFlow(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, _ := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID

	staff := s.expect(s.do(http.MethodPost, base+"/staff", owner, gin.H{"firstName": "Maya", "lastName": "Lopez"}), http.StatusCreated)
	service := s.expect(s.do(http.MethodPost, base+"/services", owner, gin.H{"name": "Cut & Style", "price": 80, "durationMins": 60}), http.StatusCreated)
	client := s.expect(s.do(http.MethodPost, base+"/clients", owner, gin.H{"firstName": "Ava", "phone": "+15551230000"}), http.StatusCreated)

	start := nextOpenDay(3).Add(10 * time.Hour)
	book := func(at time.Time) *httptest.ResponseRecorder {
		return s.do(http.MethodPost, base+"/appointments", owner, gin.H{
			"clientId":  client["id"],
			"staffId":   staff["id"],
			"startTime": at.Format(time.RFC3339),
			"services":  []gin.H{{"serviceId": service["id"]}},
		})
	}

	appt := s.expect(book(start), http.StatusCreated)
	assert.Equal(t, "scheduled", appt["status"])
	assert.Equal(t, 80.0, appt["estimatedTotal"])
	assert.NotEmpty(t, appt["confirmationCode"])

	conflict := s.expect(book(start.Add(30*time.Minute)), http.StatusConflict)
	assert.Contains(t, conflict["error"], "not available")

	s.expect(book(start.Add(time.Hour)), http.StatusCreated)

	id := appt["id"].(string)
	for _, step := range []struct{ action, status string }{
		{"confirm", "confirmed"},
		{"check-in", "checked_in"},
		{"start", "in_progress"},
		{"complete", "completed"},
	} {
		body := s.expect(s.do(http.MethodPost, base+"/appointments/"+id+"/"+step.action, owner, nil), http.StatusOK)
		assert.Equal(t, step.status, body["status"], step.action)
	}

	s.expect(s.do(http.MethodPost, base+"/appointments/"+id+"/cancel", owner, nil), http.StatusBadRequest)

	reloaded := s.expect(s.do(http.MethodGet, base+"/clients/"+client["id"].(string), owner, nil), http.StatusOK)
	assert.Equal(t, 1.0, reloaded["visitCount"])
}

func TestCreateSalonPromotesOwner(t *testing.T) {
	s := newTestServer(t)
	token := s.register("owner@example.com")

	me := s.expect(s.do(http.MethodGet, "/auth/me", token, nil), http.StatusOK)
	assert.Equal(t, "client", me["user"].(map[string]interface{})["role"])
	assert.Empty(t, me["salons"])

	salonID, _ := s.createSalon(token, "Studio Glow")

	me = s.expect(s.do(http.MethodGet, "/auth/me", token, nil), http.StatusOK)
	assert.Equal(t, "owner", me["user"].(map[string]interface{})["role"])
	salons := me["salons"].([]interface{})
	require.Len(t, salons, 1)
	membership := salons[0].(map[string]interface{})
	assert.Equal(t, salonID, membership["salonId"])
	assert.Equal(t, "owner", membership["role"])
}

func TestClientTagsPersist(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, _ := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID + "/clients"

	client := s.expect(s.do(http.MethodPost, base, owner, gin.H{"firstName": "Ava", "tags": []string{"vip"}}), http.StatusCreated)
	id := client["id"].(string)
	s.expect(s.do(http.MethodPost, base, owner, gin.H{"firstName": "Liam"}), http.StatusCreated)

	s.expect(s.do(http.MethodPost, base+"/"+id+"/tags", owner, gin.H{"tags": []string{"color", " balayage ", "vip"}}), http.StatusOK)

	reloaded := s.expect(s.do(http.MethodGet, base+"/"+id, owner, nil), http.StatusOK)
	assert.Equal(t, []interface{}{"vip", "color", "balayage"}, reloaded["tags"])

	tagged := s.expect(s.do(http.MethodGet, base+"?tag=color", owner, nil), http.StatusOK)
	assert.Equal(t, 1.0, tagged["total"])

	s.expect(s.do(http.MethodDelete, base+"/"+id+"/tags/vip", owner, nil), http.StatusOK)
	reloaded = s.expect(s.do(http.MethodGet, base+"/"+id, owner, nil), http.StatusOK)
	assert.Equal(t, []interface{}{"color", "balayage"}, reloaded["tags"])
}

func TestClientSearchAndUpdate(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, _ := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID + "/clients"

	ava := s.expect(s.do(http.MethodPost, base, owner, gin.H{"firstName": "Ava", "phone": "+15551230000"}), http.StatusCreated)
	s.expect(s.do(http.MethodPost, base, owner, gin.H{"firstName": "Liam", "phone": "+15559870000"}), http.StatusCreated)

	search := func(q string) float64 {
		body := s.expect(s.do(http.MethodGet, base+"?"+url.Values{"search": {q}}.Encode(), owner, nil), http.StatusOK)
		return body["total"].(float64)
	}
	assert.Equal(t, 1.0, search("ava"))
	assert.Equal(t, 1.0, search("555-123"))
	assert.Equal(t, 0.0, search("()"))

	// a staff member of another salon cannot be the preferred stylist
	other := s.register("other@example.com")
	otherSalon, _ := s.createSalon(other, "Other Salon")
	foreign := s.expect(s.do(http.MethodPost, "/api/salons/"+otherSalon+"/staff", other, gin.H{"firstName": "Noah"}), http.StatusCreated)
	s.expect(s.do(http.MethodPut, base+"/"+ava["id"].(string), owner, gin.H{"preferredStaffId": foreign["id"]}), http.StatusBadRequest)
}

func TestGiftCards(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, _ := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID + "/gift-cards"

	created := s.expect(s.do(http.MethodPost, base, owner, gin.H{
		"amount":         100,
		"isPhysical":     true,
		"recipientName":  "Ava",
		"recipientPhone": "+15551230000",
	}), http.StatusCreated)
	card := created["giftCard"].(map[string]interface{})
	pin := created["pin"].(string)
	code := card["code"].(string)
	assert.Len(t, pin, 4)
	assert.Equal(t, true, created["delivered"])
	assert.Equal(t, 1, s.outbox.count())

	redeemed := s.expect(s.do(http.MethodPost, base+"/"+card["id"].(string)+"/redeem", owner, gin.H{"amount": 30}), http.StatusOK)
	assert.Equal(t, 30.0, redeemed["amountRedeemed"])
	assert.Equal(t, 70.0, redeemed["remainingBalance"])

	balance := func(pin string) *httptest.ResponseRecorder {
		q := url.Values{"code": {code}, "pin": {pin}}
		return s.do(http.MethodGet, "/public/gift-cards/balance?"+q.Encode(), "", nil)
	}
	s.expect(balance("0000x"), http.StatusForbidden)

	body := s.expect(balance(pin), http.StatusOK)
	assert.Equal(t, 70.0, body["balance"])
	assert.Equal(t, true, body["isValid"])
	assert.Equal(t, "Studio Glow", body["salonName"])

	s.expect(s.do(http.MethodPost, base+"/"+card["id"].(string)+"/redeem", owner, gin.H{"amount": 0}), http.StatusBadRequest)
	s.expect(balance(pin[:3]), http.StatusForbidden)

	cancelled := s.expect(s.do(http.MethodPost, base+"/"+card["id"].(string)+"/cancel", owner, gin.H{"reason": "lost"}), http.StatusOK)
	assert.Equal(t, "cancelled", cancelled["status"])
	assert.Equal(t, 0.0, cancelled["balance"])

	// a cancelled card cannot be cancelled again or redeemed
	s.expect(s.do(http.MethodPost, base+"/"+card["id"].(string)+"/cancel", owner, nil), http.StatusBadRequest)
	s.expect(s.do(http.MethodPost, base+"/"+card["id"].(string)+"/redeem", owner, gin.H{"amount": 10}), http.StatusBadRequest)
}

func TestWaitlistDuplicate(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, _ := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID + "/waitlist"

	entry := gin.H{
		"clientName":    "Ava Chen",
		"clientEmail":   "ava@example.com",
		"preferredDate": nextOpenDay(5).Format("2006-01-02"),
		"priority":      "vip",
	}
	created := s.expect(s.do(http.MethodPost, base, owner, entry), http.StatusCreated)
	assert.Equal(t, "pending", created["status"])

	s.expect(s.do(http.MethodPost, base, owner, entry), http.StatusConflict)

	s.expect(s.do(http.MethodPost, base, owner, gin.H{
		"clientName": "No Contact", "preferredDate": "2030-01-01",
	}), http.StatusBadRequest)
}

func TestPublicBooking(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, slug := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID

	staff := s.expect(s.do(http.MethodPost, base+"/staff", owner, gin.H{"firstName": "Maya"}), http.StatusCreated)
	service := s.expect(s.do(http.MethodPost, base+"/services", owner, gin.H{"name": "Blowout", "price": 45, "durationMins": 45}), http.StatusCreated)

	s.expect(s.do(http.MethodGet, "/public/book/"+slug, "", nil), http.StatusOK)
	s.expect(s.do(http.MethodGet, "/public/book/no-such-salon", "", nil), http.StatusNotFound)

	day := nextOpenDay(3).Format("2006-01-02")
	request := gin.H{
		"firstName":    "Ava",
		"email":        "Ava@Example.com",
		"phone":        "+15551230000",
		"serviceId":    service["id"],
		"staffId":      staff["id"],
		"date":         day,
		"time":         "11:00",
		"smsReminders": true,
	}
	booked := s.expect(s.do(http.MethodPost, "/public/book/"+slug, "", request), http.StatusCreated)
	assert.Equal(t, "scheduled", booked["status"])
	assert.Equal(t, true, booked["smsSent"])
	confirmation := booked["confirmationCode"].(string)

	// the same slot cannot be booked twice
	s.expect(s.do(http.MethodPost, "/public/book/"+slug, "", request), http.StatusConflict)

	q := url.Values{"email": {"ava@example.com"}, "confirmationCode": {confirmation}}
	lookup := s.expect(s.do(http.MethodGet, "/public/book/"+slug+"/lookup?"+q.Encode(), "", nil), http.StatusOK)
	assert.Equal(t, true, lookup["canCancel"])
	assert.Equal(t, []interface{}{"Blowout"}, lookup["services"])

	q.Set("confirmationCode", "WRONG1")
	s.expect(s.do(http.MethodGet, "/public/book/"+slug+"/lookup?"+q.Encode(), "", nil), http.StatusNotFound)

	cancelled := s.expect(s.do(http.MethodPost, "/public/book/"+slug+"/cancel", "", gin.H{
		"email":            "ava@example.com",
		"confirmationCode": confirmation,
		"reason":           "schedule change",
	}), http.StatusOK)
	assert.Equal(t, "cancelled", cancelled["status"])

	// cancelling frees the slot
	s.expect(s.do(http.MethodPost, "/public/book/"+slug, "", request), http.StatusCreated)
}

func TestPublicBookingConflictKeepsClientsUnchanged(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, slug := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID

	staff := s.expect(s.do(http.MethodPost, base+"/staff", owner, gin.H{"firstName": "Maya"}), http.StatusCreated)
	service := s.expect(s.do(http.MethodPost, base+"/services", owner, gin.H{"name": "Blowout", "price": 45, "durationMins": 45}), http.StatusCreated)

	request := gin.H{
		"firstName": "Ava",
		"email":     "ava@example.com",
		"phone":     "+15551230000",
		"serviceId": service["id"],
		"staffId":   staff["id"],
		"date":      nextOpenDay(3).Format("2006-01-02"),
		"time":      "11:00",
	}
	s.expect(s.do(http.MethodPost, "/public/book/"+slug, "", request), http.StatusCreated)

	request["firstName"] = "Liam"
	request["email"] = "liam@example.com"
	request["phone"] = "+15559870000"
	s.expect(s.do(http.MethodPost, "/public/book/"+slug, "", request), http.StatusConflict)

	list := s.expect(s.do(http.MethodGet, base+"/clients", owner, nil), http.StatusOK)
	assert.Equal(t, 1.0, list["total"])
	clients := list["items"].([]interface{})
	require.Len(t, clients, 1)
	assert.Equal(t, "ava@example.com", clients[0].(map[string]interface{})["email"])
}

func TestPublicBookingRejectsClosedDays(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner@example.com")
	salonID, slug := s.createSalon(owner, "Studio Glow")
	base := "/api/salons/" + salonID

	service := s.expect(s.do(http.MethodPost, base+"/services", owner, gin.H{"name": "Blowout", "price": 45, "durationMins": 45}), http.StatusCreated)

	sunday := time.Now().AddDate(0, 0, 3)
	for sunday.Weekday() != time.Sunday {
		sunday = sunday.AddDate(0, 0, 1)
	}

	w := s.do(http.MethodPost, "/public/book/"+slug, "", gin.H{
		"firstName": "Ava",
		"email":     "ava@example.com",
		"serviceId": service["id"],
		"date":      sunday.Format("2006-01-02"),
		"time":      "11:00",
	})
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusConflict}, w.Code, w.Body.String())
}
