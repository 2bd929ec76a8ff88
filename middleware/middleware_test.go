package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"

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

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 3, Window: time.Hour, Burst: 1})
	defer rl.Stop()

	for i := 0; i < 4; i++ {
		allowed, remaining, _ := rl.Allow("10.0.0.1")
		require.True(t, allowed, "request %d", i)
		assert.Equal(t, 3-i, remaining)
	}

	allowed, remaining, reset := rl.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.True(t, reset.After(time.Now()))

	allowed, _, _ = rl.Allow("10.0.0.2")
	assert.True(t, allowed)
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Window: 50 * time.Millisecond})
	defer rl.Stop()

	allowed, _, _ := rl.Allow("k")
	require.True(t, allowed)
	allowed, _, _ = rl.Allow("k")
	require.False(t, allowed)

	time.Sleep(60 * time.Millisecond)
	allowed, _, _ = rl.Allow("k")
	assert.True(t, allowed)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Window: time.Millisecond})
	defer rl.Stop()

	rl.Allow("stale")
	time.Sleep(5 * time.Millisecond)
	rl.cleanupExpired()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.buckets)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 2, Window: time.Minute})
	defer rl.Stop()

	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		r.ServeHTTP(w, req)
		return w
	}

	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	_, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusOK, do().Code)

	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Rate limit exceeded, try again later"}`, w.Body.String())
}

// accessFixture is a salon with an owner, a manager, a stylist and an outsider
type accessFixture struct {
	salon                             models.Salon
	owner, manager, stylist, outsider models.User
	admin                             models.User
}

func setupAccess(t *testing.T) *accessFixture {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")

	dsn := filepath.Join(t.TempDir(), "access.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	previous := config.DB
	config.DB = db
	t.Cleanup(func() {
		config.DB = previous
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &accessFixture{}
	for _, u := range []*models.User{&f.owner, &f.manager, &f.stylist, &f.outsider, &f.admin} {
		*u = models.User{Email: uuid.NewString() + "@salonsync.io", Password: "Passw0rd!", FirstName: "Test", Role: models.RoleStaff, IsActive: true}
	}
	f.admin.IsSuperuser = true
	for _, u := range []*models.User{&f.owner, &f.manager, &f.stylist, &f.outsider, &f.admin} {
		require.NoError(t, db.Create(u).Error)
	}

	f.salon = models.Salon{OwnerID: f.owner.ID, Name: "Studio Glow", Slug: "studio-glow-" + uuid.NewString()[:8], IsActive: true}
	require.NoError(t, db.Create(&f.salon).Error)

	for _, m := range []struct {
		user *models.User
		role string
	}{
		{&f.owner, models.StaffRoleOwner},
		{&f.manager, models.StaffRoleManager},
		{&f.stylist, models.StaffRoleStylist},
	} {
		userID := m.user.ID
		require.NoError(t, db.Create(&models.Staff{
			SalonID:   f.salon.ID,
			UserID:    &userID,
			FirstName: "Test",
			Role:      m.role,
			Status:    models.StaffStatusActive,
		}).Error)
	}
	return f
}

func accessRouter(level AccessLevel) *gin.Engine {
	r := gin.New()
	r.GET("/salons/:salonId", func(c *gin.Context) {
		c.Set("userId", c.GetHeader("X-Test-User"))
		c.Next()
	}, SalonAccess(level), func(c *gin.Context) {
		salon := c.MustGet(SalonKey).(*models.Salon)
		c.JSON(http.StatusOK, gin.H{
			"salonId": c.GetString(SalonIDKey),
			"name":    salon.Name,
			"role":    c.GetString(StaffRoleKey),
		})
	})
	return r
}

func requestAs(r *gin.Engine, user uuid.UUID, salonID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/salons/"+salonID, nil)
	req.Header.Set("X-Test-User", user.String())
	r.ServeHTTP(w, req)
	return w
}

func TestSalonAccess(t *testing.T) {
	f := setupAccess(t)
	salonID := f.salon.ID.String()

	tests := []struct {
		name  string
		level AccessLevel
		user  uuid.UUID
		code  int
	}{
		{"stylist reads staff routes", AccessStaff, f.stylist.ID, http.StatusOK},
		{"stylist blocked from manager routes", AccessManager, f.stylist.ID, http.StatusForbidden},
		{"manager passes manager routes", AccessManager, f.manager.ID, http.StatusOK},
		{"manager blocked from owner routes", AccessOwner, f.manager.ID, http.StatusForbidden},
		{"owner passes owner routes", AccessOwner, f.owner.ID, http.StatusOK},
		{"outsider blocked", AccessStaff, f.outsider.ID, http.StatusForbidden},
		{"superuser bypasses membership", AccessOwner, f.admin.ID, http.StatusOK},
		{"unknown user", AccessStaff, uuid.New(), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := requestAs(accessRouter(tt.level), tt.user, salonID)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestSalonAccessContext(t *testing.T) {
	f := setupAccess(t)

	w := requestAs(accessRouter(AccessStaff), f.manager.ID, f.salon.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"salonId":"`+f.salon.ID.String()+`","name":"Studio Glow","role":"manager"}`, w.Body.String())
}

func TestSalonAccessBadSalon(t *testing.T) {
	f := setupAccess(t)
	r := accessRouter(AccessStaff)

	assert.Equal(t, http.StatusBadRequest, requestAs(r, f.owner.ID, "not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, requestAs(r, f.owner.ID, uuid.NewString()).Code)
}

func TestSalonAccessTerminatedStaff(t *testing.T) {
	f := setupAccess(t)
	require.NoError(t, config.DB.Model(&models.Staff{}).
		Where("user_id = ?", f.stylist.ID).
		Update("status", models.StaffStatusTerminated).Error)

	w := requestAs(accessRouter(AccessStaff), f.stylist.ID, f.salon.ID.String())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSuperuser(t *testing.T) {
	f := setupAccess(t)

	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set("userId", c.GetHeader("X-Test-User"))
	}, Superuser(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for user, code := range map[uuid.UUID]int{f.admin.ID: http.StatusNoContent, f.owner.ID: http.StatusForbidden} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-Test-User", user.String())
		r.ServeHTTP(w, req)
		assert.Equal(t, code, w.Code)
	}
}
