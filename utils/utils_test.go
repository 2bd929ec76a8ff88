package utils

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGiftCardCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := GenerateGiftCardCode()
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)

	assert.Equal(t, "ABCD-EFGH-JKLM", NormalizeGiftCardCode("  abcd-efgh -jklm "))
}

func TestCodes(t *testing.T) {
	assert.Regexp(t, `^\d{4}$`, GeneratePIN())
	assert.Len(t, GenerateConfirmationCode(), 8)
	assert.True(t, strings.HasPrefix(GenerateReferralCode(), "REF-"))
	assert.Len(t, GenerateReferralCode(), 10)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "studio-glow-hair-co", Slugify("Studio Glow: Hair & Co."))
	assert.Equal(t, "salon", Slugify("!!!"))
}

func TestDates(t *testing.T) {
	at := time.Date(2024, 3, 14, 15, 30, 0, 0, time.Local) // Thursday

	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.Local), BeginningOfDay(at))
	assert.Equal(t, 23, EndOfDay(at).Hour())
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local), BeginningOfWeek(at))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), BeginningOfMonth(at))
	assert.Equal(t, 3, DaysBetween(at, at.AddDate(0, 0, 3)))
	assert.Equal(t, "thursday", WeekdayKey(at))

	sunday := time.Date(2024, 3, 17, 9, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local), BeginningOfWeek(sunday))
}

func TestClock(t *testing.T) {
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.Local)

	got, err := AtClock(day, "09:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 14, 9, 45, 0, 0, time.Local), got)

	_, err = AtClock(day, "9am")
	assert.Error(t, err)

	_, _, err = ParseClock("25:00")
	assert.Error(t, err)

	parsed, err := ParseDate("2024-03-14")
	require.NoError(t, err)
	assert.Equal(t, day, parsed)
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "+15551234567", CleanPhone("+1 (555) 123-4567"))
	assert.True(t, ValidatePhone("+1 (555) 123-4567"))
	assert.True(t, ValidatePhone("5551234567"))
	assert.False(t, ValidatePhone("call me"))
	assert.False(t, ValidatePhone("+0123"))
}

func pageFor(query string) Page {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return GetPage(c, DefaultPageLimit)
}

func TestGetPage(t *testing.T) {
	assert.Equal(t, Page{Skip: 0, Limit: 20}, pageFor(""))
	assert.Equal(t, Page{Skip: 40, Limit: 10}, pageFor("skip=40&limit=10"))
	assert.Equal(t, Page{Skip: 0, Limit: MaxPageLimit}, pageFor("limit=1000"))
	assert.Equal(t, Page{Skip: 0, Limit: 20}, pageFor("skip=-5&limit=0"))
}

func TestPaginated(t *testing.T) {
	body := Paginated([]int{1, 2}, 45, Page{Skip: 20, Limit: 20})
	assert.Equal(t, int64(45), body["total"])
	assert.Equal(t, 2, body["page"])
	assert.Equal(t, int64(3), body["pages"])
}

func TestQueryBool(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?a=true&b=nope", nil)

	v, set := QueryBool(c, "a")
	assert.True(t, v)
	assert.True(t, set)

	_, set = QueryBool(c, "b")
	assert.False(t, set)

	_, set = QueryBool(c, "missing")
	assert.False(t, set)
}

func TestPasswordHash(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userId"))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call("").Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call("Bearer not-a-jwt").Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := GenerateToken("user-123", "client")
		require.NoError(t, err)

		w := call("Bearer " + token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-123", w.Body.String())
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		token, err := GenerateToken("user-123", "client")
		require.NoError(t, err)

		t.Setenv("JWT_SECRET", "rotated")
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+token).Code)
	})
}

func TestGenerateTokenWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := GenerateToken("u", "client")
	assert.Error(t, err)
}

func TestRespondWithBindError(t *testing.T) {
	RegisterValidators()

	type input struct {
		Email string `json:"email" binding:"required,email"`
		Phone string `json:"phone" binding:"omitempty,phone"`
	}

	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var in input
		if err := c.ShouldBindJSON(&in); err != nil {
			RespondWithBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","phone":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"email"`)
	assert.Contains(t, w.Body.String(), "must be a valid phone number")
}
