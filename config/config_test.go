package config

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/salonsync")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, "none", s.Storage.Driver)
	assert.Equal(t, 60, s.RateLimit.PerMinute)
	assert.Equal(t, 5*time.Minute, s.Database.ConnMaxLifetime)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, s.CORS.AllowedOrigins)
	assert.False(t, s.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/salonsync")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.salonsync.io, https://admin.salonsync.io")
	t.Setenv("STORAGE_DRIVER", "MINIO")
	t.Setenv("STORAGE_ENDPOINT", "localhost:9000")
	t.Setenv("STORAGE_USE_SSL", "false")
	t.Setenv("SCHEDULER_ENABLED", "false")

	s, err := Load()
	require.NoError(t, err)

	assert.True(t, s.IsProduction())
	assert.Equal(t, 120, s.RateLimit.PerMinute)
	assert.Equal(t, 90*time.Second, s.Database.ConnMaxLifetime)
	assert.Equal(t, []string{"https://app.salonsync.io", "https://admin.salonsync.io"}, s.CORS.AllowedOrigins)
	assert.Equal(t, "minio", s.Storage.Driver)
	assert.False(t, s.Storage.UseSSL)
	assert.False(t, s.SchedulerEnabled)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	s := &Settings{Storage: StorageSettings{Driver: "ftp"}}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), `unknown STORAGE_DRIVER "ftp"`)

	t.Setenv("JWT_SECRET", "secret")
	s = &Settings{Database: DatabaseSettings{URL: "x"}, Storage: StorageSettings{Driver: "minio"}}
	assert.ErrorContains(t, s.Validate(), "STORAGE_ENDPOINT is required")
}

func TestTwilioConfigured(t *testing.T) {
	assert.False(t, TwilioSettings{AccountSID: "AC1", AuthToken: "tok"}.Configured())
	assert.True(t, TwilioSettings{AccountSID: "AC1", AuthToken: "tok", PhoneNumber: "+15550001111"}.Configured())
}

type fakeSecrets struct {
	value *string
	err   error
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestApplySecrets(t *testing.T) {
	t.Setenv("SALONSYNC_TEST_KEEP", "local")
	t.Setenv("SALONSYNC_TEST_NEW", "")
	os.Unsetenv("SALONSYNC_TEST_NEW")

	api := &fakeSecrets{value: aws.String(`{"SALONSYNC_TEST_KEEP":"remote","SALONSYNC_TEST_NEW":"from-secret"}`)}
	require.NoError(t, applySecrets(context.Background(), api, "salonsync/prod"))

	assert.Equal(t, "local", os.Getenv("SALONSYNC_TEST_KEEP"))
	assert.Equal(t, "from-secret", os.Getenv("SALONSYNC_TEST_NEW"))
}

func TestApplySecretsErrors(t *testing.T) {
	ctx := context.Background()

	notFound := &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "missing"}
	err := applySecrets(ctx, &fakeSecrets{err: notFound}, "salonsync/prod")
	assert.EqualError(t, err, `secret "salonsync/prod" not found`)

	err = applySecrets(ctx, &fakeSecrets{err: errors.New("network down")}, "salonsync/prod")
	assert.ErrorContains(t, err, "network down")

	err = applySecrets(ctx, &fakeSecrets{value: aws.String("not json")}, "salonsync/prod")
	assert.ErrorContains(t, err, "not a JSON object")

	err = applySecrets(ctx, &fakeSecrets{}, "salonsync/prod")
	assert.ErrorContains(t, err, "no string value")
}

func TestLoadSecretsWithoutID(t *testing.T) {
	assert.NoError(t, LoadSecrets(context.Background(), ""))
}

func TestMigrateAndPing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "salons", "staff", "clients", "appointments", "gift_cards", "waitlist_entries", "media_sets", "social_posts", "reminder_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	previous := DB
	t.Cleanup(func() { DB = previous })

	DB = nil
	assert.Error(t, PingDB())

	DB = db
	assert.NoError(t, PingDB())
}

func TestPerformanceLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PerformanceLogger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestInitLogger(t *testing.T) {
	l := InitLogger("debug")
	assert.True(t, l.Enabled(context.Background(), -4))

	l = InitLogger("warn")
	assert.False(t, l.Enabled(context.Background(), 0))
}
