package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"salonsync-backend/config"
	"salonsync-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")

	dsn := filepath.Join(t.TempDir(), "services.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedSalon(t *testing.T, db *gorm.DB, mutate func(*models.Salon)) *models.Salon {
	t.Helper()
	salon := &models.Salon{
		Name:                 "Studio Glow",
		Slug:                 "studio-glow-" + uuid.NewString()[:8],
		BookingLeadTimeHours: 2,
		ReminderHoursBefore:  24,
		SMSNotifications:     true,
		IsActive:             true,
	}
	if mutate != nil {
		mutate(salon)
	}
	require.NoError(t, db.Create(salon).Error)
	return salon
}

func seedStaff(t *testing.T, db *gorm.DB, salon *models.Salon) *models.Staff {
	t.Helper()
	staff := &models.Staff{
		SalonID:       salon.ID,
		FirstName:     "Maya",
		LastName:      "Lopez",
		Role:          models.StaffRoleStylist,
		Status:        models.StaffStatusActive,
		ShowOnBooking: true,
	}
	require.NoError(t, db.Create(staff).Error)
	return staff
}

func seedClient(t *testing.T, db *gorm.DB, salon *models.Salon, mutate func(*models.Client)) *models.Client {
	t.Helper()
	client := &models.Client{
		SalonID:      salon.ID,
		FirstName:    "Ava",
		LastName:     "Chen",
		Phone:        "+15551230000",
		SMSConsent:   true,
		ReferralCode: "REF-" + uuid.NewString()[:8],
		IsActive:     true,
	}
	if mutate != nil {
		mutate(client)
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

// recordingNotifier captures sent messages
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, msg Message) (*Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return &Receipt{Channel: ChannelSMS}, n.err
	}
	n.sent = append(n.sent, msg)
	return &Receipt{Channel: ChannelSMS, ProviderID: "SM123"}, nil
}

func (n *recordingNotifier) messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}

// fakeMessages stands in for the Twilio messages API
type fakeMessages struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM0001"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

// stubPublisher returns canned publish results
type stubPublisher struct {
	calls   int
	err     error
	metrics *models.Metrics
}

func (p *stubPublisher) Publish(ctx context.Context, salon *models.Salon, post *models.SocialPost) (*PublishResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &PublishResult{PostID: "1789", URL: "https://instagram.com/p/abc"}, nil
}

func (p *stubPublisher) FetchMetrics(ctx context.Context, salon *models.Salon, post *models.SocialPost) (*models.Metrics, error) {
	return p.metrics, p.err
}
