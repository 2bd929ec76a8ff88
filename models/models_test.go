package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local)

func TestGiftCardRedeem(t *testing.T) {
	t.Run("partial redemption keeps the card active", func(t *testing.T) {
		card := GiftCard{Balance: 100, Status: GiftCardActive}

		taken, err := card.Redeem(30.25, now)
		require.NoError(t, err)
		assert.Equal(t, 30.25, taken)
		assert.Equal(t, 69.75, card.Balance)
		assert.Equal(t, GiftCardActive, card.Status)
		assert.Equal(t, now, *card.LastUsedAt)
	})

	t.Run("redeeming more than the balance empties it", func(t *testing.T) {
		card := GiftCard{Balance: 20, Status: GiftCardActive}

		taken, err := card.Redeem(50, now)
		require.NoError(t, err)
		assert.Equal(t, 20.0, taken)
		assert.Zero(t, card.Balance)
		assert.Equal(t, GiftCardRedeemed, card.Status)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		card := GiftCard{Balance: 20, Status: GiftCardActive}
		_, err := card.Redeem(0, now)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("expired card", func(t *testing.T) {
		expired := now.Add(-time.Hour)
		card := GiftCard{Balance: 20, Status: GiftCardActive, ExpiresAt: &expired}

		assert.True(t, card.IsExpired(now))
		assert.False(t, card.IsValid(now))
		_, err := card.Redeem(5, now)
		assert.ErrorIs(t, err, ErrGiftCardNotActive)
		assert.Equal(t, 20.0, card.Balance)
	})

	t.Run("cancelled card", func(t *testing.T) {
		card := GiftCard{Balance: 20, Status: GiftCardCancelled}
		_, err := card.Redeem(5, now)
		assert.ErrorIs(t, err, ErrGiftCardNotActive)
	})
}

func TestGiftCardCancel(t *testing.T) {
	card := GiftCard{Balance: 42.5, Status: GiftCardActive}

	forfeited, err := card.Cancel()
	require.NoError(t, err)
	assert.Equal(t, 42.5, forfeited)
	assert.Zero(t, card.Balance)
	assert.Equal(t, GiftCardCancelled, card.Status)

	_, err = card.Cancel()
	assert.ErrorIs(t, err, ErrGiftCardNotActive)
}

func TestSaleTotals(t *testing.T) {
	sale := Sale{
		TaxAmount:      8.5,
		DiscountAmount: 10,
		TipAmount:      15,
		Items: []SaleItem{
			{Name: "Balayage", Quantity: 1, UnitPrice: 180},
			{Name: "Shampoo", Quantity: 2, UnitPrice: 24.99, Discount: 4.98},
		},
	}

	sale.CalculateTotals()

	assert.Equal(t, 180.0, sale.Items[0].Total)
	assert.Equal(t, 45.0, sale.Items[1].Total)
	assert.Equal(t, 225.0, sale.Subtotal)
	assert.Equal(t, 238.5, sale.Total)
}

func TestSaleRefund(t *testing.T) {
	sale := Sale{Total: 100, PaymentStatus: PaymentCompleted}

	require.NoError(t, sale.ApplyRefund(40, "color touch-up", now))
	assert.Equal(t, PaymentPartiallyRefunded, sale.PaymentStatus)
	assert.Equal(t, 60.0, sale.Refundable())

	assert.ErrorIs(t, sale.ApplyRefund(60.01, "", now), ErrRefundExceedsTotal)
	assert.ErrorIs(t, sale.ApplyRefund(-1, "", now), ErrRefundExceedsTotal)

	require.NoError(t, sale.ApplyRefund(60, "unhappy", now))
	assert.Equal(t, PaymentRefunded, sale.PaymentStatus)
	assert.Equal(t, 100.0, sale.RefundAmount)
	assert.Zero(t, sale.Refundable())
}

func TestAppointmentTransitions(t *testing.T) {
	appt := Appointment{Status: AppointmentScheduled, StartTime: now.Add(48 * time.Hour)}

	require.NoError(t, appt.Transition(AppointmentConfirmed, now))
	assert.NotNil(t, appt.ConfirmedAt)
	require.NoError(t, appt.Transition(AppointmentCheckedIn, now))
	require.NoError(t, appt.Transition(AppointmentInProgress, now))
	require.NoError(t, appt.Transition(AppointmentCompleted, now))
	assert.NotNil(t, appt.CompletedAt)

	assert.ErrorIs(t, appt.Transition(AppointmentCancelled, now), ErrInvalidTransition)

	cancelled := Appointment{Status: AppointmentCancelled}
	assert.False(t, cancelled.IsActive())
	assert.ErrorIs(t, cancelled.Transition(AppointmentConfirmed, now), ErrInvalidTransition)

	scheduled := Appointment{Status: AppointmentScheduled}
	assert.False(t, scheduled.CanTransition(AppointmentScheduled))
	require.NoError(t, scheduled.Transition(AppointmentNoShow, now))
	assert.NotNil(t, scheduled.CancelledAt)
}

func TestAppointmentCompleteWithoutCheckIn(t *testing.T) {
	for _, status := range []string{AppointmentScheduled, AppointmentConfirmed} {
		appt := Appointment{Status: status}
		require.NoError(t, appt.Transition(AppointmentCompleted, now), status)
		assert.NotNil(t, appt.CompletedAt)
	}

	noShow := Appointment{Status: AppointmentNoShow}
	assert.ErrorIs(t, noShow.Transition(AppointmentCompleted, now), ErrInvalidTransition)
}

func TestAppointmentClientModify(t *testing.T) {
	appt := Appointment{Status: AppointmentConfirmed, StartTime: now.Add(30 * time.Hour)}

	assert.True(t, appt.CanClientModify(24, now))
	assert.False(t, appt.CanClientModify(48, now))
	assert.Equal(t, appt.StartTime.Add(-24*time.Hour), appt.CancellationDeadline(0))

	appt.Status = AppointmentCheckedIn
	assert.False(t, appt.CanClientModify(24, now))
}

func TestWaitlistEntry(t *testing.T) {
	entry := WaitlistEntry{Status: WaitlistPending, ClientPhone: "+15551234567", NotificationPreference: "both"}
	entry.SetPriority(PriorityVIP)
	assert.Equal(t, 3, entry.PriorityRank)
	assert.True(t, entry.WantsSMS())

	entry.MarkNotified(now)
	entry.MarkNotified(now)
	assert.Equal(t, WaitlistNotified, entry.Status)
	assert.Equal(t, 2, entry.NotificationCount)
	assert.True(t, entry.IsActive())

	apptID := uuid.New()
	entry.MarkBooked(apptID, now)
	assert.Equal(t, WaitlistBooked, entry.Status)
	assert.Equal(t, apptID, *entry.AppointmentID)
	assert.False(t, entry.IsActive())

	emailOnly := WaitlistEntry{ClientPhone: "+15551234567", NotificationPreference: "email"}
	assert.False(t, emailOnly.WantsSMS())

	preferred := time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 6, 17, 23, 59, 59, 0, time.Local), DefaultWaitlistExpiry(preferred))
}

func TestClientTags(t *testing.T) {
	client := Client{Tags: StringList{"vip"}}

	tags := client.WithTags("color", "vip", "", "curly")
	assert.Equal(t, StringList{"vip", "color", "curly"}, tags)
	assert.Equal(t, StringList{"vip"}, client.Tags)

	client.Tags = tags
	assert.Equal(t, StringList{"vip", "curly"}, client.WithoutTag("color"))
}

func TestUserLockout(t *testing.T) {
	var user User
	for i := 0; i < MaxFailedLogins-1; i++ {
		user.RegisterFailedLogin(now)
	}
	assert.False(t, user.IsLocked(now))

	user.RegisterFailedLogin(now)
	assert.True(t, user.IsLocked(now))
	assert.False(t, user.IsLocked(now.Add(LockoutDuration+time.Second)))
}

func TestStaffCanPerform(t *testing.T) {
	cut, color := uuid.New(), uuid.New()

	generalist := Staff{}
	assert.True(t, generalist.CanPerform(cut))

	colorist := Staff{ServiceIDs: NewStringList(color.String()), Role: StaffRoleStylist}
	assert.True(t, colorist.CanPerform(color))
	assert.False(t, colorist.CanPerform(cut))
	assert.False(t, colorist.IsManager())
}

func TestMediaSetDerived(t *testing.T) {
	set := MediaSet{
		BeforePhotoURL:      "https://cdn/before.jpg",
		AfterPhotoURL:       "https://cdn/after.jpg",
		ClientSocialConsent: true,
		ColorFormulas: JSONList{
			{"brand": "Redken", "line": "Shades EQ", "shade": "09V", "developer": "Processing Solution", "processingTime": 20},
		},
	}

	assert.True(t, set.CanPostToSocial())
	assert.Equal(t, 2, set.PhotoCount())
	assert.Equal(t, "Redken Shades EQ 09V + Processing Solution (20 min)", set.FormulaSummary())

	set.AdditionalPhotos = set.WithPhoto(map[string]interface{}{"url": "https://cdn/p.jpg"})
	assert.Equal(t, 3, set.View().PhotoCount)

	set.IsPrivate = true
	assert.False(t, set.CanPostToSocial())
}

func TestSocialPostEngagement(t *testing.T) {
	post := SocialPost{Caption: "Fresh balayage", Hashtags: StringList{"balayage", "#hairgoals"}}
	assert.Equal(t, "Fresh balayage\n\n#balayage #hairgoals", post.FullCaption())
	assert.Zero(t, post.EngagementRate())

	post.RecordMetrics(Metrics{Likes: 40, Comments: 5, Shares: 3, Saves: 2, Reach: 1000}, now)
	assert.Equal(t, 5.0, post.EngagementRate())
	require.Len(t, post.MetricsHistory, 1)

	post.RecordMetrics(Metrics{Likes: 80, Reach: 2000}, now.Add(time.Hour))
	assert.Len(t, post.MetricsHistory, 2)

	post.Status = PostFailed
	post.PublishAttempts = MaxPublishAttempts
	assert.False(t, post.CanRetry())
}

func TestJSONColumns(t *testing.T) {
	var tags StringList
	require.NoError(t, tags.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringList{"a", "b"}, tags)

	var settings JSONB
	require.NoError(t, settings.Scan(`{"monday":{"open":"09:00"}}`))
	assert.Equal(t, "09:00", settings["monday"].(map[string]interface{})["open"])

	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	assert.Error(t, tags.Scan(42))
	assert.Equal(t, StringList{"a", "b"}, NewStringList("a", "", "b", "a"))
}
