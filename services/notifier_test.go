package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioNotifierSMS(t *testing.T) {
	api := &fakeMessages{}
	n := NewTwilioNotifierWithAPI(api, config.TwilioSettings{PhoneNumber: "+15550001111"})

	receipt, err := n.Send(context.Background(), Message{To: "+15551230000", Body: "See you soon"})
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, receipt.Channel)
	assert.Equal(t, "SM0001", receipt.ProviderID)

	require.NotNil(t, api.params)
	assert.Equal(t, "+15551230000", *api.params.To)
	assert.Equal(t, "+15550001111", *api.params.From)
	assert.Equal(t, "See you soon", *api.params.Body)
}

func TestTwilioNotifierWhatsApp(t *testing.T) {
	api := &fakeMessages{}
	n := NewTwilioNotifierWithAPI(api, config.TwilioSettings{PhoneNumber: "+15550001111", WhatsAppNumber: "+15550002222"})

	receipt, err := n.Send(context.Background(), Message{To: "+15551230000", Body: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, ChannelWhatsApp, receipt.Channel)
	assert.Equal(t, "whatsapp:+15551230000", *api.params.To)
	assert.Equal(t, "whatsapp:+15550002222", *api.params.From)

	// local numbers cannot be reached over WhatsApp
	receipt, err = n.Send(context.Background(), Message{To: "5551230000", Body: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, receipt.Channel)
	assert.Equal(t, "5551230000", *api.params.To)
}

func TestTwilioNotifierError(t *testing.T) {
	api := &fakeMessages{err: errors.New("invalid number")}
	n := NewTwilioNotifierWithAPI(api, config.TwilioSettings{PhoneNumber: "+15550001111"})

	receipt, err := n.Send(context.Background(), Message{To: "+1", Body: "Hi"})
	assert.EqualError(t, err, "invalid number")
	assert.Equal(t, ChannelSMS, receipt.Channel)
	assert.Empty(t, receipt.ProviderID)
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	n := NewNotifier(config.TwilioSettings{})
	assert.IsType(t, LogNotifier{}, n)

	receipt, err := n.Send(context.Background(), Message{To: "+15551230000", Body: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, ChannelLog, receipt.Channel)

	configured := NewNotifier(config.TwilioSettings{AccountSID: "AC1", AuthToken: "tok", PhoneNumber: "+15550001111"})
	assert.IsType(t, &TwilioNotifier{}, configured)
}

func TestDeliver(t *testing.T) {
	db := newTestDB(t)
	salon := seedSalon(t, db, nil)
	client := seedClient(t, db, salon, nil)
	ctx := context.Background()

	t.Run("sent", func(t *testing.T) {
		n := &recordingNotifier{}
		require.NoError(t, Deliver(ctx, db, n, Message{SalonID: salon.ID, ClientID: &client.ID, Type: models.ReminderBirthday, To: client.Phone, Body: "Happy birthday"}))
		assert.Len(t, n.messages(), 1)

		var entry models.ReminderLog
		require.NoError(t, db.Where("salon_id = ? AND type = ?", salon.ID, models.ReminderBirthday).First(&entry).Error)
		assert.Equal(t, "sent", entry.Status)
		assert.Equal(t, "SM123", entry.ProviderID)
		assert.Equal(t, ChannelSMS, entry.Channel)
		assert.Equal(t, client.Phone, entry.Recipient)
	})

	t.Run("failed", func(t *testing.T) {
		n := &recordingNotifier{err: errors.New("carrier rejected")}
		err := Deliver(ctx, db, n, Message{SalonID: salon.ID, Type: models.ReminderAnniversary, To: client.Phone, Body: "Happy anniversary"})
		assert.EqualError(t, err, "carrier rejected")

		var entry models.ReminderLog
		require.NoError(t, db.Where("salon_id = ? AND type = ?", salon.ID, models.ReminderAnniversary).First(&entry).Error)
		assert.Equal(t, "failed", entry.Status)
		assert.Equal(t, "carrier rejected", entry.ErrorMessage)
	})

	t.Run("skipped without a phone", func(t *testing.T) {
		n := &recordingNotifier{}
		err := Deliver(ctx, db, n, Message{SalonID: salon.ID, Type: models.ReminderWaitlist, Body: "A slot opened"})
		assert.ErrorIs(t, err, ErrNoRecipient)
		assert.Empty(t, n.messages())

		var entry models.ReminderLog
		require.NoError(t, db.Where("salon_id = ? AND type = ?", salon.ID, models.ReminderWaitlist).First(&entry).Error)
		assert.Equal(t, "skipped", entry.Status)
	})
}

func TestRenderTemplate(t *testing.T) {
	at := time.Date(2024, 6, 3, 14, 30, 0, 0, time.Local)

	assert.Equal(t,
		"Hi Ava, this is a reminder of your appointment at Studio Glow on Mon Jun 3 at 2:30 PM.",
		RenderTemplate(models.DefaultReminderMessages[models.ReminderAppointment], "Ava", "Studio Glow", &at))

	assert.Equal(t, "Hello Ava, [Time]", RenderTemplate("Hello [ClientName], [Time]", "Ava", "", nil))
}
