// services/notifier.go
package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// ErrNoRecipient is returned by Deliver when the message has no phone number
var ErrNoRecipient = errors.New("no recipient phone number")

// Delivery channels
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelLog      = "log"
)

// Message is one outbound text to a client
type Message struct {
	SalonID       uuid.UUID
	ClientID      *uuid.UUID
	AppointmentID *uuid.UUID
	Type          string
	To            string
	Body          string
}

// Receipt is the provider's answer for a sent message
type Receipt struct {
	Channel    string
	ProviderID string
}

// Notifier delivers text messages to clients
type Notifier interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// NewNotifier returns a Twilio notifier when credentials are configured and a
// log-only notifier otherwise.
func NewNotifier(settings config.TwilioSettings) Notifier {
	if !settings.Configured() {
		slog.Warn("twilio not configured, messages will only be logged")
		return LogNotifier{}
	}
	return NewTwilioNotifier(settings)
}

// MessageCreator is the subset of the Twilio API used to send messages
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioNotifier struct {
	api      MessageCreator
	settings config.TwilioSettings
}

func NewTwilioNotifier(settings config.TwilioSettings) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: settings.AccountSID,
		Password: settings.AuthToken,
	})
	return &TwilioNotifier{api: client.Api, settings: settings}
}

// NewTwilioNotifierWithAPI wraps an existing message API
func NewTwilioNotifierWithAPI(api MessageCreator, settings config.TwilioSettings) *TwilioNotifier {
	return &TwilioNotifier{api: api, settings: settings}
}

// Send uses WhatsApp when a WhatsApp sender is configured and the recipient
// is in E.164 format, SMS otherwise.
func (t *TwilioNotifier) Send(ctx context.Context, msg Message) (*Receipt, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(msg.Body)

	channel := ChannelSMS
	if t.settings.WhatsAppNumber != "" && strings.HasPrefix(msg.To, "+") {
		channel = ChannelWhatsApp
		params.SetTo("whatsapp:" + msg.To)
		params.SetFrom("whatsapp:" + t.settings.WhatsAppNumber)
	} else {
		params.SetTo(msg.To)
		params.SetFrom(t.settings.PhoneNumber)
	}

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return &Receipt{Channel: channel}, err
	}

	receipt := &Receipt{Channel: channel}
	if resp != nil && resp.Sid != nil {
		receipt.ProviderID = *resp.Sid
	}
	return receipt, nil
}

// LogNotifier writes messages to the log instead of sending them
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, msg Message) (*Receipt, error) {
	slog.Info("notification", "salonId", msg.SalonID, "type", msg.Type, "to", msg.To, "body", msg.Body)
	return &Receipt{Channel: ChannelLog}, nil
}

// Deliver sends msg and records the attempt as a ReminderLog. The send error
// is returned after the log row is written; a message without a recipient is
// logged as skipped and reported as ErrNoRecipient.
func Deliver(ctx context.Context, db *gorm.DB, notifier Notifier, msg Message) error {
	entry := models.ReminderLog{
		SalonID:       msg.SalonID,
		ClientID:      msg.ClientID,
		AppointmentID: msg.AppointmentID,
		Type:          msg.Type,
		Recipient:     msg.To,
		Message:       msg.Body,
		Status:        "sent",
		SentAt:        time.Now(),
	}

	var sendErr error
	if msg.To == "" {
		sendErr = ErrNoRecipient
		entry.Status = "skipped"
		entry.ErrorMessage = ErrNoRecipient.Error()
	} else {
		receipt, err := notifier.Send(ctx, msg)
		if receipt != nil {
			entry.Channel = receipt.Channel
			entry.ProviderID = receipt.ProviderID
		}
		if err != nil {
			sendErr = err
			entry.Status = "failed"
			entry.ErrorMessage = err.Error()
			slog.Error("failed to send message", "salonId", msg.SalonID, "type", msg.Type, "error", err)
		}
	}

	if err := db.Create(&entry).Error; err != nil {
		slog.Error("failed to log reminder", "salonId", msg.SalonID, "type", msg.Type, "error", err)
	}
	return sendErr
}

// RenderTemplate replaces the [ClientName], [SalonName] and [Time]
// placeholders in a message template.
func RenderTemplate(template, clientName, salonName string, at *time.Time) string {
	r := []string{"[ClientName]", clientName, "[SalonName]", salonName}
	if at != nil {
		r = append(r, "[Time]", at.Format("Mon Jan 2 at 3:04 PM"))
	}
	return strings.NewReplacer(r...).Replace(template)
}
