// services/reminder_service.go
package services

import (
	"context"
	"log/slog"
	"time"

	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ReminderService runs the background jobs: appointment reminders, birthday
// and anniversary greetings, expiry sweeps and scheduled social posts.
type ReminderService struct {
	db        *gorm.DB
	notifier  Notifier
	publisher Publisher
	cron      *cron.Cron
	now       func() time.Time
}

func NewReminderService(db *gorm.DB, notifier Notifier, publisher Publisher) *ReminderService {
	return &ReminderService{
		db:        db,
		notifier:  notifier,
		publisher: publisher,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		now:       time.Now,
	}
}

// StartScheduler registers the jobs and starts the cron runner. A job whose
// previous run is still going skips its tick.
func (s *ReminderService) StartScheduler() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"0 * * * *", "appointment reminders", func(ctx context.Context) { s.SendAppointmentReminders(ctx) }},
		{"0 9 * * *", "daily greetings", func(ctx context.Context) { s.SendDailyGreetings(ctx) }},
		{"30 0 * * *", "expiry sweep", func(ctx context.Context) { s.ExpireStale() }},
		{"* * * * *", "scheduled posts", func(ctx context.Context) { s.PublishDuePosts(ctx) }},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			job.run(ctx)
		}); err != nil {
			return err
		}
		slog.Info("scheduled job", "job", job.name, "spec", job.spec)
	}

	s.cron.Start()
	slog.Info("reminder scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running jobs
func (s *ReminderService) Stop() {
	<-s.cron.Stop().Done()
}

// SendAppointmentReminders texts clients whose appointment starts within the
// salon's reminder window. Each appointment is reminded once.
func (s *ReminderService) SendAppointmentReminders(ctx context.Context) int {
	now := s.now()

	var salons []models.Salon
	if err := s.db.Where("is_active = ?", true).Find(&salons).Error; err != nil {
		slog.Error("failed to fetch salons", "error", err)
		return 0
	}

	sent := 0
	for _, salon := range salons {
		if !salon.SMSNotifications && !salon.WhatsAppNotifications {
			continue
		}
		hours := salon.ReminderHoursBefore
		if hours <= 0 {
			hours = models.DefaultReminderHoursBefore
		}

		var appointments []models.Appointment
		err := s.db.Preload("Client").
			Where("salon_id = ? AND status IN ? AND reminder_sent_at IS NULL AND start_time > ? AND start_time <= ?",
				salon.ID, []string{models.AppointmentScheduled, models.AppointmentConfirmed},
				now, now.Add(time.Duration(hours)*time.Hour)).
			Find(&appointments).Error
		if err != nil {
			slog.Error("failed to fetch upcoming appointments", "salonId", salon.ID, "error", err)
			continue
		}

		template := s.template(salon.ID, models.ReminderAppointment)
		for i := range appointments {
			appt := &appointments[i]
			if appt.Client == nil || !appt.Client.SMSConsent || appt.Client.Phone == "" {
				continue
			}
			start := appt.StartTime
			clientID, apptID := appt.ClientID, appt.ID
			err := Deliver(ctx, s.db, s.notifier, Message{
				SalonID:       salon.ID,
				ClientID:      &clientID,
				AppointmentID: &apptID,
				Type:          models.ReminderAppointment,
				To:            appt.Client.Phone,
				Body:          RenderTemplate(template, appt.Client.FirstName, salon.Name, &start),
			})
			if err != nil {
				continue
			}
			if err := s.db.Model(appt).Update("reminder_sent_at", now).Error; err != nil {
				slog.Error("failed to mark reminder sent", "appointmentId", appt.ID, "error", err)
				continue
			}
			sent++
		}
	}

	slog.Info("appointment reminders processed", "sent", sent)
	return sent
}

// SendDailyGreetings sends birthday and anniversary messages for today
func (s *ReminderService) SendDailyGreetings(ctx context.Context) int {
	var salons []models.Salon
	if err := s.db.Where("is_active = ?", true).Find(&salons).Error; err != nil {
		slog.Error("failed to fetch salons", "error", err)
		return 0
	}

	sent := 0
	for _, salon := range salons {
		if salon.BirthdayReminders {
			sent += s.processSalonGreetings(ctx, &salon, models.ReminderBirthday)
		}
		if salon.AnniversaryReminders {
			sent += s.processSalonGreetings(ctx, &salon, models.ReminderAnniversary)
		}
	}

	slog.Info("daily greetings processed", "sent", sent)
	return sent
}

func (s *ReminderService) processSalonGreetings(ctx context.Context, salon *models.Salon, eventType string) int {
	clients, err := s.clientsCelebrating(salon.ID, eventType, s.now())
	if err != nil {
		slog.Error("failed to fetch clients", "salonId", salon.ID, "type", eventType, "error", err)
		return 0
	}

	template := s.template(salon.ID, eventType)
	sent := 0
	for _, client := range clients {
		clientID := client.ID
		err := Deliver(ctx, s.db, s.notifier, Message{
			SalonID:  salon.ID,
			ClientID: &clientID,
			Type:     eventType,
			To:       client.Phone,
			Body:     RenderTemplate(template, client.FirstName, salon.Name, nil),
		})
		if err == nil {
			sent++
		}
	}
	return sent
}

// clientsCelebrating returns SMS-consenting clients whose birthday or
// anniversary falls on today's month and day and who were not greeted yet.
func (s *ReminderService) clientsCelebrating(salonID uuid.UUID, eventType string, today time.Time) ([]models.Client, error) {
	field := "birthday"
	if eventType == models.ReminderAnniversary {
		field = "anniversary"
	}

	var candidates []models.Client
	if err := s.db.Where("salon_id = ? AND is_active = ? AND sms_consent = ? AND "+field+" IS NOT NULL", salonID, true, true).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	var greeted []string
	if err := s.db.Model(&models.ReminderLog{}).
		Where("salon_id = ? AND type = ? AND sent_at >= ? AND status = ?", salonID, eventType, utils.BeginningOfDay(today), "sent").
		Pluck("client_id", &greeted).Error; err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(greeted))
	for _, id := range greeted {
		done[id] = true
	}

	var out []models.Client
	for _, c := range candidates {
		date := c.Birthday
		if eventType == models.ReminderAnniversary {
			date = c.Anniversary
		}
		if date == nil || date.Month() != today.Month() || date.Day() != today.Day() {
			continue
		}
		if done[c.ID.String()] {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *ReminderService) template(salonID uuid.UUID, templateType string) string {
	var template models.ReminderTemplate
	err := s.db.Where("salon_id = ? AND type = ? AND is_active = ?", salonID, templateType, true).
		First(&template).Error
	if err == nil && template.Message != "" {
		return template.Message
	}
	return models.DefaultReminderMessages[templateType]
}

// ExpireStale marks past-due waitlist entries and gift cards as expired
func (s *ReminderService) ExpireStale() (int64, int64) {
	now := s.now()

	waitlist := s.db.Model(&models.WaitlistEntry{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]string{models.WaitlistPending, models.WaitlistNotified}, now).
		Update("status", models.WaitlistExpired)
	if waitlist.Error != nil {
		slog.Error("failed to expire waitlist entries", "error", waitlist.Error)
	}

	cards := s.db.Model(&models.GiftCard{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.GiftCardActive, now).
		Update("status", models.GiftCardExpired)
	if cards.Error != nil {
		slog.Error("failed to expire gift cards", "error", cards.Error)
	}

	slog.Info("expiry sweep completed", "waitlistExpired", waitlist.RowsAffected, "giftCardsExpired", cards.RowsAffected)
	return waitlist.RowsAffected, cards.RowsAffected
}

// PublishDuePosts publishes scheduled posts whose time has come
func (s *ReminderService) PublishDuePosts(ctx context.Context) int {
	now := s.now()

	var posts []models.SocialPost
	if err := s.db.Where("status = ? AND scheduled_time <= ?", models.PostScheduled, now).
		Order("scheduled_time").Limit(50).Find(&posts).Error; err != nil {
		slog.Error("failed to fetch scheduled posts", "error", err)
		return 0
	}

	published := 0
	for i := range posts {
		post := &posts[i]
		var salon models.Salon
		if err := s.db.First(&salon, "id = ?", post.SalonID).Error; err != nil {
			slog.Error("failed to load salon for post", "postId", post.ID, "error", err)
			continue
		}
		if err := PublishPost(ctx, s.db, s.publisher, &salon, post, now); err != nil {
			slog.Warn("scheduled post failed", "postId", post.ID, "salonId", salon.ID, "error", err)
			continue
		}
		published++
	}

	if len(posts) > 0 {
		slog.Info("scheduled posts processed", "due", len(posts), "published", published)
	}
	return published
}
