package controllers

import (
	"net/http"
	"strconv"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	MaxRevenueDays     = 90
	UpcomingWindow     = 2 * time.Hour
	DefaultUpcomingMax = 10
)

// revenueStatuses are the sales that count towards revenue
var revenueStatuses = []string{models.PaymentCompleted, models.PaymentPartiallyRefunded}

var openAppointmentStatuses = []string{models.AppointmentScheduled, models.AppointmentConfirmed}

// revenueBetween sums completed sales net of refunds in [from, to]
func revenueBetween(salonID uuid.UUID, from, to time.Time) (float64, error) {
	var total float64
	err := config.DB.Model(&models.Sale{}).
		Where("salon_id = ? AND payment_status IN ? AND created_at >= ? AND created_at <= ?", salonID, revenueStatuses, from, to).
		Select("COALESCE(SUM(total - refund_amount), 0)").
		Scan(&total).Error
	return models.RoundMoney(total), err
}

type DashboardMetrics struct {
	TodayAppointments    int64   `json:"todayAppointments"`
	TodayRevenue         float64 `json:"todayRevenue"`
	WeekRevenue          float64 `json:"weekRevenue"`
	MonthRevenue         float64 `json:"monthRevenue"`
	NewClientsThisMonth  int64   `json:"newClientsThisMonth"`
	ActiveClients        int64   `json:"activeClients"`
	UpcomingNextTwoHours int64   `json:"upcomingNextTwoHours"`
	CancelledToday       int64   `json:"cancelledToday"`
}

// GetDashboard returns the salon's headline numbers
func GetDashboard(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	now := time.Now()
	dayStart, dayEnd := utils.BeginningOfDay(now), utils.EndOfDay(now)
	var metrics DashboardMetrics

	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		dest  *int64
	}{
		{&models.Appointment{}, "start_time >= ? AND start_time <= ? AND status NOT IN ?",
			[]interface{}{dayStart, dayEnd, []string{models.AppointmentCancelled, models.AppointmentNoShow}}, &metrics.TodayAppointments},
		{&models.Appointment{}, "start_time >= ? AND start_time <= ? AND status IN ?",
			[]interface{}{now, now.Add(UpcomingWindow), openAppointmentStatuses}, &metrics.UpcomingNextTwoHours},
		{&models.Appointment{}, "start_time >= ? AND start_time <= ? AND status = ?",
			[]interface{}{dayStart, dayEnd, models.AppointmentCancelled}, &metrics.CancelledToday},
		{&models.Client{}, "created_at >= ?", []interface{}{utils.BeginningOfMonth(now)}, &metrics.NewClientsThisMonth},
		{&models.Client{}, "is_active = ?", []interface{}{true}, &metrics.ActiveClients},
	}
	for _, q := range counts {
		if err := config.DB.Model(q.model).Where("salon_id = ?", salonUUID).
			Where(q.where, q.args...).Count(q.dest).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
			return
		}
	}

	revenues := []struct {
		from time.Time
		dest *float64
	}{
		{dayStart, &metrics.TodayRevenue},
		{utils.BeginningOfWeek(now), &metrics.WeekRevenue},
		{utils.BeginningOfMonth(now), &metrics.MonthRevenue},
	}
	for _, r := range revenues {
		total, err := revenueBetween(salonUUID, r.from, dayEnd)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to calculate revenue")
			return
		}
		*r.dest = total
	}

	c.JSON(http.StatusOK, metrics)
}

// GetUpcomingAppointments lists the next open appointments
func GetUpcomingAppointments(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	limit := DefaultUpcomingMax
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > utils.MaxPageLimit {
			utils.RespondWithError(c, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	var appointments []models.Appointment
	if err := config.DB.Preload("Services").Preload("Client").Preload("Staff").
		Where("salon_id = ? AND start_time >= ? AND status IN ?", salonUUID, time.Now(), openAppointmentStatuses).
		Order("start_time").Limit(limit).Find(&appointments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	c.JSON(http.StatusOK, appointments)
}

type RevenuePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Sales   int     `json:"sales"`
}

// revenueSeries buckets sales by local day from start for days days,
// including days without sales
func revenueSeries(sales []models.Sale, start time.Time, days int) []RevenuePoint {
	points := make([]RevenuePoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(utils.DateLayout)
		points[i] = RevenuePoint{Date: key}
		index[key] = i
	}
	for _, s := range sales {
		i, ok := index[s.CreatedAt.In(start.Location()).Format(utils.DateLayout)]
		if !ok {
			continue
		}
		points[i].Revenue = models.RoundMoney(points[i].Revenue + s.Total - s.RefundAmount)
		points[i].Sales++
	}
	return points
}

// GetRevenueSeries returns daily revenue for the last days days
func GetRevenueSeries(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	days := 30
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxRevenueDays {
			utils.RespondWithError(c, http.StatusBadRequest, "days must be between 1 and 90")
			return
		}
		days = n
	}

	now := time.Now()
	start := utils.BeginningOfDay(now.AddDate(0, 0, -(days - 1)))

	var sales []models.Sale
	if err := config.DB.Select("id", "created_at", "total", "refund_amount").
		Where("salon_id = ? AND payment_status IN ? AND created_at >= ? AND created_at <= ?",
			salonUUID, revenueStatuses, start, utils.EndOfDay(now)).
		Find(&sales).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve sales")
		return
	}

	series := revenueSeries(sales, start, days)
	total := 0.0
	for _, p := range series {
		total += p.Revenue
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "total": models.RoundMoney(total), "series": series})
}

// GetNeedsAttention collects items staff should act on
func GetNeedsAttention(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	now := time.Now()

	var unconfirmed []models.Appointment
	if err := config.DB.Preload("Client").
		Where("salon_id = ? AND status = ? AND start_time >= ? AND start_time <= ?",
			salonUUID, models.AppointmentScheduled, now, now.Add(48*time.Hour)).
		Order("start_time").Find(&unconfirmed).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	// Checked in or started but past their end time
	var overdue []models.Appointment
	if err := config.DB.Preload("Client").
		Where("salon_id = ? AND status IN ? AND end_time < ?",
			salonUUID, []string{models.AppointmentCheckedIn, models.AppointmentInProgress}, now).
		Order("start_time").Find(&overdue).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	var failedPosts []models.SocialPost
	if err := config.DB.Where("salon_id = ? AND status = ?", salonUUID, models.PostFailed).
		Order("last_attempt_at DESC").Find(&failedPosts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	var expiringWaitlist []models.WaitlistEntry
	if err := config.DB.Where("salon_id = ? AND status IN ? AND expires_at <= ?",
		salonUUID, activeWaitlistStatuses, now.Add(48*time.Hour)).
		Order("expires_at").Find(&expiringWaitlist).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unconfirmedAppointments": unconfirmed,
		"overdueAppointments":     overdue,
		"failedPosts":             failedPosts,
		"expiringWaitlist":        expiringWaitlist,
		"total":                   len(unconfirmed) + len(overdue) + len(failedPosts) + len(expiringWaitlist),
	})
}
