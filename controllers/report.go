// controllers/report.go
package controllers

import (
	"net/http"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportController handles the longer-range analytics
type ReportController struct{}

// AnalyticsSummary represents the Analytics data
type AnalyticsSummary struct {
	CurrentMonthRevenue   float64          `json:"currentMonthRevenue"`
	MonthGrowth           float64          `json:"monthGrowth"`
	CurrentQuarterRevenue float64          `json:"currentQuarterRevenue"`
	QuarterGrowth         float64          `json:"quarterGrowth"`
	CurrentYearRevenue    float64          `json:"currentYearRevenue"`
	YearGrowth            float64          `json:"yearGrowth"`
	TopServices           []ServiceSummary `json:"topServices"`
	TopClients            []ClientSummary  `json:"topClients"`
	TopStaff              []StaffSummary   `json:"topStaff"`
	QuickStats            QuickStatistics  `json:"quickStats"`
}

type ServiceSummary struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type ClientSummary struct {
	ClientID  uuid.UUID `json:"clientId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Visits    int       `json:"visits"`
	Spent     float64   `json:"spent"`
}

type StaffSummary struct {
	StaffID   uuid.UUID `json:"staffId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Sales     int       `json:"sales"`
	Revenue   float64   `json:"revenue"`
	Tips      float64   `json:"tips"`
}

type QuickStatistics struct {
	TotalClients      int     `json:"totalClients"`
	TotalSales        int     `json:"totalSales"`
	AvgMonthlyVisits  float64 `json:"avgMonthlyVisits"`
	AvgTicket         float64 `json:"avgTicket"`
	NoShowRate        float64 `json:"noShowRate"`
	OnlineBookingRate float64 `json:"onlineBookingRate"`
}

// GetReportAnalytics compares this month, quarter and year with the previous
// ones and lists the top services, clients and staff for the month
func (rc *ReportController) GetReportAnalytics(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	now := time.Now()
	firstOfMonth := utils.BeginningOfMonth(now)
	lastOfMonth := utils.EndOfDay(firstOfMonth.AddDate(0, 1, -1))
	quarterStart := rc.getQuarterStart(now)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	periods := []struct {
		from, to time.Time
	}{
		{firstOfMonth, lastOfMonth},
		{firstOfMonth.AddDate(0, -1, 0), firstOfMonth.Add(-time.Nanosecond)},
		{quarterStart, utils.EndOfDay(quarterStart.AddDate(0, 3, -1))},
		{quarterStart.AddDate(0, -3, 0), quarterStart.Add(-time.Nanosecond)},
		{yearStart, utils.EndOfDay(yearStart.AddDate(1, 0, -1))},
		{yearStart.AddDate(-1, 0, 0), yearStart.Add(-time.Nanosecond)},
	}
	revenue := make([]float64, len(periods))
	for i, p := range periods {
		total, err := revenueBetween(salonUUID, p.from, p.to)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get revenue")
			return
		}
		revenue[i] = total
	}

	topServices, err := rc.getTopServices(salonUUID, firstOfMonth, lastOfMonth, 5)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get top services")
		return
	}
	topClients, err := rc.getTopClients(salonUUID, firstOfMonth, lastOfMonth, 5)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get top clients")
		return
	}
	topStaff, err := rc.getTopStaff(salonUUID, firstOfMonth, lastOfMonth, 5)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get top staff")
		return
	}
	quickStats, err := rc.getQuickStatistics(salonUUID, now)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get quick statistics")
		return
	}

	c.JSON(http.StatusOK, AnalyticsSummary{
		CurrentMonthRevenue:   revenue[0],
		MonthGrowth:           rc.calculateGrowthPercentage(revenue[0], revenue[1]),
		CurrentQuarterRevenue: revenue[2],
		QuarterGrowth:         rc.calculateGrowthPercentage(revenue[2], revenue[3]),
		CurrentYearRevenue:    revenue[4],
		YearGrowth:            rc.calculateGrowthPercentage(revenue[4], revenue[5]),
		TopServices:           topServices,
		TopClients:            topClients,
		TopStaff:              topStaff,
		QuickStats:            quickStats,
	})
}

func (rc *ReportController) getQuarterStart(date time.Time) time.Time {
	quarter := (int(date.Month())-1)/3 + 1
	startMonth := time.Month((quarter-1)*3 + 1)
	return time.Date(date.Year(), startMonth, 1, 0, 0, 0, 0, date.Location())
}

func (rc *ReportController) calculateGrowthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return models.RoundMoney((current - previous) / previous * 100)
}

func (rc *ReportController) getTopServices(salonID uuid.UUID, start, end time.Time, limit int) ([]ServiceSummary, error) {
	services := []ServiceSummary{}
	err := config.DB.Table("sale_items").
		Select("sale_items.name, SUM(sale_items.quantity) AS count, SUM(sale_items.total) AS revenue").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.salon_id = ? AND sales.payment_status IN ? AND sales.created_at BETWEEN ? AND ? AND sale_items.item_type = ?",
			salonID, revenueStatuses, start, end, models.ItemService).
		Group("sale_items.name").
		Order("revenue DESC").
		Limit(limit).
		Scan(&services).Error
	return services, err
}

func (rc *ReportController) getTopClients(salonID uuid.UUID, start, end time.Time, limit int) ([]ClientSummary, error) {
	clients := []ClientSummary{}
	err := config.DB.Table("sales").
		Select("clients.id AS client_id, clients.first_name, clients.last_name, COUNT(sales.id) AS visits, SUM(sales.total - sales.refund_amount) AS spent").
		Joins("JOIN clients ON clients.id = sales.client_id").
		Where("sales.salon_id = ? AND sales.payment_status IN ? AND sales.created_at BETWEEN ? AND ?",
			salonID, revenueStatuses, start, end).
		Group("clients.id, clients.first_name, clients.last_name").
		Order("spent DESC").
		Limit(limit).
		Scan(&clients).Error
	return clients, err
}

func (rc *ReportController) getTopStaff(salonID uuid.UUID, start, end time.Time, limit int) ([]StaffSummary, error) {
	staff := []StaffSummary{}
	err := config.DB.Table("sales").
		Select("staff.id AS staff_id, staff.first_name, staff.last_name, COUNT(sales.id) AS sales, SUM(sales.total - sales.refund_amount) AS revenue, SUM(sales.tip_amount) AS tips").
		Joins("JOIN staff ON staff.id = sales.staff_id").
		Where("sales.salon_id = ? AND sales.payment_status IN ? AND sales.created_at BETWEEN ? AND ?",
			salonID, revenueStatuses, start, end).
		Group("staff.id, staff.first_name, staff.last_name").
		Order("revenue DESC").
		Limit(limit).
		Scan(&staff).Error
	return staff, err
}

func (rc *ReportController) getQuickStatistics(salonID uuid.UUID, now time.Time) (QuickStatistics, error) {
	var stats QuickStatistics

	var totalClients, totalSales int64
	if err := config.DB.Model(&models.Client{}).Where("salon_id = ? AND is_active = ?", salonID, true).
		Count(&totalClients).Error; err != nil {
		return stats, err
	}
	if err := config.DB.Model(&models.Sale{}).Where("salon_id = ? AND payment_status IN ?", salonID, revenueStatuses).
		Count(&totalSales).Error; err != nil {
		return stats, err
	}
	stats.TotalClients = int(totalClients)
	stats.TotalSales = int(totalSales)

	var totalRevenue float64
	if err := config.DB.Model(&models.Sale{}).
		Where("salon_id = ? AND payment_status IN ?", salonID, revenueStatuses).
		Select("COALESCE(SUM(total - refund_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return stats, err
	}
	if totalSales > 0 {
		stats.AvgTicket = models.RoundMoney(totalRevenue / float64(totalSales))
	}

	// Visits over the last six months
	var completed int64
	if err := config.DB.Model(&models.Appointment{}).
		Where("salon_id = ? AND status = ? AND start_time >= ?", salonID, models.AppointmentCompleted, now.AddDate(0, -6, 0)).
		Count(&completed).Error; err != nil {
		return stats, err
	}
	stats.AvgMonthlyVisits = models.RoundMoney(float64(completed) / 6)

	var total, noShows, online int64
	base := config.DB.Model(&models.Appointment{}).Where("salon_id = ?", salonID)
	if err := base.Count(&total).Error; err != nil {
		return stats, err
	}
	if total > 0 {
		config.DB.Model(&models.Appointment{}).Where("salon_id = ? AND status = ?", salonID, models.AppointmentNoShow).Count(&noShows)
		config.DB.Model(&models.Appointment{}).Where("salon_id = ? AND source = ?", salonID, models.SourceOnline).Count(&online)
		stats.NoShowRate = models.RoundMoney(float64(noShows) / float64(total) * 100)
		stats.OnlineBookingRate = models.RoundMoney(float64(online) / float64(total) * 100)
	}

	return stats, nil
}
