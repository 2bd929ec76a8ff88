package controllers

import (
	"testing"
	"time"

	"salonsync-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevenueSeries(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	sale := func(day, hour int, total, refund float64) models.Sale {
		s := models.Sale{Total: total, RefundAmount: refund}
		s.CreatedAt = time.Date(2024, 6, day, hour, 0, 0, 0, time.Local)
		return s
	}

	points := revenueSeries([]models.Sale{
		sale(1, 10, 120, 0),
		sale(1, 18, 80.5, 20),
		sale(3, 9, 45, 0),
		sale(9, 9, 999, 0),
	}, start, 3)

	require.Len(t, points, 3)
	assert.Equal(t, RevenuePoint{Date: "2024-06-01", Revenue: 180.5, Sales: 2}, points[0])
	assert.Equal(t, RevenuePoint{Date: "2024-06-02"}, points[1])
	assert.Equal(t, RevenuePoint{Date: "2024-06-03", Revenue: 45, Sales: 1}, points[2])
}
