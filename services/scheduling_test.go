package services

import (
	"testing"
	"time"

	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monday is a fixed Monday in the local zone
var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.Local)
}

func TestComputeSlots(t *testing.T) {
	window := TimeRange{Start: at(monday, 9, 0), End: at(monday, 11, 0)}

	t.Run("empty calendar", func(t *testing.T) {
		slots := ComputeSlots(window, time.Hour, nil, time.Time{})
		require.Len(t, slots, 5)
		assert.Equal(t, at(monday, 9, 0), slots[0])
		assert.Equal(t, at(monday, 10, 0), slots[4])
	})

	t.Run("busy block removes overlapping starts", func(t *testing.T) {
		busy := []TimeRange{{Start: at(monday, 9, 30), End: at(monday, 10, 0)}}
		slots := ComputeSlots(window, 30*time.Minute, busy, time.Time{})
		assert.Equal(t, []time.Time{
			at(monday, 9, 0), at(monday, 10, 0), at(monday, 10, 15), at(monday, 10, 30),
		}, slots)
	})

	t.Run("earliest cutoff", func(t *testing.T) {
		slots := ComputeSlots(window, time.Hour, nil, at(monday, 9, 20))
		assert.Equal(t, []time.Time{at(monday, 9, 30), at(monday, 9, 45), at(monday, 10, 0)}, slots)
	})

	t.Run("duration longer than window", func(t *testing.T) {
		assert.Empty(t, ComputeSlots(window, 3*time.Hour, nil, time.Time{}))
		assert.Empty(t, ComputeSlots(window, 0, nil, time.Time{}))
	})
}

func TestTimeRangeOverlaps(t *testing.T) {
	a := TimeRange{Start: at(monday, 9, 0), End: at(monday, 10, 0)}
	assert.True(t, a.Overlaps(TimeRange{Start: at(monday, 9, 59), End: at(monday, 11, 0)}))
	assert.False(t, a.Overlaps(TimeRange{Start: at(monday, 10, 0), End: at(monday, 11, 0)}))
	assert.False(t, a.Overlaps(TimeRange{Start: at(monday, 8, 0), End: at(monday, 9, 0)}))
}

func TestWorkingWindow(t *testing.T) {
	salon := &models.Salon{BusinessHours: models.JSONB{
		"monday": map[string]interface{}{"open": "10:00", "close": "18:00"},
		"sunday": map[string]interface{}{"closed": true},
	}}

	t.Run("salon hours", func(t *testing.T) {
		w, ok := WorkingWindow(monday, &models.Staff{}, salon)
		require.True(t, ok)
		assert.Equal(t, at(monday, 10, 0), w.Start)
		assert.Equal(t, at(monday, 18, 0), w.End)
	})

	t.Run("staff schedule wins", func(t *testing.T) {
		staff := &models.Staff{DefaultSchedule: models.JSONB{
			"monday": map[string]interface{}{"working": true, "start": "12:00", "end": "20:00"},
		}}
		w, ok := WorkingWindow(monday, staff, salon)
		require.True(t, ok)
		assert.Equal(t, at(monday, 12, 0), w.Start)
		assert.Equal(t, at(monday, 20, 0), w.End)
	})

	t.Run("staff day off", func(t *testing.T) {
		staff := &models.Staff{DefaultSchedule: models.JSONB{
			"monday": map[string]interface{}{"working": false},
		}}
		_, ok := WorkingWindow(monday, staff, salon)
		assert.False(t, ok)
	})

	t.Run("salon closed", func(t *testing.T) {
		_, ok := WorkingWindow(monday.AddDate(0, 0, 6), nil, salon)
		assert.False(t, ok)
	})

	t.Run("default hours", func(t *testing.T) {
		w, ok := WorkingWindow(monday.AddDate(0, 0, 1), nil, salon)
		require.True(t, ok)
		assert.Equal(t, at(monday.AddDate(0, 0, 1), 9, 0), w.Start)
		assert.Equal(t, at(monday.AddDate(0, 0, 1), 19, 0), w.End)
	})
}

func TestSlotDuration(t *testing.T) {
	service := &models.Service{DurationMins: 60, BufferBeforeMins: 5, BufferAfterMins: 10}
	assert.Equal(t, 75*time.Minute, SlotDuration(service, nil))
	assert.Equal(t, 90*time.Minute, SlotDuration(service, &models.Staff{BookingBufferMins: 15}))
}

func TestCheckSlot(t *testing.T) {
	db := newTestDB(t)
	salon := seedSalon(t, db, nil)
	staff := seedStaff(t, db, salon)
	client := seedClient(t, db, salon, nil)

	day := time.Now().AddDate(0, 0, 3)
	existing := models.Appointment{
		SalonID:      salon.ID,
		ClientID:     client.ID,
		StaffID:      staff.ID,
		StartTime:    at(day, 10, 0),
		EndTime:      at(day, 11, 0),
		DurationMins: 60,
		Status:       models.AppointmentConfirmed,
		Source:       models.SourceStaff,
	}
	require.NoError(t, db.Create(&existing).Error)

	now := time.Now()

	assert.ErrorIs(t, CheckSlot(db, salon, staff, at(day, 10, 30), time.Hour, now, nil, false), ErrSlotUnavailable)
	assert.NoError(t, CheckSlot(db, salon, staff, at(day, 11, 0), time.Hour, now, nil, false))
	assert.NoError(t, CheckSlot(db, salon, staff, at(day, 10, 30), time.Hour, now, &existing.ID, false))

	t.Run("online bookings respect hours and lead time", func(t *testing.T) {
		assert.ErrorIs(t, CheckSlot(db, salon, staff, at(day, 7, 0), time.Hour, now, nil, true), ErrOutsideHours)
		assert.ErrorIs(t, CheckSlot(db, salon, staff, now.Add(30*time.Minute), time.Hour, now, nil, true), ErrLeadTime)
	})

	t.Run("cancelled appointments free the slot", func(t *testing.T) {
		require.NoError(t, db.Model(&existing).Update("status", models.AppointmentCancelled).Error)
		conflict, err := HasConflict(db, staff.ID, at(day, 10, 0), at(day, 11, 0), nil)
		require.NoError(t, err)
		assert.False(t, conflict)
	})

	t.Run("other staff are unaffected", func(t *testing.T) {
		conflict, err := HasConflict(db, uuid.New(), at(day, 10, 0), at(day, 11, 0), nil)
		require.NoError(t, err)
		assert.False(t, conflict)
	})
}

func TestAvailableSlots(t *testing.T) {
	db := newTestDB(t)
	salon := seedSalon(t, db, func(s *models.Salon) { s.BookingLeadTimeHours = 0 })
	staff := seedStaff(t, db, salon)
	client := seedClient(t, db, salon, nil)
	service := &models.Service{SalonID: salon.ID, Name: "Cut", Price: 60, DurationMins: 60, IsActive: true}
	require.NoError(t, db.Create(service).Error)

	day := time.Now().AddDate(0, 0, 2)
	require.NoError(t, db.Create(&models.Appointment{
		SalonID:      salon.ID,
		ClientID:     client.ID,
		StaffID:      staff.ID,
		StartTime:    at(day, 9, 0),
		EndTime:      at(day, 18, 0),
		DurationMins: 540,
		Status:       models.AppointmentScheduled,
		Source:       models.SourceStaff,
	}).Error)

	slots, err := AvailableSlots(db, salon, staff, service, utils.BeginningOfDay(day), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(day, 18, 0)}, slots)
}
