// services/scheduling.go
package services

import (
	"errors"
	"time"

	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SlotInterval       = 15 * time.Minute
	DefaultOpeningTime = "09:00"
	DefaultClosingTime = "19:00"
)

var (
	ErrSlotUnavailable = errors.New("the selected time slot is not available")
	ErrOutsideHours    = errors.New("the selected time is outside working hours")
	ErrLeadTime        = errors.New("appointment is too soon, please allow more notice")
)

// TimeRange is a half-open interval [Start, End)
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether r and other share any time
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// WorkingWindow returns the hours the staff member works on day. The staff
// schedule wins, then the salon's business hours, then 09:00-19:00.
func WorkingWindow(day time.Time, staff *models.Staff, salon *models.Salon) (TimeRange, bool) {
	key := utils.WeekdayKey(day)

	if staff != nil {
		if entry, ok := scheduleEntry(staff.DefaultSchedule, key); ok {
			if working, ok := entry["working"].(bool); ok && !working {
				return TimeRange{}, false
			}
			if r, ok := clockRange(day, entry["start"], entry["end"]); ok {
				return r, true
			}
		}
	}

	if salon != nil {
		if entry, ok := scheduleEntry(salon.BusinessHours, key); ok {
			if closed, ok := entry["closed"].(bool); ok && closed {
				return TimeRange{}, false
			}
			if r, ok := clockRange(day, entry["open"], entry["close"]); ok {
				return r, true
			}
		}
	}

	r, _ := clockRange(day, DefaultOpeningTime, DefaultClosingTime)
	return r, true
}

func scheduleEntry(schedule models.JSONB, key string) (map[string]interface{}, bool) {
	if schedule == nil {
		return nil, false
	}
	entry, ok := schedule[key].(map[string]interface{})
	return entry, ok
}

func clockRange(day time.Time, start, end interface{}) (TimeRange, bool) {
	s, ok1 := start.(string)
	e, ok2 := end.(string)
	if !ok1 || !ok2 {
		return TimeRange{}, false
	}
	from, err := utils.AtClock(day, s)
	if err != nil {
		return TimeRange{}, false
	}
	to, err := utils.AtClock(day, e)
	if err != nil || !to.After(from) {
		return TimeRange{}, false
	}
	return TimeRange{Start: from, End: to}, true
}

// ComputeSlots lists the start times inside window, on the slot grid, where
// a block of duration fits without touching busy and starts no earlier than
// earliest.
func ComputeSlots(window TimeRange, duration time.Duration, busy []TimeRange, earliest time.Time) []time.Time {
	slots := []time.Time{}
	if duration <= 0 {
		return slots
	}
	for t := window.Start; !t.Add(duration).After(window.End); t = t.Add(SlotInterval) {
		if t.Before(earliest) {
			continue
		}
		candidate := TimeRange{Start: t, End: t.Add(duration)}
		free := true
		for _, b := range busy {
			if candidate.Overlaps(b) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, t)
		}
	}
	return slots
}

// SlotDuration is how long a service blocks the staff member's calendar
func SlotDuration(service *models.Service, staff *models.Staff) time.Duration {
	mins := service.TotalDuration()
	if staff != nil {
		mins += staff.BookingBufferMins
	}
	return time.Duration(mins) * time.Minute
}

// LeadTimeCutoff is the earliest bookable moment for the salon
func LeadTimeCutoff(salon *models.Salon, now time.Time) time.Time {
	return now.Add(time.Duration(salon.BookingLeadTimeHours) * time.Hour)
}

// BusyRanges loads the staff member's blocking appointments between from and to
func BusyRanges(db *gorm.DB, staffID uuid.UUID, from, to time.Time, exclude *uuid.UUID) ([]TimeRange, error) {
	query := db.Model(&models.Appointment{}).
		Where("staff_id = ? AND status NOT IN ? AND start_time < ? AND end_time > ?",
			staffID, []string{models.AppointmentCancelled, models.AppointmentNoShow}, to, from)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}

	var appointments []models.Appointment
	if err := query.Select("id", "start_time", "end_time").Find(&appointments).Error; err != nil {
		return nil, err
	}

	busy := make([]TimeRange, len(appointments))
	for i, a := range appointments {
		busy[i] = TimeRange{Start: a.StartTime, End: a.EndTime}
	}
	return busy, nil
}

// HasConflict reports whether the staff member already has an active
// appointment overlapping [start, end).
func HasConflict(db *gorm.DB, staffID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error) {
	busy, err := BusyRanges(db, staffID, start, end, exclude)
	if err != nil {
		return false, err
	}
	return len(busy) > 0, nil
}

// AvailableSlots lists the free start times for a service with a staff
// member on day.
func AvailableSlots(db *gorm.DB, salon *models.Salon, staff *models.Staff, service *models.Service, day, now time.Time) ([]time.Time, error) {
	window, working := WorkingWindow(day, staff, salon)
	if !working {
		return []time.Time{}, nil
	}
	busy, err := BusyRanges(db, staff.ID, window.Start, window.End, nil)
	if err != nil {
		return nil, err
	}
	return ComputeSlots(window, SlotDuration(service, staff), busy, LeadTimeCutoff(salon, now)), nil
}

// CheckSlot validates a proposed appointment against existing bookings.
// Online bookings must also respect the lead time and working hours.
func CheckSlot(db *gorm.DB, salon *models.Salon, staff *models.Staff, start time.Time, duration time.Duration, now time.Time, exclude *uuid.UUID, online bool) error {
	if online {
		if start.Before(LeadTimeCutoff(salon, now)) {
			return ErrLeadTime
		}
		window, working := WorkingWindow(start, staff, salon)
		if !working || start.Before(window.Start) || start.Add(duration).After(window.End) {
			return ErrOutsideHours
		}
	}
	conflict, err := HasConflict(db, staff.ID, start, start.Add(duration), exclude)
	if err != nil {
		return err
	}
	if conflict {
		return ErrSlotUnavailable
	}
	return nil
}
