package models

// Weekday names accepted in a doctor's schedule, in calendar order.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var weekdayOrder = func() map[string]int {
	m := make(map[string]int, len(Weekdays))
	for i, d := range Weekdays {
		m[d] = i
	}
	return m
}()

// IsWeekday reports whether day is one of the seven recognized weekday names.
func IsWeekday(day string) bool {
	_, ok := weekdayOrder[day]
	return ok
}

// WeekdayIndex returns the calendar position of a weekday name, starting at
// Monday = 0. Unknown names sort last.
func WeekdayIndex(day string) int {
	if i, ok := weekdayOrder[day]; ok {
		return i
	}
	return len(Weekdays)
}

// AvailabilitySlot is one bookable (day, time) unit in a doctor's weekly
// schedule. The unique index lets the storage layer serialize concurrent
// reservations of the same slot.
type AvailabilitySlot struct {
	BaseModel
	DoctorID string `gorm:"size:36;not null;uniqueIndex:idx_doctor_day_time" json:"-"`
	Day      string `gorm:"size:12;not null;uniqueIndex:idx_doctor_day_time" json:"-"`
	Time     string `gorm:"size:20;not null;uniqueIndex:idx_doctor_day_time" json:"time"`
	IsBooked bool   `gorm:"default:false" json:"isBooked"`
}

// DaySchedule is the API shape of one weekday's slots.
type DaySchedule struct {
	Day   string      `json:"day"`
	Slots []SlotEntry `json:"slots"`
}

// SlotEntry is the API shape of a single slot.
type SlotEntry struct {
	Time     string `json:"time"`
	IsBooked bool   `json:"isBooked"`
}
