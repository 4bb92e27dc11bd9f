// Package scheduling owns the two stateful pieces of the system: the
// per-doctor availability ledger and the appointment lifecycle state machine.
// Handlers delegate here so that slot reservation and status transitions stay
// atomic at the storage layer.
package scheduling

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"hospital-booking-server/internal/models"
)

var (
	// ErrSlotAlreadyBooked is returned when a reservation loses the race for
	// a slot that another booking already holds.
	ErrSlotAlreadyBooked = errors.New("slot is already booked")
	// ErrSlotNotFound is returned when the (doctor, day, time) slot does not
	// exist in the doctor's schedule.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrInvalidFormat is returned when a submitted schedule contains an
	// unrecognized weekday name or a slot without a time label.
	ErrInvalidFormat = errors.New("invalid availability format")
)

// Ledger manages a doctor's weekly schedule of bookable slots. Reservation
// and release are single conditional updates so that concurrent requests for
// the same slot are serialized by the database, not by in-process locks.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a Ledger on the given database handle. Pass a
// transaction handle to make ledger operations part of a larger transaction.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// GetAvailability returns the doctor's schedule grouped by weekday, in
// calendar order with slots ordered by time label.
func (l *Ledger) GetAvailability(doctorID string) ([]models.DaySchedule, error) {
	var slots []models.AvailabilitySlot
	if err := l.db.Where("doctor_id = ?", doctorID).Find(&slots).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string][]models.SlotEntry)
	for _, slot := range slots {
		byDay[slot.Day] = append(byDay[slot.Day], models.SlotEntry{
			Time:     slot.Time,
			IsBooked: slot.IsBooked,
		})
	}

	schedule := make([]models.DaySchedule, 0, len(byDay))
	for day, entries := range byDay {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Time < entries[j].Time })
		schedule = append(schedule, models.DaySchedule{Day: day, Slots: entries})
	}
	sort.Slice(schedule, func(i, j int) bool {
		return models.WeekdayIndex(schedule[i].Day) < models.WeekdayIndex(schedule[j].Day)
	})

	return schedule, nil
}

// SetAvailability replaces the doctor's whole schedule. The submitted
// schedule must use the seven recognized weekday names and every slot must
// carry a time label; otherwise ErrInvalidFormat is returned and nothing is
// written.
func (l *Ledger) SetAvailability(doctorID string, schedule []models.DaySchedule) error {
	for _, day := range schedule {
		if !models.IsWeekday(day.Day) {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidFormat, day.Day)
		}
		for _, slot := range day.Slots {
			if slot.Time == "" {
				return fmt.Errorf("%w: slot on %s is missing a time label", ErrInvalidFormat, day.Day)
			}
		}
	}

	return l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doctor_id = ?", doctorID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		for _, day := range schedule {
			for _, slot := range day.Slots {
				record := models.AvailabilitySlot{
					DoctorID: doctorID,
					Day:      day.Day,
					Time:     slot.Time,
					IsBooked: slot.IsBooked,
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ReserveSlot marks a slot booked. The write is a single conditional update
// asserting the slot is still free, so of two concurrent reservations exactly
// one succeeds and the other observes ErrSlotAlreadyBooked.
func (l *Ledger) ReserveSlot(doctorID, day, timeLabel string) error {
	res := l.db.Model(&models.AvailabilitySlot{}).
		Where("doctor_id = ? AND day = ? AND time = ? AND is_booked = ?", doctorID, day, timeLabel, false).
		Update("is_booked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return l.classifyMiss(doctorID, day, timeLabel)
	}
	return nil
}

// ReleaseSlot marks a previously reserved slot free again.
func (l *Ledger) ReleaseSlot(doctorID, day, timeLabel string) error {
	res := l.db.Model(&models.AvailabilitySlot{}).
		Where("doctor_id = ? AND day = ? AND time = ?", doctorID, day, timeLabel).
		Update("is_booked", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// classifyMiss distinguishes a slot that exists but is taken from one that
// does not exist at all.
func (l *Ledger) classifyMiss(doctorID, day, timeLabel string) error {
	var count int64
	err := l.db.Model(&models.AvailabilitySlot{}).
		Where("doctor_id = ? AND day = ? AND time = ?", doctorID, day, timeLabel).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrSlotNotFound
	}
	return ErrSlotAlreadyBooked
}
