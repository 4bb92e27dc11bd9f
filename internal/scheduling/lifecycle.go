package scheduling

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hospital-booking-server/internal/models"
)

var (
	// ErrInvalidTransition is returned for any status change not allowed by
	// the appointment state machine.
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	// ErrAppointmentNotFound is returned when the appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrDoctorNotFound is returned when the referenced doctor does not
	// exist or the referenced user is not a doctor.
	ErrDoctorNotFound = errors.New("doctor not found")
	// ErrDoctorNotValidated is returned when booking an unapproved doctor.
	ErrDoctorNotValidated = errors.New("doctor has not been validated")
	// ErrDepartmentNotFound is returned when the referenced department does
	// not exist.
	ErrDepartmentNotFound = errors.New("department not found")
	// ErrHasMedicalRecord is returned when deleting an appointment that a
	// medical record still references.
	ErrHasMedicalRecord = errors.New("appointment has a dependent medical record")
)

// Real-time event names emitted on appointment lifecycle changes.
const (
	EventNewAppointment     = "newAppointment"
	EventAppointmentUpdated = "appointmentUpdated"
	EventAppointmentDeleted = "appointmentDeleted"
)

// EventEmitter receives lifecycle events for fan-out to connected clients.
// Emission is fire-and-forget; implementations must never block or fail the
// calling operation.
type EventEmitter interface {
	Emit(event string, payload interface{})
}

// BookRequest carries everything needed to create an appointment.
type BookRequest struct {
	PatientID    string
	DoctorID     string
	DepartmentID string
	Date         time.Time
	SlotDay      string
	SlotTime     string
	Reason       string
}

// MedicalData is the optional clinical payload attached when an appointment
// is marked completed.
type MedicalData struct {
	Diagnosis    string
	Notes        string
	Medications  []models.Medication
	VitalSigns   models.VitalSigns
	FollowUpDate *time.Time
}

// Lifecycle owns the appointment state machine. Booking reserves the ledger
// slot and creates the appointment in one transaction; completing with
// clinical data writes the medical record in the same transaction as the
// status change.
type Lifecycle struct {
	db      *gorm.DB
	emitter EventEmitter
}

// NewLifecycle creates a Lifecycle. emitter may be nil when no real-time
// channel is attached.
func NewLifecycle(db *gorm.DB, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{db: db, emitter: emitter}
}

// Book validates the doctor and department, reserves the requested slot and
// creates the appointment with status pending, all in one transaction.
func (l *Lifecycle) Book(req BookRequest) (*models.Appointment, error) {
	var doctor models.User
	if err := l.db.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if !doctor.IsValidated {
		return nil, ErrDoctorNotValidated
	}

	var department models.Department
	if err := l.db.First(&department, "id = ?", req.DepartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}

	appointment := models.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		DepartmentID:    req.DepartmentID,
		AppointmentDate: req.Date,
		SlotDay:         req.SlotDay,
		SlotTime:        req.SlotTime,
		Reason:          req.Reason,
		Status:          models.StatusPending,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := NewLedger(tx).ReserveSlot(req.DoctorID, req.SlotDay, req.SlotTime); err != nil {
			return err
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		return nil, err
	}

	populated, err := l.GetByID(appointment.ID)
	if err != nil {
		return &appointment, nil
	}
	l.emit(EventNewAppointment, populated)
	return populated, nil
}

// UpdateStatus applies a state-machine-checked transition. Completing with
// clinical data also creates the medical record; cancelling releases the
// reserved slot. Both happen in the same transaction as the status write.
func (l *Lifecycle) UpdateStatus(id string, newStatus models.AppointmentStatus, data *MedicalData) (*models.Appointment, error) {
	if !models.ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	var appointment models.Appointment
	if err := l.db.First(&appointment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if !models.CanTransition(appointment.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appointment.Status, newStatus)
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		// Conditional write on the previous status so a concurrent
		// transition cannot be silently overwritten.
		res := tx.Model(&models.Appointment{}).
			Where("id = ? AND status = ?", id, appointment.Status).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: appointment status changed concurrently", ErrInvalidTransition)
		}

		if newStatus == models.StatusCompleted && data != nil {
			record := models.MedicalRecord{
				PatientID:     appointment.PatientID,
				DoctorID:      appointment.DoctorID,
				AppointmentID: appointment.ID,
				Diagnosis:     data.Diagnosis,
				Notes:         data.Notes,
				VitalSigns:    data.VitalSigns,
				FollowUpDate:  data.FollowUpDate,
				Medications:   data.Medications,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		if newStatus == models.StatusCancelled && appointment.SlotDay != "" {
			err := NewLedger(tx).ReleaseSlot(appointment.DoctorID, appointment.SlotDay, appointment.SlotTime)
			if err != nil && !errors.Is(err, ErrSlotNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	populated, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}
	l.emit(EventAppointmentUpdated, populated)
	return populated, nil
}

// Cancel is a convenience wrapper for the cancelled transition.
func (l *Lifecycle) Cancel(id string) (*models.Appointment, error) {
	return l.UpdateStatus(id, models.StatusCancelled, nil)
}

// Delete removes an appointment, releasing its slot. Deletion is refused
// while a medical record references the appointment.
func (l *Lifecycle) Delete(id string) error {
	appointment, err := l.GetByID(id)
	if err != nil {
		return err
	}

	var records int64
	if err := l.db.Model(&models.MedicalRecord{}).Where("appointment_id = ?", id).Count(&records).Error; err != nil {
		return err
	}
	if records > 0 {
		return ErrHasMedicalRecord
	}

	err = l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Appointment{}, "id = ?", id).Error; err != nil {
			return err
		}
		if appointment.SlotDay != "" && appointment.Status != models.StatusCancelled {
			err := NewLedger(tx).ReleaseSlot(appointment.DoctorID, appointment.SlotDay, appointment.SlotTime)
			if err != nil && !errors.Is(err, ErrSlotNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.emit(EventAppointmentDeleted, appointment)
	return nil
}

// GetByID fetches an appointment with its patient, doctor and department
// references expanded.
func (l *Lifecycle) GetByID(id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := l.db.Preload("Patient").Preload("Doctor").Preload("Department").
		First(&appointment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &appointment, nil
}

// ListFilter narrows ListAll results.
type ListFilter struct {
	Status       models.AppointmentStatus
	DoctorID     string
	PatientID    string
	DepartmentID string
}

// ListAll returns appointments matching the filter, newest first.
func (l *Lifecycle) ListAll(filter ListFilter) ([]models.Appointment, error) {
	query := l.db.Preload("Patient").Preload("Doctor").Preload("Department").
		Order("appointment_date desc")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DoctorID != "" {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.DepartmentID != "" {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

// ListByPatient returns a patient's appointments sorted by date ascending,
// the order "my appointments" views expect.
func (l *Lifecycle) ListByPatient(patientID string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := l.db.Preload("Doctor").Preload("Department").
		Where("patient_id = ?", patientID).
		Order("appointment_date asc").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// ListByDoctor returns a doctor's appointments sorted by date ascending.
func (l *Lifecycle) ListByDoctor(doctorID string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := l.db.Preload("Patient").Preload("Department").
		Where("doctor_id = ?", doctorID).
		Order("appointment_date asc").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (l *Lifecycle) emit(event string, payload interface{}) {
	if l.emitter != nil {
		l.emitter.Emit(event, payload)
	}
}
