package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// statusTransitions is the canonical appointment state machine. Completed,
// cancelled and no-show are terminal.
var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether moving from one appointment status to
// another is allowed by the state machine.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from status.
func (s AppointmentStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel
	PatientID    string `gorm:"size:36;index" json:"patientId"`
	DoctorID     string `gorm:"size:36;index" json:"doctorId"`
	DepartmentID string `gorm:"size:36;index" json:"departmentId"`

	AppointmentDate time.Time         `json:"appointmentDate"`
	SlotDay         string            `gorm:"size:12" json:"slotDay"`
	SlotTime        string            `gorm:"size:20" json:"slotTime"`
	Reason          string            `gorm:"size:255" json:"reason"`
	Status          AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`

	// Relations
	Patient    *User       `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor     *User       `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}
