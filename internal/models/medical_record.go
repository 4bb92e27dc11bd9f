package models

import (
	"time"
)

// VitalSigns holds the measurements taken during an encounter. Embedded in
// MedicalRecord as vital_* columns.
type VitalSigns struct {
	BloodPressure   string `gorm:"size:20" json:"bloodPressure,omitempty"`
	HeartRate       string `gorm:"size:20" json:"heartRate,omitempty"`
	Temperature     string `gorm:"size:20" json:"temperature,omitempty"`
	RespiratoryRate string `gorm:"size:20" json:"respiratoryRate,omitempty"`
}

// MedicalRecord is one row per clinical encounter, tied 1:1 to the completed
// appointment it documents.
type MedicalRecord struct {
	BaseModel
	PatientID     string `gorm:"size:36;index" json:"patientId"`
	DoctorID      string `gorm:"size:36;index" json:"doctorId"`
	AppointmentID string `gorm:"size:36;uniqueIndex" json:"appointmentId"`

	Diagnosis    string     `gorm:"type:text;not null" json:"diagnosis"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	VitalSigns   VitalSigns `gorm:"embedded;embeddedPrefix:vital_" json:"vitalSigns"`
	FollowUpDate *time.Time `json:"followUpDate,omitempty"`

	// Relations
	Patient     *User                     `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor      *User                     `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Appointment *Appointment              `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Medications []Medication              `gorm:"foreignKey:MedicalRecordID" json:"medications,omitempty"`
	Attachments []MedicalRecordAttachment `gorm:"foreignKey:MedicalRecordID" json:"attachments,omitempty"`
}

// Medication is a single prescription line on a medical record.
type Medication struct {
	BaseModel
	MedicalRecordID string `gorm:"size:36;index;not null" json:"medicalRecordId"`
	Name            string `gorm:"size:255;not null" json:"name"`
	Dosage          string `gorm:"size:100" json:"dosage"`
	Frequency       string `gorm:"size:100" json:"frequency"`
	Duration        string `gorm:"size:100" json:"duration"`
}

// MedicalRecordAttachment references a file stored in object storage.
type MedicalRecordAttachment struct {
	BaseModel
	MedicalRecordID string `gorm:"size:36;index;not null" json:"medicalRecordId"`
	URL             string `gorm:"size:512;not null" json:"url"`
	Description     string `gorm:"size:255" json:"description,omitempty"`
}
