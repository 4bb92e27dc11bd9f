package models

import (
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// User represents a patient, doctor or admin account.
type User struct {
	BaseModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Email       string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Role        Role   `gorm:"size:20;not null" json:"role"`
	PhoneNumber string `gorm:"size:30" json:"phoneNumber,omitempty"`

	// IsValidated gates login for doctors. Patients and admins are validated
	// at creation; doctors stay unvalidated until an admin approves them.
	IsValidated bool `gorm:"default:false" json:"isValidated"`

	// Username issued by the admin together with a one-time password when a
	// doctor account is approved.
	Username string `gorm:"size:100" json:"-"`

	// Patient-only fields
	MedicalHistory string `gorm:"type:text" json:"medicalHistory,omitempty"`

	// Doctor-only fields
	Specialization string  `gorm:"size:100" json:"specialization,omitempty"`
	DepartmentID   *string `gorm:"size:36;index" json:"departmentId,omitempty"`
	ProfileImage   string  `gorm:"size:512" json:"profileImage,omitempty"`
	DiplomaImage   string  `gorm:"size:512" json:"diplomaImage,omitempty"`

	// Relations (not always preloaded)
	Department          *Department        `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Availability        []AvailabilitySlot `gorm:"foreignKey:DoctorID" json:"availability,omitempty"`
	DoctorAppointments  []Appointment      `gorm:"foreignKey:DoctorID" json:"-"`
	PatientAppointments []Appointment      `gorm:"foreignKey:PatientID" json:"-"`
	MedicalRecords      []MedicalRecord    `gorm:"foreignKey:PatientID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Role           Role    `json:"role"`
	PhoneNumber    string  `json:"phoneNumber,omitempty"`
	IsValidated    bool    `json:"isValidated"`
	MedicalHistory string  `json:"medicalHistory,omitempty"`
	Specialization string  `json:"specialization,omitempty"`
	DepartmentID   *string `json:"departmentId,omitempty"`
	ProfileImage   string  `json:"profileImage,omitempty"`
	DiplomaImage   string  `json:"diplomaImage,omitempty"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		PhoneNumber:    u.PhoneNumber,
		IsValidated:    u.IsValidated,
		MedicalHistory: u.MedicalHistory,
		Specialization: u.Specialization,
		DepartmentID:   u.DepartmentID,
		ProfileImage:   u.ProfileImage,
		DiplomaImage:   u.DiplomaImage,
	}
}
