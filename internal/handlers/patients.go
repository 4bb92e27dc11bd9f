package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/middleware"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/scheduling"
	"hospital-booking-server/internal/utils"
)

// PatientHandler handles patient directory and booking requests.
type PatientHandler struct {
	DB        *gorm.DB
	Lifecycle *scheduling.Lifecycle
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB, lifecycle *scheduling.Lifecycle) *PatientHandler {
	return &PatientHandler{DB: db, Lifecycle: lifecycle}
}

// RegisterPatientRequest represents the request body for patient registration.
type RegisterPatientRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	PhoneNumber    string `json:"phoneNumber"`
	MedicalHistory string `json:"medicalHistory"`
}

// RegisterPatient handles patient self-registration. Patients are validated
// at creation.
func (h *PatientHandler) RegisterPatient(c *gin.Context) {
	var req RegisterPatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.Conflict(c, "User with this email already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	patient := models.User{
		Name:           req.Name,
		Email:          req.Email,
		Role:           models.RolePatient,
		PhoneNumber:    req.PhoneNumber,
		MedicalHistory: req.MedicalHistory,
		IsValidated:    true,
	}
	if err := patient.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	if err := h.DB.Create(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	utils.Created(c, "Patient registered successfully", patient.Sanitize())
}

// GetPatients handles fetching all patients (doctor/admin).
func (h *PatientHandler) GetPatients(c *gin.Context) {
	var patients []models.User
	if err := h.DB.Where("role = ?", models.RolePatient).Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(patients))
	for i, p := range patients {
		sanitized[i] = p.Sanitize()
	}
	utils.Success(c, "Patients fetched successfully", sanitized)
}

// GetPatientByID handles fetching a single patient. Patients may fetch
// themselves; doctors and admins may fetch anyone.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	patientID := c.Param("id")

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil || (caller.Role == models.RolePatient && caller.ID != patientID) {
		utils.Forbidden(c, "You are not authorized to view this patient.")
		return
	}

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", patientID, models.RolePatient).First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Patient fetched successfully", patient.Sanitize())
}

// UpdatePatientRequest represents the request body for updating a patient.
type UpdatePatientRequest struct {
	Name           string `json:"name"`
	PhoneNumber    string `json:"phoneNumber"`
	MedicalHistory string `json:"medicalHistory"`
}

// UpdatePatient handles updating a patient. Patients may update themselves;
// admins may update anyone.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	patientID := c.Param("id")

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil || (caller.Role != models.RoleAdmin && caller.ID != patientID) {
		utils.Forbidden(c, "You are not authorized to update this patient.")
		return
	}

	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", patientID, models.RolePatient).First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Name != "" {
		patient.Name = req.Name
	}
	if req.PhoneNumber != "" {
		patient.PhoneNumber = req.PhoneNumber
	}
	if req.MedicalHistory != "" {
		patient.MedicalHistory = req.MedicalHistory
	}

	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}
	utils.Success(c, "Patient updated successfully", patient.Sanitize())
}

// DeletePatient handles deleting a patient account (admin). Refused while
// the patient still has open appointments.
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", patientID, models.RolePatient).First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var open int64
	err := h.DB.Model(&models.Appointment{}).
		Where("patient_id = ? AND status IN ?", patientID,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Count(&open).Error
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if open > 0 {
		utils.Conflict(c, "Patient still has open appointments")
		return
	}

	if err := h.DB.Delete(&models.User{}, "id = ?", patientID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete patient: "+err.Error())
		return
	}
	utils.Success(c, "Patient deleted successfully", nil)
}

// BookAppointmentRequest represents the request body for booking.
type BookAppointmentRequest struct {
	DoctorID        string    `json:"doctorId" binding:"required,uuid"`
	DepartmentID    string    `json:"departmentId" binding:"required,uuid"`
	AppointmentDate time.Time `json:"appointmentDate" binding:"required"`
	SlotDay         string    `json:"slotDay" binding:"required"`
	SlotTime        string    `json:"slotTime" binding:"required"`
	Reason          string    `json:"reason" binding:"required"`
}

// BookAppointment handles a patient booking an appointment. The slot
// reservation and appointment creation happen atomically in the lifecycle
// manager; two patients racing for the same slot cannot both succeed.
func (h *PatientHandler) BookAppointment(c *gin.Context) {
	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.AppointmentDate.Before(time.Now()) {
		utils.BadRequest(c, "Appointment date must be in the future.")
		return
	}

	appointment, err := h.Lifecycle.Book(scheduling.BookRequest{
		PatientID:    caller.ID,
		DoctorID:     req.DoctorID,
		DepartmentID: req.DepartmentID,
		Date:         req.AppointmentDate,
		SlotDay:      req.SlotDay,
		SlotTime:     req.SlotTime,
		Reason:       req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrDoctorNotFound):
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		case errors.Is(err, scheduling.ErrDoctorNotValidated):
			utils.BadRequest(c, "Doctor has not been validated yet")
		case errors.Is(err, scheduling.ErrDepartmentNotFound):
			utils.NotFound(c, "Department not found")
		case errors.Is(err, scheduling.ErrSlotNotFound):
			utils.NotFound(c, "Requested slot is not in the doctor's schedule")
		case errors.Is(err, scheduling.ErrSlotAlreadyBooked):
			utils.Conflict(c, "Requested slot is already booked")
		default:
			utils.InternalServerError(c, "Failed to book appointment: "+err.Error())
		}
		return
	}

	utils.Created(c, "Appointment booked successfully", appointment)
}

// MyAppointments handles fetching the authenticated patient's appointments,
// date ascending.
func (h *PatientHandler) MyAppointments(c *gin.Context) {
	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointments, err := h.Lifecycle.ListByPatient(caller.ID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// MyMedicalHistory handles fetching the authenticated patient's medical
// records, newest first.
func (h *PatientHandler) MyMedicalHistory(c *gin.Context) {
	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var records []models.MedicalRecord
	err := h.DB.Preload("Doctor").Preload("Appointment").
		Preload("Medications").Preload("Attachments").
		Where("patient_id = ?", caller.ID).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch medical history: "+err.Error())
		return
	}
	utils.Success(c, "Medical history fetched successfully", records)
}
