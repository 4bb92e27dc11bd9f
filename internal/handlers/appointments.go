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

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB        *gorm.DB
	Lifecycle *scheduling.Lifecycle
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, lifecycle *scheduling.Lifecycle) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Lifecycle: lifecycle}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PatientID       string    `json:"patientId" binding:"required,uuid"`
	DoctorID        string    `json:"doctorId" binding:"required,uuid"`
	DepartmentID    string    `json:"departmentId" binding:"required,uuid"`
	AppointmentDate time.Time `json:"appointmentDate" binding:"required"`
	SlotDay         string    `json:"slotDay" binding:"required"`
	SlotTime        string    `json:"slotTime" binding:"required"`
	Reason          string    `json:"reason" binding:"required"`
}

// CreateAppointment handles creating an appointment. Patients can only book
// for themselves; doctors and admins may book on a patient's behalf.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if caller.Role == models.RolePatient && caller.ID != req.PatientID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", req.PatientID, models.RolePatient).First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	appointment, err := h.Lifecycle.Book(scheduling.BookRequest{
		PatientID:    req.PatientID,
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
			utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		}
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointments handles listing appointments. Admins see everything,
// doctors their own schedule, patients their own bookings. Supports
// ?status=, ?doctor= and ?department= filters.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	filter := scheduling.ListFilter{
		Status:       models.AppointmentStatus(c.Query("status")),
		DoctorID:     c.Query("doctor"),
		DepartmentID: c.Query("department"),
	}

	switch caller.Role {
	case models.RoleDoctor:
		filter.DoctorID = caller.ID
	case models.RolePatient:
		filter.PatientID = caller.ID
	}

	appointments, err := h.Lifecycle.ListAll(filter)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the involved patient, the involved doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, err := h.Lifecycle.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if caller.Role != models.RoleAdmin && caller.ID != appointment.PatientID && caller.ID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// MedicalDataRequest is the clinical payload attached when completing an
// appointment.
type MedicalDataRequest struct {
	Diagnosis    string              `json:"diagnosis" binding:"required"`
	Notes        string              `json:"notes"`
	Medications  []MedicationRequest `json:"medications"`
	VitalSigns   models.VitalSigns   `json:"vitalSigns"`
	FollowUpDate *time.Time          `json:"followUpDate"`
}

// MedicationRequest is a single prescription line in a request body.
type MedicationRequest struct {
	Name      string `json:"name" binding:"required"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// UpdateAppointmentStatusRequest represents the request body for updating an
// appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status      models.AppointmentStatus `json:"status" binding:"required"`
	MedicalData *MedicalDataRequest      `json:"medicalData"`
}

// UpdateAppointmentStatus handles a state-machine transition. Doctors manage
// their own appointments, admins any; patients may only cancel their own.
// Completing with medicalData also writes the medical record atomically.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	appointmentID := c.Param("id")

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Lifecycle.GetByID(appointmentID)
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	canUpdate := false
	switch caller.Role {
	case models.RoleAdmin:
		canUpdate = true
	case models.RoleDoctor:
		canUpdate = caller.ID == appointment.DoctorID
	case models.RolePatient:
		if caller.ID == appointment.PatientID {
			if req.Status != models.StatusCancelled {
				utils.Forbidden(c, "Patients can only cancel appointments.")
				return
			}
			canUpdate = true
		}
	}
	if !canUpdate {
		utils.Forbidden(c, "You are not authorized to update this appointment's status.")
		return
	}

	var data *scheduling.MedicalData
	if req.MedicalData != nil {
		medications := make([]models.Medication, len(req.MedicalData.Medications))
		for i, m := range req.MedicalData.Medications {
			medications[i] = models.Medication{
				Name:      m.Name,
				Dosage:    m.Dosage,
				Frequency: m.Frequency,
				Duration:  m.Duration,
			}
		}
		data = &scheduling.MedicalData{
			Diagnosis:    req.MedicalData.Diagnosis,
			Notes:        req.MedicalData.Notes,
			Medications:  medications,
			VitalSigns:   req.MedicalData.VitalSigns,
			FollowUpDate: req.MedicalData.FollowUpDate,
		}
	}

	updated, err := h.Lifecycle.UpdateStatus(appointmentID, req.Status, data)
	if err != nil {
		if errors.Is(err, scheduling.ErrInvalidTransition) {
			utils.BadRequest(c, err.Error())
		} else {
			utils.InternalServerError(c, "Failed to update appointment status: "+err.Error())
		}
		return
	}

	utils.Success(c, "Appointment status updated successfully", updated)
}

// UpdateAppointmentRequest represents the request body for editing an
// appointment's date or reason.
type UpdateAppointmentRequest struct {
	AppointmentDate *time.Time `json:"appointmentDate"`
	Reason          string     `json:"reason"`
}

// UpdateAppointment handles editing an appointment's date or reason. Status
// changes must go through the status endpoint so the state machine cannot be
// bypassed.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	appointment, err := h.Lifecycle.GetByID(appointmentID)
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if caller.Role != models.RoleAdmin && caller.ID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to update this appointment.")
		return
	}
	if appointment.Status.IsTerminal() {
		utils.BadRequest(c, "Cannot edit an appointment in a terminal state.")
		return
	}

	updates := map[string]interface{}{}
	if req.AppointmentDate != nil {
		updates["appointment_date"] = *req.AppointmentDate
	}
	if req.Reason != "" {
		updates["reason"] = req.Reason
	}
	if len(updates) == 0 {
		utils.BadRequest(c, "Nothing to update.")
		return
	}

	if err := h.DB.Model(&models.Appointment{}).Where("id = ?", appointmentID).Updates(updates).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}

	updated, err := h.Lifecycle.GetByID(appointmentID)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	utils.Success(c, "Appointment updated successfully", updated)
}

// DeleteAppointment handles deleting an appointment. Restricted to admins;
// refused while a medical record references the appointment.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	if err := h.Lifecycle.Delete(appointmentID); err != nil {
		switch {
		case errors.Is(err, scheduling.ErrAppointmentNotFound):
			utils.NotFound(c, "Appointment not found")
		case errors.Is(err, scheduling.ErrHasMedicalRecord):
			utils.Conflict(c, "Appointment has a medical record and cannot be deleted")
		default:
			utils.InternalServerError(c, "Failed to delete appointment: "+err.Error())
		}
		return
	}

	utils.Success(c, "Appointment removed", nil)
}
