package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/middleware"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/scheduling"
	"hospital-booking-server/internal/utils"
)

// DoctorHandler handles doctor directory and availability requests.
type DoctorHandler struct {
	DB        *gorm.DB
	Ledger    *scheduling.Ledger
	Lifecycle *scheduling.Lifecycle
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, ledger *scheduling.Ledger, lifecycle *scheduling.Lifecycle) *DoctorHandler {
	return &DoctorHandler{DB: db, Ledger: ledger, Lifecycle: lifecycle}
}

// CreateDoctorRequest represents the request body for an admin creating a
// doctor account directly.
type CreateDoctorRequest struct {
	Name           string               `json:"name" binding:"required"`
	Email          string               `json:"email" binding:"required,email"`
	Password       string               `json:"password" binding:"required,min=8"`
	PhoneNumber    string               `json:"phoneNumber"`
	Specialization string               `json:"specialization" binding:"required"`
	DepartmentID   string               `json:"departmentId" binding:"required,uuid"`
	Availability   []models.DaySchedule `json:"availability"`
	ProfileImage   string               `json:"profileImage"`
	DiplomaImage   string               `json:"diplomaImage"`
}

// CreateDoctor handles an admin creating a doctor account. Unlike
// self-registration the account is validated immediately.
func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
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

	var department models.Department
	if err := h.DB.First(&department, "id = ?", req.DepartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Department not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	doctor := models.User{
		Name:           req.Name,
		Email:          req.Email,
		Role:           models.RoleDoctor,
		PhoneNumber:    req.PhoneNumber,
		Specialization: req.Specialization,
		DepartmentID:   &req.DepartmentID,
		ProfileImage:   req.ProfileImage,
		DiplomaImage:   req.DiplomaImage,
		IsValidated:    true,
	}
	if err := doctor.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	if err := h.DB.Create(&doctor).Error; err != nil {
		utils.InternalServerError(c, "Failed to create doctor: "+err.Error())
		return
	}

	if len(req.Availability) > 0 {
		if err := h.Ledger.SetAvailability(doctor.ID, req.Availability); err != nil {
			if errors.Is(err, scheduling.ErrInvalidFormat) {
				utils.BadRequest(c, err.Error())
			} else {
				utils.InternalServerError(c, "Failed to store availability: "+err.Error())
			}
			return
		}
	}

	utils.Created(c, "Doctor created successfully", doctor.Sanitize())
}

// GetDoctors handles fetching all doctors. Admins see every doctor; other
// callers only see validated ones. Supports ?department= and
// ?validatedOnly= filters.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	query := h.DB.Where("role = ?", models.RoleDoctor)

	if departmentID := c.Query("department"); departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil || caller.Role != models.RoleAdmin || c.Query("validatedOnly") == "true" {
		query = query.Where("is_validated = ?", true)
	}

	var doctors []models.User
	if err := query.Preload("Department").Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(doctors))
	for i, d := range doctors {
		sanitized[i] = d.Sanitize()
	}
	utils.Success(c, "Doctors fetched successfully", sanitized)
}

// GetDoctorByID handles fetching a single doctor by ID.
func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	doctorID := c.Param("id")

	var doctor models.User
	err := h.DB.Preload("Department").
		Where("id = ? AND role = ?", doctorID, models.RoleDoctor).
		First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Doctor fetched successfully", doctor.Sanitize())
}

// UpdateDoctorRequest represents the request body for updating a doctor.
type UpdateDoctorRequest struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	DepartmentID   string `json:"departmentId"`
	PhoneNumber    string `json:"phoneNumber"`
	ProfileImage   string `json:"profileImage"`
	DiplomaImage   string `json:"diplomaImage"`
}

// UpdateDoctor handles updating a doctor's profile. Doctors may update
// themselves; admins may update anyone.
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	doctorID := c.Param("id")

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil || (caller.Role != models.RoleAdmin && caller.ID != doctorID) {
		utils.Forbidden(c, "You are not authorized to update this doctor.")
		return
	}

	var req UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Name != "" {
		doctor.Name = req.Name
	}
	if req.Specialization != "" {
		doctor.Specialization = req.Specialization
	}
	if req.DepartmentID != "" {
		var department models.Department
		if err := h.DB.First(&department, "id = ?", req.DepartmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFound(c, "Department not found")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return
		}
		doctor.DepartmentID = &req.DepartmentID
	}
	if req.PhoneNumber != "" {
		doctor.PhoneNumber = req.PhoneNumber
	}
	if req.ProfileImage != "" {
		doctor.ProfileImage = req.ProfileImage
	}
	if req.DiplomaImage != "" {
		doctor.DiplomaImage = req.DiplomaImage
	}

	if err := h.DB.Save(&doctor).Error; err != nil {
		utils.InternalServerError(c, "Failed to update doctor: "+err.Error())
		return
	}

	utils.Success(c, "Doctor updated successfully", doctor.Sanitize())
}

// DeleteDoctor handles deleting a doctor account (admin). Refused while the
// doctor still has non-terminal appointments.
func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	doctorID := c.Param("id")

	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var open int64
	err := h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status IN ?", doctorID,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Count(&open).Error
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if open > 0 {
		utils.Conflict(c, "Doctor still has open appointments")
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doctor_id = ?", doctorID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", doctorID).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete doctor: "+err.Error())
		return
	}

	utils.Success(c, "Doctor deleted successfully", nil)
}

// GetAvailability handles fetching a doctor's weekly schedule.
func (h *DoctorHandler) GetAvailability(c *gin.Context) {
	doctorID := c.Param("id")

	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	schedule, err := h.Ledger.GetAvailability(doctorID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}
	utils.Success(c, "Availability fetched successfully", schedule)
}

// SetAvailabilityRequest represents the request body for replacing a
// doctor's schedule.
type SetAvailabilityRequest struct {
	Availability []models.DaySchedule `json:"availability" binding:"required"`
}

// SetAvailability handles replacing a doctor's weekly schedule. Doctors may
// only edit their own schedule; admins may edit anyone's.
func (h *DoctorHandler) SetAvailability(c *gin.Context) {
	doctorID := c.Param("id")

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil || (caller.Role != models.RoleAdmin && caller.ID != doctorID) {
		utils.Forbidden(c, "You are not authorized to edit this schedule.")
		return
	}

	var req SetAvailabilityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.Ledger.SetAvailability(doctorID, req.Availability); err != nil {
		if errors.Is(err, scheduling.ErrInvalidFormat) {
			utils.BadRequest(c, err.Error())
		} else {
			utils.InternalServerError(c, "Failed to store availability: "+err.Error())
		}
		return
	}

	schedule, err := h.Ledger.GetAvailability(doctorID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}
	utils.Success(c, "Availability updated successfully", schedule)
}

// DoctorStats summarises a doctor's activity.
type DoctorStats struct {
	DoctorName       string `json:"doctorName"`
	PatientCount     int64  `json:"patientCount"`
	AppointmentCount int64  `json:"appointmentCount"`
}

// GetStats handles fetching a doctor's statistics: distinct patients seen
// and total appointments.
func (h *DoctorHandler) GetStats(c *gin.Context) {
	doctorID := c.Param("id")

	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	stats := DoctorStats{DoctorName: doctor.Name}

	err := h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ?", doctorID).
		Distinct("patient_id").
		Count(&stats.PatientCount).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to compute statistics: "+err.Error())
		return
	}

	err = h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ?", doctorID).
		Count(&stats.AppointmentCount).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to compute statistics: "+err.Error())
		return
	}

	utils.Success(c, "Statistics fetched successfully", stats)
}

// GetPatients handles fetching the distinct patients who have appointments
// with this doctor. Restricted to the doctor themselves or an admin.
func (h *DoctorHandler) GetPatients(c *gin.Context) {
	doctorID := c.Param("id")

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil || (caller.Role != models.RoleAdmin && caller.ID != doctorID) {
		utils.Forbidden(c, "You are not authorized to view this doctor's patients.")
		return
	}

	var patients []models.User
	err := h.DB.Where("role = ? AND id IN (?)", models.RolePatient,
		h.DB.Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", doctorID),
	).Find(&patients).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(patients))
	for i, p := range patients {
		sanitized[i] = p.Sanitize()
	}
	utils.Success(c, "Patients fetched successfully", sanitized)
}

// GetAppointments handles fetching a doctor's appointments, date ascending.
// Restricted to the doctor themselves or an admin.
func (h *DoctorHandler) GetAppointments(c *gin.Context) {
	doctorID := c.Param("id")

	caller, _ := middleware.GetUserFromContext(c)
	if caller == nil || (caller.Role != models.RoleAdmin && caller.ID != doctorID) {
		utils.Forbidden(c, "You are not authorized to view this doctor's appointments.")
		return
	}

	appointments, err := h.Lifecycle.ListByDoctor(doctorID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}
