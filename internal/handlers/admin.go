package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/notify"
	"hospital-booking-server/internal/utils"
)

// AdminHandler handles administrative requests.
type AdminHandler struct {
	DB       *gorm.DB
	Notifier *notify.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB, notifier *notify.Service) *AdminHandler {
	return &AdminHandler{DB: db, Notifier: notifier}
}

// VerifyDoctorRequest represents the request body for approving or rejecting
// a doctor's registration.
type VerifyDoctorRequest struct {
	IsValidated bool   `json:"isValidated"`
	Reason      string `json:"reason"`
}

// VerifyDoctor handles approving or rejecting a pending doctor account.
// Approval generates login credentials and delivers them by email and SMS on
// a best effort basis; the validation flag is never reverted when delivery
// fails.
func (h *AdminHandler) VerifyDoctor(c *gin.Context) {
	doctorID := c.Param("id")

	var req VerifyDoctorRequest
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

	if !req.IsValidated {
		if err := h.DB.Model(&doctor).Update("is_validated", false).Error; err != nil {
			utils.InternalServerError(c, "Failed to update doctor: "+err.Error())
			return
		}
		if h.Notifier != nil {
			body := "Your registration could not be approved."
			if req.Reason != "" {
				body = fmt.Sprintf("Your registration could not be approved. Reason: %s", req.Reason)
			}
			h.Notifier.SendEmail(doctor.Email, "Registration update", body)
			if doctor.PhoneNumber != "" {
				h.Notifier.SendSMS(doctor.PhoneNumber, body)
			}
		}
		utils.Success(c, "Doctor registration rejected", doctor.Sanitize())
		return
	}

	username, password, err := utils.GenerateCredentials()
	if err != nil {
		utils.InternalServerError(c, "Failed to generate credentials: "+err.Error())
		return
	}

	doctor.Username = username
	doctor.IsValidated = true
	if err := doctor.SetPassword(password); err != nil {
		utils.InternalServerError(c, "Failed to set password: "+err.Error())
		return
	}
	if err := h.DB.Model(&doctor).Updates(map[string]interface{}{
		"username":     doctor.Username,
		"password":     doctor.Password,
		"is_validated": true,
	}).Error; err != nil {
		utils.InternalServerError(c, "Failed to update doctor: "+err.Error())
		return
	}

	// Credential delivery is best effort. The account stays validated even
	// when every channel fails; the admin can resend manually.
	emailSent, smsSent := false, false
	if h.Notifier != nil {
		body := fmt.Sprintf(
			"Your account has been approved.\nUsername: %s\nPassword: %s\nPlease change your password after your first login.",
			username, password,
		)
		emailSent = h.Notifier.SendEmail(doctor.Email, "Your account has been approved", body)
		if doctor.PhoneNumber != "" {
			smsSent = h.Notifier.SendSMS(doctor.PhoneNumber,
				fmt.Sprintf("Account approved. Username: %s Password: %s", username, password))
		}
	}

	utils.Success(c, "Doctor approved successfully", gin.H{
		"doctor":    doctor.Sanitize(),
		"emailSent": emailSent,
		"smsSent":   smsSent,
	})
}

// ValidateUserRequest represents the request body for toggling a user's
// validation flag.
type ValidateUserRequest struct {
	IsValidated bool `json:"isValidated"`
}

// ValidateUser handles toggling any user's validation flag.
func (h *AdminHandler) ValidateUser(c *gin.Context) {
	userID := c.Param("id")

	var req ValidateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Model(&user).Update("is_validated", req.IsValidated).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	utils.Success(c, "User validation updated", user.Sanitize())
}

// GetPendingDoctors handles listing doctors awaiting validation.
func (h *AdminHandler) GetPendingDoctors(c *gin.Context) {
	var doctors []models.User
	err := h.DB.Preload("Department").
		Where("role = ? AND is_validated = ?", models.RoleDoctor, false).
		Order("created_at asc").
		Find(&doctors).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(doctors))
	for i, d := range doctors {
		sanitized[i] = d.Sanitize()
	}
	utils.Success(c, "Pending doctors fetched successfully", sanitized)
}

// statusCount is one row of the appointments-by-status aggregate.
type statusCount struct {
	Status models.AppointmentStatus `json:"status"`
	Count  int64                    `json:"count"`
}

// SystemStats is the admin dashboard aggregate.
type SystemStats struct {
	TotalPatients        int64         `json:"totalPatients"`
	TotalDoctors         int64         `json:"totalDoctors"`
	ValidatedDoctors     int64         `json:"validatedDoctors"`
	TotalDepartments     int64         `json:"totalDepartments"`
	TotalAppointments    int64         `json:"totalAppointments"`
	TotalMedicalRecords  int64         `json:"totalMedicalRecords"`
	AppointmentsByStatus []statusCount `json:"appointmentsByStatus"`
}

// GetStats handles the admin dashboard counters.
func (h *AdminHandler) GetStats(c *gin.Context) {
	var stats SystemStats

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalPatients, h.DB.Model(&models.User{}).Where("role = ?", models.RolePatient)},
		{&stats.TotalDoctors, h.DB.Model(&models.User{}).Where("role = ?", models.RoleDoctor)},
		{&stats.ValidatedDoctors, h.DB.Model(&models.User{}).Where("role = ? AND is_validated = ?", models.RoleDoctor, true)},
		{&stats.TotalDepartments, h.DB.Model(&models.Department{})},
		{&stats.TotalAppointments, h.DB.Model(&models.Appointment{})},
		{&stats.TotalMedicalRecords, h.DB.Model(&models.MedicalRecord{})},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			utils.InternalServerError(c, "Failed to compute stats: "+err.Error())
			return
		}
	}

	err := h.DB.Model(&models.Appointment{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&stats.AppointmentsByStatus).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to compute stats: "+err.Error())
		return
	}

	utils.Success(c, "System stats fetched successfully", stats)
}

// GetUsers handles listing all users, optionally filtered by ?role=.
func (h *AdminHandler) GetUsers(c *gin.Context) {
	query := h.DB.Preload("Department").Order("created_at desc")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}
	utils.Success(c, "Users fetched successfully", sanitized)
}
