package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/scheduling"
	"hospital-booking-server/internal/utils"
)

// PublicHandler serves the unauthenticated browse endpoints used by the
// booking front end before login.
type PublicHandler struct {
	DB     *gorm.DB
	Ledger *scheduling.Ledger
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(db *gorm.DB, ledger *scheduling.Ledger) *PublicHandler {
	return &PublicHandler{DB: db, Ledger: ledger}
}

// GetDepartments handles listing all departments with their validated
// doctors.
func (h *PublicHandler) GetDepartments(c *gin.Context) {
	var departments []models.Department
	err := h.DB.Preload("Doctors", "is_validated = ?", true).
		Order("name asc").
		Find(&departments).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch departments: "+err.Error())
		return
	}

	type departmentView struct {
		models.Department
		Doctors []models.UserSanitized `json:"doctors"`
	}
	views := make([]departmentView, len(departments))
	for i, dept := range departments {
		views[i].Department = dept
		views[i].Department.Doctors = nil
		views[i].Doctors = sanitizeUsers(dept.Doctors)
	}

	utils.Success(c, "Departments fetched successfully", views)
}

// GetDoctors handles listing validated doctors, optionally filtered by
// ?department=.
func (h *PublicHandler) GetDoctors(c *gin.Context) {
	query := h.DB.Preload("Department").
		Where("role = ? AND is_validated = ?", models.RoleDoctor, true).
		Order("name asc")
	if departmentID := c.Query("department"); departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}

	var doctors []models.User
	if err := query.Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	utils.Success(c, "Doctors fetched successfully", sanitizeUsers(doctors))
}

// GetDoctorByID handles fetching one validated doctor with the current
// availability schedule.
func (h *PublicHandler) GetDoctorByID(c *gin.Context) {
	var doctor models.User
	err := h.DB.Preload("Department").
		Where("id = ? AND role = ? AND is_validated = ?", c.Param("id"), models.RoleDoctor, true).
		First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	schedule, err := h.Ledger.GetAvailability(doctor.ID)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}

	utils.Success(c, "Doctor fetched successfully", gin.H{
		"doctor":       doctor.Sanitize(),
		"availability": schedule,
	})
}

func sanitizeUsers(users []models.User) []models.UserSanitized {
	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}
	return sanitized
}
