package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/config"
	"hospital-booking-server/internal/middleware"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/notify"
	"hospital-booking-server/internal/scheduling"
	"hospital-booking-server/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Notifier *notify.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, notifier *notify.Service) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Notifier: notifier}
}

// RegisterRequest represents the request body for user registration. The
// payload is role-shaped: patients carry a medical-history summary, doctors
// carry specialization, department, availability and image references.
type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required,oneof=patient doctor"`
	PhoneNumber string `json:"phoneNumber"`

	// Patient fields
	MedicalHistory string `json:"medicalHistory"`

	// Doctor fields
	Specialization string               `json:"specialization"`
	DepartmentID   string               `json:"departmentId"`
	Availability   []models.DaySchedule `json:"availability"`
	ProfileImage   string               `json:"profileImage"`
	DiplomaImage   string               `json:"diplomaImage"`
}

// validateDoctorFields checks the fields required only for doctor
// registrations. Returns a message naming the first missing field.
func (req *RegisterRequest) validateDoctorFields() string {
	switch {
	case req.Specialization == "":
		return "specialization is required for doctors"
	case req.DepartmentID == "":
		return "departmentId is required for doctors"
	case len(req.Availability) == 0:
		return "availability is required for doctors"
	case req.ProfileImage == "":
		return "profileImage is required for doctors"
	case req.DiplomaImage == "":
		return "diplomaImage is required for doctors"
	}
	return ""
}

// Register handles self-registration of patients and doctors. Doctors start
// unvalidated and cannot log in until an admin approves them.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role := models.Role(strings.ToLower(req.Role))

	if role == models.RoleDoctor {
		if msg := req.validateDoctorFields(); msg != "" {
			utils.BadRequest(c, msg)
			return
		}
	}

	// Check if user already exists
	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.Conflict(c, "User with this email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		Name:        req.Name,
		Email:       req.Email,
		Role:        role,
		PhoneNumber: req.PhoneNumber,
		IsValidated: role != models.RoleDoctor,
	}

	if role == models.RolePatient {
		user.MedicalHistory = req.MedicalHistory
	}
	if role == models.RoleDoctor {
		var department models.Department
		if err := h.DB.First(&department, "id = ?", req.DepartmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFound(c, "Department not found")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return
		}
		user.Specialization = req.Specialization
		user.DepartmentID = &req.DepartmentID
		user.ProfileImage = req.ProfileImage
		user.DiplomaImage = req.DiplomaImage
	}

	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	if role == models.RoleDoctor && len(req.Availability) > 0 {
		if err := scheduling.NewLedger(h.DB).SetAvailability(user.ID, req.Availability); err != nil {
			if errors.Is(err, scheduling.ErrInvalidFormat) {
				// Account exists but the schedule was rejected; surface the
				// format error so the doctor can resubmit availability.
				utils.BadRequest(c, err.Error())
				return
			}
			utils.InternalServerError(c, "Failed to store availability: "+err.Error())
			return
		}
	}

	// Registration confirmation is best-effort and never fails the request.
	if h.Notifier != nil {
		subject := "Registration Confirmation"
		body := "Dear " + user.Name + ",\n\nThank you for registering. Your account has been created successfully."
		if role == models.RoleDoctor {
			subject = "Registration Confirmation - Awaiting Validation"
			body = "Dear " + user.Name + ",\n\nThank you for registering as a doctor. Your account is awaiting validation by our admin team."
		}
		h.Notifier.SendEmail(user.Email, subject, body)
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	Token string               `json:"token"`
	User  models.UserSanitized `json:"user"`
}

// Login handles user login. Unvalidated doctors are rejected with 403 even
// when their credentials are correct.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	if user.Role == models.RoleDoctor && !user.IsValidated {
		utils.Forbidden(c, "Your account has not been validated yet. Please wait for admin approval.")
		return
	}

	token, err := utils.GenerateToken(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate token: "+err.Error())
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		Token: token,
		User:  user.Sanitize(),
	})
}

// Logout handles user logout. Tokens are short-lived and not stored server
// side; logout simply confirms the client should discard its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	utils.Success(c, "Logout successful.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	Name           string `json:"name"`
	PhoneNumber    string `json:"phoneNumber"`
	MedicalHistory string `json:"medicalHistory"`
	ProfileImage   string `json:"profileImage"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.MedicalHistory != "" && user.Role == models.RolePatient {
		user.MedicalHistory = req.MedicalHistory
	}
	if req.ProfileImage != "" {
		user.ProfileImage = req.ProfileImage
	}

	if err := h.DB.Save(user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
