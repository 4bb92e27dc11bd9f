package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/utils"
)

// DepartmentHandler handles department directory requests.
type DepartmentHandler struct {
	DB *gorm.DB
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(db *gorm.DB) *DepartmentHandler {
	return &DepartmentHandler{DB: db}
}

// CreateDepartmentRequest represents the request body for creating a department.
type CreateDepartmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CreateDepartment handles creating a new department (admin).
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req CreateDepartmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.Department
	if err := h.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		utils.Conflict(c, "Department with this name already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	department := models.Department{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.DB.Create(&department).Error; err != nil {
		utils.InternalServerError(c, "Failed to create department: "+err.Error())
		return
	}

	utils.Created(c, "Department created successfully", department)
}

// GetDepartments handles fetching all departments with their doctors.
func (h *DepartmentHandler) GetDepartments(c *gin.Context) {
	var departments []models.Department
	if err := h.DB.Preload("Doctors").Find(&departments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch departments: "+err.Error())
		return
	}
	utils.Success(c, "Departments fetched successfully", departments)
}

// GetDepartmentByID handles fetching a single department by ID.
func (h *DepartmentHandler) GetDepartmentByID(c *gin.Context) {
	departmentID := c.Param("id")

	var department models.Department
	if err := h.DB.Preload("Doctors").First(&department, "id = ?", departmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Department not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Department fetched successfully", department)
}

// UpdateDepartmentRequest represents the request body for updating a department.
type UpdateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateDepartment handles updating a department by ID (admin).
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	departmentID := c.Param("id")

	var req UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var department models.Department
	if err := h.DB.First(&department, "id = ?", departmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Department not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Name != "" && req.Name != department.Name {
		var existing models.Department
		if err := h.DB.Where("name = ? AND id != ?", req.Name, department.ID).First(&existing).Error; err == nil {
			utils.Conflict(c, "Department with this name already exists")
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
		department.Name = req.Name
	}
	if req.Description != "" {
		department.Description = req.Description
	}

	if err := h.DB.Save(&department).Error; err != nil {
		utils.InternalServerError(c, "Failed to update department: "+err.Error())
		return
	}

	utils.Success(c, "Department updated successfully", department)
}

// DeleteDepartment handles deleting a department by ID (admin). Doctors
// assigned to the department are detached rather than left pointing at a
// missing row.
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	departmentID := c.Param("id")

	var department models.Department
	if err := h.DB.First(&department, "id = ?", departmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Department not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("department_id = ?", departmentID).
			Update("department_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Department{}, "id = ?", departmentID).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete department: "+err.Error())
		return
	}

	utils.Success(c, "Department deleted successfully", nil)
}
