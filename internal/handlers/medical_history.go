package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/middleware"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/utils"
)

// MedicalHistoryHandler handles medical record related requests.
type MedicalHistoryHandler struct {
	DB *gorm.DB
}

// NewMedicalHistoryHandler creates a new MedicalHistoryHandler.
func NewMedicalHistoryHandler(db *gorm.DB) *MedicalHistoryHandler {
	return &MedicalHistoryHandler{DB: db}
}

// CreateMedicalRecordRequest represents the request body for creating a
// medical record outside of the appointment-completion flow.
type CreateMedicalRecordRequest struct {
	PatientID     string              `json:"patientId" binding:"required,uuid"`
	AppointmentID string              `json:"appointmentId" binding:"required,uuid"`
	Diagnosis     string              `json:"diagnosis" binding:"required"`
	Notes         string              `json:"notes"`
	Medications   []MedicationRequest `json:"medications"`
	VitalSigns    models.VitalSigns   `json:"vitalSigns"`
	FollowUpDate  *time.Time          `json:"followUpDate"`
}

// CreateMedicalRecord handles creating a medical record for a completed
// appointment. The authoring doctor must be the appointment's doctor.
func (h *MedicalHistoryHandler) CreateMedicalRecord(c *gin.Context) {
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctor, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", req.AppointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if doctor.Role != models.RoleAdmin && appointment.DoctorID != doctor.ID {
		utils.Forbidden(c, "You can only write records for your own appointments.")
		return
	}
	if appointment.PatientID != req.PatientID {
		utils.BadRequest(c, "Patient does not match the appointment.")
		return
	}

	var existing int64
	if err := h.DB.Model(&models.MedicalRecord{}).Where("appointment_id = ?", req.AppointmentID).Count(&existing).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if existing > 0 {
		utils.Conflict(c, "A medical record already exists for this appointment")
		return
	}

	record := models.MedicalRecord{
		PatientID:     req.PatientID,
		DoctorID:      appointment.DoctorID,
		AppointmentID: req.AppointmentID,
		Diagnosis:     req.Diagnosis,
		Notes:         req.Notes,
		VitalSigns:    req.VitalSigns,
		FollowUpDate:  req.FollowUpDate,
	}
	for _, m := range req.Medications {
		record.Medications = append(record.Medications, models.Medication{
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
			Duration:  m.Duration,
		})
	}

	if err := h.DB.Create(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to create medical record: "+err.Error())
		return
	}

	utils.Created(c, "Medical record created successfully", record)
}

// GetRecordsByPatient handles listing a patient's medical records, newest
// first. Patients can only read their own history; doctors and admins any.
func (h *MedicalHistoryHandler) GetRecordsByPatient(c *gin.Context) {
	patientID := c.Param("patientId")

	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if caller.Role == models.RolePatient && caller.ID != patientID {
		utils.Forbidden(c, "You can only view your own medical history.")
		return
	}

	var records []models.MedicalRecord
	err := h.DB.Preload("Doctor").Preload("Appointment").
		Preload("Medications").Preload("Attachments").
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch medical records: "+err.Error())
		return
	}

	utils.Success(c, "Medical records fetched successfully", records)
}

// PatientHistorySummary aggregates a patient's visit history with a doctor.
type PatientHistorySummary struct {
	Patient       models.UserSanitized   `json:"patient"`
	TotalVisits   int                    `json:"totalVisits"`
	LastVisitDate *time.Time             `json:"lastVisitDate"`
	Diagnoses     []string               `json:"diagnoses"`
	Records       []models.MedicalRecord `json:"records"`
}

// GetDoctorPatients handles listing the calling doctor's patients grouped
// with their aggregated record history.
func (h *MedicalHistoryHandler) GetDoctorPatients(c *gin.Context) {
	doctor, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var records []models.MedicalRecord
	err := h.DB.Preload("Patient").Preload("Medications").Preload("Attachments").
		Where("doctor_id = ?", doctor.ID).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch medical records: "+err.Error())
		return
	}

	grouped := make(map[string]*PatientHistorySummary)
	order := []string{}
	for _, record := range records {
		summary, seen := grouped[record.PatientID]
		if !seen {
			summary = &PatientHistorySummary{}
			if record.Patient != nil {
				summary.Patient = record.Patient.Sanitize()
			}
			grouped[record.PatientID] = summary
			order = append(order, record.PatientID)
		}
		summary.TotalVisits++
		visited := record.CreatedAt
		if summary.LastVisitDate == nil || visited.After(*summary.LastVisitDate) {
			summary.LastVisitDate = &visited
		}
		if record.Diagnosis != "" && !containsString(summary.Diagnoses, record.Diagnosis) {
			summary.Diagnoses = append(summary.Diagnoses, record.Diagnosis)
		}
		summary.Records = append(summary.Records, record)
	}

	summaries := make([]PatientHistorySummary, 0, len(order))
	for _, patientID := range order {
		summaries = append(summaries, *grouped[patientID])
	}

	utils.Success(c, "Patient histories fetched successfully", summaries)
}

// GetRecordByID handles fetching a single medical record. Accessible by the
// record's patient, its authoring doctor, or an admin.
func (h *MedicalHistoryHandler) GetRecordByID(c *gin.Context) {
	var record models.MedicalRecord
	err := h.DB.Preload("Doctor").Preload("Appointment").
		Preload("Medications").Preload("Attachments").
		First(&record, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if caller.Role != models.RoleAdmin && caller.ID != record.PatientID && caller.ID != record.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return
	}

	utils.Success(c, "Medical record fetched successfully", record)
}

// UpdateMedicalRecordRequest represents the request body for updating a
// medical record. Attachments are append only.
type UpdateMedicalRecordRequest struct {
	Diagnosis      string              `json:"diagnosis"`
	Notes          string              `json:"notes"`
	Medications    []MedicationRequest `json:"medications"`
	VitalSigns     *models.VitalSigns  `json:"vitalSigns"`
	FollowUpDate   *time.Time          `json:"followUpDate"`
	NewAttachments []AttachmentRequest `json:"newAttachments"`
}

// AttachmentRequest is a document reference added to a medical record.
type AttachmentRequest struct {
	URL         string `json:"url" binding:"required"`
	Description string `json:"description"`
}

// UpdateMedicalRecord handles merging updates into a medical record. Only
// the authoring doctor or an admin may edit; existing attachments are never
// removed.
func (h *MedicalHistoryHandler) UpdateMedicalRecord(c *gin.Context) {
	recordID := c.Param("id")

	var req UpdateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	caller, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	if caller.Role != models.RoleAdmin && caller.ID != record.DoctorID {
		utils.Forbidden(c, "You can only edit your own medical records.")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if req.Diagnosis != "" {
			updates["diagnosis"] = req.Diagnosis
		}
		if req.Notes != "" {
			updates["notes"] = req.Notes
		}
		if req.FollowUpDate != nil {
			updates["follow_up_date"] = req.FollowUpDate
		}
		if req.VitalSigns != nil {
			updates["vital_blood_pressure"] = req.VitalSigns.BloodPressure
			updates["vital_heart_rate"] = req.VitalSigns.HeartRate
			updates["vital_temperature"] = req.VitalSigns.Temperature
			updates["vital_respiratory_rate"] = req.VitalSigns.RespiratoryRate
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.MedicalRecord{}).Where("id = ?", recordID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if req.Medications != nil {
			if err := tx.Where("medical_record_id = ?", recordID).Delete(&models.Medication{}).Error; err != nil {
				return err
			}
			for _, m := range req.Medications {
				medication := models.Medication{
					MedicalRecordID: recordID,
					Name:            m.Name,
					Dosage:          m.Dosage,
					Frequency:       m.Frequency,
					Duration:        m.Duration,
				}
				if err := tx.Create(&medication).Error; err != nil {
					return err
				}
			}
		}

		for _, a := range req.NewAttachments {
			attachment := models.MedicalRecordAttachment{
				MedicalRecordID: recordID,
				URL:             a.URL,
				Description:     a.Description,
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update medical record: "+err.Error())
		return
	}

	var updated models.MedicalRecord
	err = h.DB.Preload("Doctor").Preload("Appointment").
		Preload("Medications").Preload("Attachments").
		First(&updated, "id = ?", recordID).Error
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	utils.Success(c, "Medical record updated successfully", updated)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
