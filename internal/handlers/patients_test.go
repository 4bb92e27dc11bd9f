package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hospital-booking-server/internal/middleware"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/scheduling"
	"hospital-booking-server/internal/testutil"
)

type patientFixture struct {
	router  *gin.Engine
	db      *gorm.DB
	dept    *models.Department
	doctor  *models.User
	patient *models.User
	admin   *models.User
}

func (f *patientFixture) token(t *testing.T, user *models.User) string {
	return tokenFor(t, user, newTestConfig())
}

func setupPatientFixture(t *testing.T) *patientFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	cfg := newTestConfig()
	lifecycle := scheduling.NewLifecycle(db, nil)
	h := NewPatientHandler(db, lifecycle)

	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	patient := testutil.CreateUser(t, db, models.RolePatient, "pat@example.com")
	admin := testutil.CreateUser(t, db, models.RoleAdmin, "admin@example.com")

	require.NoError(t, scheduling.NewLedger(db).SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Monday", Slots: []models.SlotEntry{{Time: "09:00"}, {Time: "10:00"}}},
	}))

	router, private := newTestRouter(db, cfg)
	patients := private.Group("/patients")
	patients.POST("/register", middleware.RoleAuthMiddleware(models.RoleAdmin), h.RegisterPatient)
	patients.GET("", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.GetPatients)
	patients.GET("/:id", h.GetPatientByID)
	patients.PUT("/:id", h.UpdatePatient)
	patients.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), h.DeletePatient)
	patients.POST("/book-appointment", middleware.RoleAuthMiddleware(models.RolePatient), h.BookAppointment)
	patients.GET("/my-appointments", middleware.RoleAuthMiddleware(models.RolePatient), h.MyAppointments)
	patients.GET("/my-medical-history", middleware.RoleAuthMiddleware(models.RolePatient), h.MyMedicalHistory)

	return &patientFixture{
		router:  router,
		db:      db,
		dept:    dept,
		doctor:  doctor,
		patient: patient,
		admin:   admin,
	}
}

func TestRegisterPatientByAdmin(t *testing.T) {
	f := setupPatientFixture(t)

	w := performRequest(f.router, http.MethodPost, "/api/patients/register", gin.H{
		"name":     "John Doe",
		"email":    "john@example.com",
		"password": "password123",
	}, f.token(t, f.admin))
	require.Equal(t, http.StatusCreated, w.Code)

	var got models.UserSanitized
	decodeData(t, w, &got)
	assert.Equal(t, models.RolePatient, got.Role)
	assert.True(t, got.IsValidated)
}

func TestRegisterPatientDuplicateEmail(t *testing.T) {
	f := setupPatientFixture(t)

	w := performRequest(f.router, http.MethodPost, "/api/patients/register", gin.H{
		"name":     "John Doe",
		"email":    f.patient.Email,
		"password": "password123",
	}, f.token(t, f.admin))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterPatientForbiddenForPatients(t *testing.T) {
	f := setupPatientFixture(t)

	w := performRequest(f.router, http.MethodPost, "/api/patients/register", gin.H{
		"name":     "John Doe",
		"email":    "john@example.com",
		"password": "password123",
	}, f.token(t, f.patient))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetPatientsListing(t *testing.T) {
	f := setupPatientFixture(t)

	w := performRequest(f.router, http.MethodGet, "/api/patients", nil, f.token(t, f.doctor))
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.UserSanitized
	decodeData(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, f.patient.ID, got[0].ID)

	w = performRequest(f.router, http.MethodGet, "/api/patients", nil, f.token(t, f.patient))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetPatientByIDAccessControl(t *testing.T) {
	f := setupPatientFixture(t)
	other := testutil.CreateUser(t, f.db, models.RolePatient, "other@example.com")

	w := performRequest(f.router, http.MethodGet, "/api/patients/"+f.patient.ID, nil, f.token(t, f.patient))
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(f.router, http.MethodGet, "/api/patients/"+f.patient.ID, nil, f.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(f.router, http.MethodGet, "/api/patients/"+f.patient.ID, nil, f.token(t, f.doctor))
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(f.router, http.MethodGet, "/api/patients/missing", nil, f.token(t, f.admin))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePatientMergesFields(t *testing.T) {
	f := setupPatientFixture(t)

	w := performRequest(f.router, http.MethodPut, "/api/patients/"+f.patient.ID, gin.H{
		"phoneNumber": "555-0100",
	}, f.token(t, f.patient))
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", f.patient.ID).Error)
	assert.Equal(t, "555-0100", stored.PhoneNumber)
	assert.Equal(t, f.patient.Name, stored.Name)
}

func TestUpdatePatientForeignForbidden(t *testing.T) {
	f := setupPatientFixture(t)
	other := testutil.CreateUser(t, f.db, models.RolePatient, "other@example.com")

	w := performRequest(f.router, http.MethodPut, "/api/patients/"+f.patient.ID, gin.H{
		"name": "Hijacked",
	}, f.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookAppointmentViaPatientRoute(t *testing.T) {
	f := setupPatientFixture(t)

	payload := gin.H{
		"doctorId":        f.doctor.ID,
		"departmentId":    f.dept.ID,
		"appointmentDate": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"slotDay":         "Monday",
		"slotTime":        "09:00",
		"reason":          "chest pain",
	}
	w := performRequest(f.router, http.MethodPost, "/api/patients/book-appointment", payload, f.token(t, f.patient))
	require.Equal(t, http.StatusCreated, w.Code)

	var got models.Appointment
	decodeData(t, w, &got)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, f.patient.ID, got.PatientID)

	// Second booking of the same slot is refused.
	w = performRequest(f.router, http.MethodPost, "/api/patients/book-appointment", payload, f.token(t, f.patient))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookAppointmentPastDateRejected(t *testing.T) {
	f := setupPatientFixture(t)

	w := performRequest(f.router, http.MethodPost, "/api/patients/book-appointment", gin.H{
		"doctorId":        f.doctor.ID,
		"departmentId":    f.dept.ID,
		"appointmentDate": time.Now().Add(-24 * time.Hour).Format(time.RFC3339),
		"slotDay":         "Monday",
		"slotTime":        "09:00",
		"reason":          "chest pain",
	}, f.token(t, f.patient))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMyAppointmentsScopedToCaller(t *testing.T) {
	f := setupPatientFixture(t)
	other := testutil.CreateUser(t, f.db, models.RolePatient, "other@example.com")

	w := performRequest(f.router, http.MethodPost, "/api/patients/book-appointment", gin.H{
		"doctorId":        f.doctor.ID,
		"departmentId":    f.dept.ID,
		"appointmentDate": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"slotDay":         "Monday",
		"slotTime":        "10:00",
		"reason":          "follow up",
	}, f.token(t, f.patient))
	require.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(f.router, http.MethodGet, "/api/patients/my-appointments", nil, f.token(t, f.patient))
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Appointment
	decodeData(t, w, &mine)
	assert.Len(t, mine, 1)

	w = performRequest(f.router, http.MethodGet, "/api/patients/my-appointments", nil, f.token(t, other))
	require.Equal(t, http.StatusOK, w.Code)
	var theirs []models.Appointment
	decodeData(t, w, &theirs)
	assert.Empty(t, theirs)
}

func TestMyMedicalHistory(t *testing.T) {
	f := setupPatientFixture(t)

	appt := models.Appointment{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		DepartmentID:    f.dept.ID,
		AppointmentDate: time.Now().Add(-24 * time.Hour),
		SlotDay:         "Monday",
		SlotTime:        "09:00",
		Reason:          "checkup",
		Status:          models.StatusCompleted,
	}
	require.NoError(t, f.db.Create(&appt).Error)
	record := models.MedicalRecord{
		PatientID:     f.patient.ID,
		DoctorID:      f.doctor.ID,
		AppointmentID: appt.ID,
		Diagnosis:     "hypertension",
		Medications:   []models.Medication{{Name: "Lisinopril", Dosage: "10mg"}},
	}
	require.NoError(t, f.db.Create(&record).Error)

	w := performRequest(f.router, http.MethodGet, "/api/patients/my-medical-history", nil, f.token(t, f.patient))
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.MedicalRecord
	decodeData(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "hypertension", got[0].Diagnosis)
	require.Len(t, got[0].Medications, 1)
	assert.Equal(t, "Lisinopril", got[0].Medications[0].Name)
}

func TestDeletePatientWithOpenAppointmentsConflict(t *testing.T) {
	f := setupPatientFixture(t)

	appt := models.Appointment{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		DepartmentID:    f.dept.ID,
		AppointmentDate: time.Now().Add(72 * time.Hour),
		SlotDay:         "Monday",
		SlotTime:        "09:00",
		Reason:          "checkup",
		Status:          models.StatusPending,
	}
	require.NoError(t, f.db.Create(&appt).Error)

	w := performRequest(f.router, http.MethodDelete, "/api/patients/"+f.patient.ID, nil, f.token(t, f.admin))
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, f.db.Model(&appt).Update("status", models.StatusCancelled).Error)

	w = performRequest(f.router, http.MethodDelete, "/api/patients/"+f.patient.ID, nil, f.token(t, f.admin))
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.patient.ID).Count(&count).Error)
	assert.Zero(t, count)
}
