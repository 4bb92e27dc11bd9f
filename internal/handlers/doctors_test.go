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

type doctorFixture struct {
	router  *gin.Engine
	db      *gorm.DB
	ledger  *scheduling.Ledger
	dept    *models.Department
	doctor  *models.User
	patient *models.User
	admin   *models.User
}

func (f *doctorFixture) token(t *testing.T, user *models.User) string {
	return tokenFor(t, user, newTestConfig())
}

func setupDoctorFixture(t *testing.T) *doctorFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	cfg := newTestConfig()
	ledger := scheduling.NewLedger(db)
	lifecycle := scheduling.NewLifecycle(db, nil)
	h := NewDoctorHandler(db, ledger, lifecycle)

	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	patient := testutil.CreateUser(t, db, models.RolePatient, "pat@example.com")
	admin := testutil.CreateUser(t, db, models.RoleAdmin, "admin@example.com")

	router, private := newTestRouter(db, cfg)
	doctors := private.Group("/doctors")
	doctors.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin), h.CreateDoctor)
	doctors.GET("", h.GetDoctors)
	doctors.GET("/:id", h.GetDoctorByID)
	doctors.GET("/:id/availability", h.GetAvailability)
	doctors.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.UpdateDoctor)
	doctors.PUT("/:id/availability", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.SetAvailability)
	doctors.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), h.DeleteDoctor)
	doctors.GET("/:id/stats", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.GetStats)
	doctors.GET("/:id/patients", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.GetPatients)
	doctors.GET("/:id/appointments", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.GetAppointments)

	return &doctorFixture{
		router:  router,
		db:      db,
		ledger:  ledger,
		dept:    dept,
		doctor:  doctor,
		patient: patient,
		admin:   admin,
	}
}

func TestCreateDoctorByAdmin(t *testing.T) {
	f := setupDoctorFixture(t)

	w := performRequest(f.router, http.MethodPost, "/api/doctors", gin.H{
		"name":           "Dr. Grey",
		"email":          "grey@example.com",
		"password":       "password123",
		"specialization": "cardiology",
		"departmentId":   f.dept.ID,
		"availability": []gin.H{
			{"day": "Tuesday", "slots": []gin.H{{"time": "11:00"}}},
		},
	}, f.token(t, f.admin))
	require.Equal(t, http.StatusCreated, w.Code)

	var got models.UserSanitized
	decodeData(t, w, &got)
	assert.True(t, got.IsValidated)

	schedule, err := f.ledger.GetAvailability(got.ID)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.Equal(t, "Tuesday", schedule[0].Day)

	w = performRequest(f.router, http.MethodPost, "/api/doctors", gin.H{
		"name":           "Dr. Grey",
		"email":          "grey2@example.com",
		"password":       "password123",
		"specialization": "cardiology",
		"departmentId":   f.dept.ID,
	}, f.token(t, f.doctor))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetDoctorsHidesUnvalidated(t *testing.T) {
	f := setupDoctorFixture(t)
	pending := testutil.CreateDoctor(t, f.db, "pending@example.com", f.dept)
	require.NoError(t, f.db.Model(pending).Update("is_validated", false).Error)

	w := performRequest(f.router, http.MethodGet, "/api/doctors", nil, f.token(t, f.patient))
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.UserSanitized
	decodeData(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, f.doctor.ID, got[0].ID)

	// Admins see pending doctors too.
	w = performRequest(f.router, http.MethodGet, "/api/doctors", nil, f.token(t, f.admin))
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &got)
	assert.Len(t, got, 2)

	w = performRequest(f.router, http.MethodGet, "/api/doctors?validatedOnly=true", nil, f.token(t, f.admin))
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &got)
	assert.Len(t, got, 1)
}

func TestGetDoctorByIDNotFound(t *testing.T) {
	f := setupDoctorFixture(t)

	w := performRequest(f.router, http.MethodGet, "/api/doctors/"+f.doctor.ID, nil, f.token(t, f.patient))
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(f.router, http.MethodGet, "/api/doctors/missing", nil, f.token(t, f.patient))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Patients are not reachable through the doctor endpoint.
	w = performRequest(f.router, http.MethodGet, "/api/doctors/"+f.patient.ID, nil, f.token(t, f.admin))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateDoctorSelfOrAdmin(t *testing.T) {
	f := setupDoctorFixture(t)
	other := testutil.CreateDoctor(t, f.db, "other@example.com", f.dept)

	w := performRequest(f.router, http.MethodPut, "/api/doctors/"+f.doctor.ID, gin.H{
		"specialization": "interventional cardiology",
	}, f.token(t, f.doctor))
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", f.doctor.ID).Error)
	assert.Equal(t, "interventional cardiology", stored.Specialization)

	w = performRequest(f.router, http.MethodPut, "/api/doctors/"+f.doctor.ID, gin.H{
		"name": "Hijacked",
	}, f.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(f.router, http.MethodPut, "/api/doctors/"+f.doctor.ID, gin.H{
		"departmentId": "missing",
	}, f.token(t, f.admin))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetAvailabilityRoundTrip(t *testing.T) {
	f := setupDoctorFixture(t)

	w := performRequest(f.router, http.MethodPut, "/api/doctors/"+f.doctor.ID+"/availability", gin.H{
		"availability": []gin.H{
			{"day": "Monday", "slots": []gin.H{{"time": "09:00"}, {"time": "10:00"}}},
			{"day": "Friday", "slots": []gin.H{{"time": "14:00"}}},
		},
	}, f.token(t, f.doctor))
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(f.router, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/availability", nil, f.token(t, f.patient))
	require.Equal(t, http.StatusOK, w.Code)

	var schedule []models.DaySchedule
	decodeData(t, w, &schedule)
	require.Len(t, schedule, 2)
	assert.Equal(t, "Monday", schedule[0].Day)
	assert.Len(t, schedule[0].Slots, 2)
	assert.Equal(t, "Friday", schedule[1].Day)
}

func TestSetAvailabilityRejectsUnknownDay(t *testing.T) {
	f := setupDoctorFixture(t)

	w := performRequest(f.router, http.MethodPut, "/api/doctors/"+f.doctor.ID+"/availability", gin.H{
		"availability": []gin.H{
			{"day": "Funday", "slots": []gin.H{{"time": "09:00"}}},
		},
	}, f.token(t, f.doctor))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetAvailabilityForeignDoctorForbidden(t *testing.T) {
	f := setupDoctorFixture(t)
	other := testutil.CreateDoctor(t, f.db, "other@example.com", f.dept)

	w := performRequest(f.router, http.MethodPut, "/api/doctors/"+f.doctor.ID+"/availability", gin.H{
		"availability": []gin.H{
			{"day": "Monday", "slots": []gin.H{{"time": "09:00"}}},
		},
	}, f.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDoctorStats(t *testing.T) {
	f := setupDoctorFixture(t)
	second := testutil.CreateUser(t, f.db, models.RolePatient, "second@example.com")

	for i, pid := range []string{f.patient.ID, f.patient.ID, second.ID} {
		appt := models.Appointment{
			PatientID:       pid,
			DoctorID:        f.doctor.ID,
			DepartmentID:    f.dept.ID,
			AppointmentDate: time.Now().AddDate(0, 0, i+1),
			SlotDay:         "Monday",
			SlotTime:        "09:00",
			Reason:          "checkup",
			Status:          models.StatusCompleted,
		}
		require.NoError(t, f.db.Create(&appt).Error)
	}

	w := performRequest(f.router, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/stats", nil, f.token(t, f.doctor))
	require.Equal(t, http.StatusOK, w.Code)

	var got DoctorStats
	decodeData(t, w, &got)
	assert.Equal(t, int64(2), got.PatientCount)
	assert.Equal(t, int64(3), got.AppointmentCount)
}

func TestDoctorPatientsSelfOnly(t *testing.T) {
	f := setupDoctorFixture(t)
	other := testutil.CreateDoctor(t, f.db, "other@example.com", f.dept)

	appt := models.Appointment{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		DepartmentID:    f.dept.ID,
		AppointmentDate: time.Now().AddDate(0, 0, 1),
		SlotDay:         "Monday",
		SlotTime:        "09:00",
		Reason:          "checkup",
		Status:          models.StatusConfirmed,
	}
	require.NoError(t, f.db.Create(&appt).Error)

	w := performRequest(f.router, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/patients", nil, f.token(t, f.doctor))
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.UserSanitized
	decodeData(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, f.patient.ID, got[0].ID)

	w = performRequest(f.router, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/patients", nil, f.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(f.router, http.MethodGet, "/api/doctors/"+f.doctor.ID+"/appointments", nil, f.token(t, f.admin))
	require.Equal(t, http.StatusOK, w.Code)
	var appts []models.Appointment
	decodeData(t, w, &appts)
	assert.Len(t, appts, 1)
}

func TestDeleteDoctorRemovesSchedule(t *testing.T) {
	f := setupDoctorFixture(t)
	require.NoError(t, f.ledger.SetAvailability(f.doctor.ID, []models.DaySchedule{
		{Day: "Monday", Slots: []models.SlotEntry{{Time: "09:00"}}},
	}))

	w := performRequest(f.router, http.MethodDelete, "/api/doctors/"+f.doctor.ID, nil, f.token(t, f.admin))
	require.Equal(t, http.StatusOK, w.Code)

	var users, slots int64
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.doctor.ID).Count(&users).Error)
	require.NoError(t, f.db.Model(&models.AvailabilitySlot{}).Where("doctor_id = ?", f.doctor.ID).Count(&slots).Error)
	assert.Zero(t, users)
	assert.Zero(t, slots)
}

func TestDeleteDoctorWithOpenAppointmentsConflict(t *testing.T) {
	f := setupDoctorFixture(t)

	appt := models.Appointment{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		DepartmentID:    f.dept.ID,
		AppointmentDate: time.Now().AddDate(0, 0, 1),
		SlotDay:         "Monday",
		SlotTime:        "09:00",
		Reason:          "checkup",
		Status:          models.StatusPending,
	}
	require.NoError(t, f.db.Create(&appt).Error)

	w := performRequest(f.router, http.MethodDelete, "/api/doctors/"+f.doctor.ID, nil, f.token(t, f.admin))
	assert.Equal(t, http.StatusConflict, w.Code)
}
