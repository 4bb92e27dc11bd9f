package scheduling

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/testutil"
)

func TestSetAndGetAvailability(t *testing.T) {
	db := testutil.NewTestDB(t)
	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	ledger := NewLedger(db)

	schedule := []models.DaySchedule{
		{Day: "Wednesday", Slots: []models.SlotEntry{{Time: "10:00"}, {Time: "09:00"}}},
		{Day: "Monday", Slots: []models.SlotEntry{{Time: "14:00"}}},
	}
	require.NoError(t, ledger.SetAvailability(doctor.ID, schedule))

	got, err := ledger.GetAvailability(doctor.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Days come back in weekday order, slots sorted by time label.
	assert.Equal(t, "Monday", got[0].Day)
	assert.Equal(t, "Wednesday", got[1].Day)
	require.Len(t, got[1].Slots, 2)
	assert.Equal(t, "09:00", got[1].Slots[0].Time)
	assert.Equal(t, "10:00", got[1].Slots[1].Time)
	assert.False(t, got[1].Slots[0].IsBooked)
}

func TestSetAvailabilityReplacesSchedule(t *testing.T) {
	db := testutil.NewTestDB(t)
	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	ledger := NewLedger(db)

	require.NoError(t, ledger.SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Monday", Slots: []models.SlotEntry{{Time: "09:00"}}},
	}))
	require.NoError(t, ledger.SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Friday", Slots: []models.SlotEntry{{Time: "11:00"}}},
	}))

	got, err := ledger.GetAvailability(doctor.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Friday", got[0].Day)
}

func TestSetAvailabilityRejectsInvalidFormat(t *testing.T) {
	db := testutil.NewTestDB(t)
	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	ledger := NewLedger(db)

	err := ledger.SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Funday", Slots: []models.SlotEntry{{Time: "09:00"}}},
	})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	err = ledger.SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Monday", Slots: []models.SlotEntry{{Time: ""}}},
	})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestReserveSlot(t *testing.T) {
	db := testutil.NewTestDB(t)
	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	ledger := NewLedger(db)

	require.NoError(t, ledger.SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Monday", Slots: []models.SlotEntry{{Time: "09:00"}}},
	}))

	require.NoError(t, ledger.ReserveSlot(doctor.ID, "Monday", "09:00"))

	// Second reservation of the same slot loses.
	assert.ErrorIs(t, ledger.ReserveSlot(doctor.ID, "Monday", "09:00"), ErrSlotAlreadyBooked)

	// A slot outside the schedule is not found.
	assert.ErrorIs(t, ledger.ReserveSlot(doctor.ID, "Monday", "23:00"), ErrSlotNotFound)
}

func TestReserveSlotSingleWinner(t *testing.T) {
	db := testutil.NewTestDB(t)
	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	ledger := NewLedger(db)

	require.NoError(t, ledger.SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Tuesday", Slots: []models.SlotEntry{{Time: "10:00"}}},
	}))

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.ReserveSlot(doctor.ID, "Tuesday", "10:00")
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestReleaseSlot(t *testing.T) {
	db := testutil.NewTestDB(t)
	dept := testutil.CreateDepartment(t, db, "Cardiology")
	doctor := testutil.CreateDoctor(t, db, "doc@example.com", dept)
	ledger := NewLedger(db)

	require.NoError(t, ledger.SetAvailability(doctor.ID, []models.DaySchedule{
		{Day: "Monday", Slots: []models.SlotEntry{{Time: "09:00"}}},
	}))
	require.NoError(t, ledger.ReserveSlot(doctor.ID, "Monday", "09:00"))
	require.NoError(t, ledger.ReleaseSlot(doctor.ID, "Monday", "09:00"))

	// Released slots can be reserved again.
	assert.NoError(t, ledger.ReserveSlot(doctor.ID, "Monday", "09:00"))

	assert.ErrorIs(t, ledger.ReleaseSlot(doctor.ID, "Monday", "23:00"), ErrSlotNotFound)
}
