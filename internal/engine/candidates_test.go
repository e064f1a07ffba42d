package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muelab/lessonbook/internal/model"
)

func candidateAt(t *testing.T, candidates []Candidate, at time.Time) Candidate {
	t.Helper()
	for _, c := range candidates {
		if c.Time.Equal(at) {
			return c
		}
	}
	t.Fatalf("no candidate at %s", at)
	return Candidate{}
}

func TestGenerateCandidatesInvalidDuration(t *testing.T) {
	slot := testSlot()

	_, err := GenerateCandidates(slot, 10, nil, nil, 15)
	var durErr *InvalidDurationError
	require.ErrorAs(t, err, &durErr)
	assert.Equal(t, 10, durErr.RequestedMinutes)

	_, err = GenerateCandidates(slot, 90, nil, nil, 15)
	require.ErrorAs(t, err, &durErr)
}

func TestGenerateCandidatesEmptySlot(t *testing.T) {
	slot := testSlot()

	candidates, err := GenerateCandidates(slot, 30, nil, nil, 15)
	require.NoError(t, err)

	// 09:00..09:30 включительно с шагом 15
	require.Len(t, candidates, 3)
	for _, c := range candidates {
		assert.True(t, c.Available)
		assert.Empty(t, c.Reason)
	}
	assert.Equal(t, base, candidates[0].Time)
	assert.Equal(t, base.Add(30*time.Minute), candidates[2].Time)
}

func TestGenerateCandidatesNoRoomForDuration(t *testing.T) {
	// Слот 09:00-10:00 с бронью 09:00-09:40: для часа места нет вообще
	slot := testSlot()
	slotRes := []*model.Reservation{
		reservation(slot, model.ReservationStatusConfirmed, 0, 40),
	}

	candidates, err := GenerateCandidates(slot, 60, slotRes, nil, 15)
	require.NoError(t, err)

	require.Len(t, candidates, 1) // единственный старт 09:00
	assert.False(t, candidates[0].Available)
	assert.Equal(t, BlockReasonMentorBooked, candidates[0].Reason)
}

func TestGenerateCandidatesMentorBooked(t *testing.T) {
	slot := testSlot()
	slotRes := []*model.Reservation{
		reservation(slot, model.ReservationStatusConfirmed, 0, 40),
	}

	candidates, err := GenerateCandidates(slot, 15, slotRes, nil, 15)
	require.NoError(t, err)
	require.Len(t, candidates, 4) // 09:00, 09:15, 09:30, 09:45

	for _, c := range candidates[:3] {
		assert.False(t, c.Available, "candidate %s overlaps the booked range", c.Time)
		assert.Equal(t, BlockReasonMentorBooked, c.Reason)
	}

	last := candidateAt(t, candidates, base.Add(45*time.Minute))
	assert.True(t, last.Available)
}

func TestGenerateCandidatesStudentConflictAcrossMentors(t *testing.T) {
	// Слот ментора B 13:30-16:00; у студента CONFIRMED 14:00-15:00 у ментора A
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	slot := &model.LessonSlot{
		ID:              uuid.New(),
		MentorID:        uuid.New(),
		StartTime:       day.Add(13*time.Hour + 30*time.Minute),
		EndTime:         day.Add(16 * time.Hour),
		MinDurationMins: 30,
		MaxDurationMins: 150,
		IsAvailable:     true,
	}
	otherSlotID := uuid.New()
	studentRes := []*model.Reservation{
		{
			ID:              uuid.New(),
			SlotID:          otherSlotID,
			Status:          model.ReservationStatusConfirmed,
			BookedStartTime: day.Add(14 * time.Hour),
			BookedEndTime:   day.Add(15 * time.Hour),
		},
	}

	candidates, err := GenerateCandidates(slot, 30, nil, studentRes, 15)
	require.NoError(t, err)

	// 13:30 заканчивается ровно в 14:00 — полуоткрытые интервалы не пересекаются
	assert.True(t, candidateAt(t, candidates, day.Add(13*time.Hour+30*time.Minute)).Available)

	// 13:45..14:45 пересекают чужую бронь
	for min := 13*60 + 45; min <= 14*60+45; min += 15 {
		c := candidateAt(t, candidates, day.Add(time.Duration(min)*time.Minute))
		assert.False(t, c.Available, "candidate %s must be blocked", c.Time)
		assert.Equal(t, BlockReasonStudentConflict, c.Reason)
	}

	// С 15:00 снова свободно
	assert.True(t, candidateAt(t, candidates, day.Add(15*time.Hour)).Available)
}

func TestGenerateCandidatesMentorReasonTakesPrecedence(t *testing.T) {
	// Оба источника блокируют один интервал; причина должна быть mentor-booked
	slot := testSlot()
	slotRes := []*model.Reservation{
		reservation(slot, model.ReservationStatusConfirmed, 0, 30),
	}
	studentRes := []*model.Reservation{
		{
			SlotID:          uuid.New(),
			Status:          model.ReservationStatusConfirmed,
			BookedStartTime: base,
			BookedEndTime:   base.Add(30 * time.Minute),
		},
	}

	candidates, err := GenerateCandidates(slot, 15, slotRes, studentRes, 15)
	require.NoError(t, err)

	first := candidateAt(t, candidates, base)
	assert.False(t, first.Available)
	assert.Equal(t, BlockReasonMentorBooked, first.Reason)
}

func TestGenerateCandidatesIgnoresOtherDayStudentReservations(t *testing.T) {
	slot := testSlot()
	studentRes := []*model.Reservation{
		{
			SlotID:          uuid.New(),
			Status:          model.ReservationStatusConfirmed,
			BookedStartTime: base.AddDate(0, 0, 1),
			BookedEndTime:   base.AddDate(0, 0, 1).Add(time.Hour),
		},
	}

	candidates, err := GenerateCandidates(slot, 15, nil, studentRes, 15)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.True(t, c.Available)
	}
}

func TestGenerateCandidatesSoundness(t *testing.T) {
	// Каждый кандидат с Available=true не пересекает ни одну активную бронь
	slot := testSlot()
	slotRes := []*model.Reservation{
		reservation(slot, model.ReservationStatusConfirmed, 0, 20),
		reservation(slot, model.ReservationStatusPendingApproval, 35, 50),
	}

	candidates, err := GenerateCandidates(slot, 15, slotRes, nil, 5)
	require.NoError(t, err)

	for _, c := range candidates {
		if !c.Available {
			continue
		}
		proposed := Interval{Start: c.Time, End: c.Time.Add(15 * time.Minute)}
		for _, r := range slotRes {
			booked := Interval{Start: r.BookedStartTime, End: r.BookedEndTime}
			assert.False(t, proposed.Overlaps(booked),
				"available candidate %s overlaps reservation %s", c.Time, r.BookedStartTime)
		}
	}
}

func TestGenerateCandidatesDefaultStep(t *testing.T) {
	slot := testSlot()

	candidates, err := GenerateCandidates(slot, 30, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, base.Add(15*time.Minute), candidates[1].Time)
}

// memoryStore имитация авторитетного хранилища с серверной проверкой
// непересечения при записи
type memoryStore struct {
	mu           sync.Mutex
	slot         *model.LessonSlot
	reservations []*model.Reservation
}

func (s *memoryStore) create(studentID uuid.UUID, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposed := Interval{Start: start, End: end}
	for _, r := range s.reservations {
		if !r.Status.IsActive() {
			continue
		}
		if proposed.Overlaps(Interval{Start: r.BookedStartTime, End: r.BookedEndTime}) {
			return ErrConflict
		}
	}

	s.reservations = append(s.reservations, &model.Reservation{
		ID:              uuid.New(),
		SlotID:          s.slot.ID,
		StudentID:       studentID,
		Status:          model.ReservationStatusPendingApproval,
		BookedStartTime: start,
		BookedEndTime:   end,
	})
	return nil
}

func (s *memoryStore) snapshot() []*model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Reservation(nil), s.reservations...)
}

func TestConcurrentCreationIsRejectedByAuthoritativeCheck(t *testing.T) {
	// Два клиента сгенерировали кандидатов по одному и тому же устаревшему
	// снимку и выбрали одинаковый старт: выигрывает ровно один, второй
	// получает ErrConflict и обязан перегенерировать кандидатов
	slot := testSlot()
	store := &memoryStore{slot: slot}

	stale := store.snapshot()
	candidates, err := GenerateCandidates(slot, 30, stale, nil, 15)
	require.NoError(t, err)
	require.True(t, candidates[0].Available, "both clients see 09:00 as bookable")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.create(uuid.New(), base, base.Add(30*time.Minute))
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one writer must be rejected")

	// Перегенерация по свежим данным больше не предлагает занятый интервал
	fresh, err := GenerateCandidates(slot, 30, store.snapshot(), nil, 15)
	require.NoError(t, err)
	first := candidateAt(t, fresh, base)
	assert.False(t, first.Available)
	assert.Equal(t, BlockReasonMentorBooked, first.Reason)
}
