package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

type mockAppointmentStore struct {
	appointments     map[string]*models.Appointment
	confirmedByEmail map[string]*models.Appointment
	expiryCandidates []models.Appointment
	confirmedByDate  []models.Appointment
	bulkCancelled    int64
	bulkCutoff       time.Time
	created          []*models.Appointment
	updated          []*models.Appointment
	createErr        error
	updateErr        error
}

func newMockAppointmentStore() *mockAppointmentStore {
	return &mockAppointmentStore{
		appointments:     make(map[string]*models.Appointment),
		confirmedByEmail: make(map[string]*models.Appointment),
	}
}

func (m *mockAppointmentStore) Create(ctx context.Context, appointment *models.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	appointment.ID = "generated"
	m.created = append(m.created, appointment)
	m.appointments[appointment.ID] = appointment
	return nil
}

func (m *mockAppointmentStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if a, ok := m.appointments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAppointmentStore) Update(ctx context.Context, appointment *models.Appointment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, appointment)
	m.appointments[appointment.ID] = appointment
	return nil
}

func (m *mockAppointmentStore) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	var out []models.Appointment
	for _, a := range m.appointments {
		if filter.Email != "" && a.Email != filter.Email {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockAppointmentStore) FindConfirmedByEmail(ctx context.Context, email string) (*models.Appointment, error) {
	if a, ok := m.confirmedByEmail[email]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAppointmentStore) ListExpiryCandidates(ctx context.Context, date time.Time) ([]models.Appointment, error) {
	return m.expiryCandidates, nil
}

func (m *mockAppointmentStore) ListConfirmedByDate(ctx context.Context, date time.Time) ([]models.Appointment, error) {
	return m.confirmedByDate, nil
}

func (m *mockAppointmentStore) BulkCancelStalePending(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	m.bulkCutoff = cutoff
	return m.bulkCancelled, nil
}

type mockAccountDirectory struct {
	accounts map[string]*models.User
}

func (m *mockAccountDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.accounts[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

// mockCalendar answers the slot rules from fixed data: every weekday is a
// business day, every slot is free unless listed as taken.
type mockCalendar struct {
	now         time.Time
	takenSlots  map[string]bool
	dayFull     bool
	closed      bool
	invalidated int
}

func newMockCalendar(now time.Time) *mockCalendar {
	return &mockCalendar{now: now, takenSlots: make(map[string]bool)}
}

func (m *mockCalendar) IsBusinessDay(ctx context.Context, date time.Time) bool {
	if m.closed {
		return false
	}
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (m *mockCalendar) IsSlotFree(ctx context.Context, date time.Time, slot, excludeID string) (bool, error) {
	return !m.takenSlots[date.Format(models.DateFormat)+" "+slot], nil
}

func (m *mockCalendar) HasCapacity(ctx context.Context, date time.Time) (bool, error) {
	return !m.dayFull, nil
}

func (m *mockCalendar) SlotStart(date time.Time, slot string) (time.Time, error) {
	parsed, err := time.Parse(models.SlotFormat, slot)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}

func (m *mockCalendar) Now() time.Time           { return m.now }
func (m *mockCalendar) Location() *time.Location { return time.UTC }

func (m *mockCalendar) InvalidateAvailability(ctx context.Context) { m.invalidated++ }

type mockAppointmentNotifier struct {
	created      int
	statusEvents []models.AppointmentStatus
	cancelled    int
	expired      int
	reminders    int
}

func (m *mockAppointmentNotifier) AppointmentCreated(a *models.Appointment) { m.created++ }
func (m *mockAppointmentNotifier) AppointmentStatusUpdated(a *models.Appointment, previous models.AppointmentStatus) {
	m.statusEvents = append(m.statusEvents, a.Status)
}
func (m *mockAppointmentNotifier) AppointmentCancelled(a *models.Appointment) { m.cancelled++ }
func (m *mockAppointmentNotifier) AppointmentExpired(a *models.Appointment)   { m.expired++ }
func (m *mockAppointmentNotifier) AppointmentReminder(a *models.Appointment)  { m.reminders++ }

type mockOpener struct {
	opened  []string
	openErr error
}

func (m *mockOpener) CreateFromAppointment(ctx context.Context, appointmentID string) (*models.Procedure, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opened = append(m.opened, appointmentID)
	return &models.Procedure{ID: "p-new", AppointmentID: appointmentID}, nil
}

type appointmentFixture struct {
	store    *mockAppointmentStore
	accounts *mockAccountDirectory
	calendar *mockCalendar
	notifier *mockAppointmentNotifier
	opener   *mockOpener
	svc      *AppointmentService
}

// Monday 2026-03-02 09:00 UTC.
var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newAppointmentFixture() *appointmentFixture {
	f := &appointmentFixture{
		store:    newMockAppointmentStore(),
		accounts: &mockAccountDirectory{accounts: map[string]*models.User{}},
		calendar: newMockCalendar(testNow),
		notifier: &mockAppointmentNotifier{},
		opener:   &mockOpener{},
	}
	f.svc = NewAppointmentService(f.store, f.accounts, f.calendar, f.notifier, f.opener,
		config.BookingConfig{CancelNotice: 2 * time.Hour, CompletionMaxAge: 7 * 24 * time.Hour},
		config.JobsConfig{ExpiryGrace: 10 * time.Minute, PendingMaxAge: 5 * time.Hour},
		nil, zap.NewNop())
	return f
}

func validCreateRequest(email string) dto.CreateAppointmentRequest {
	return dto.CreateAppointmentRequest{
		FirstName:      "Awa",
		LastName:       "Diop",
		Email:          email,
		Phone:          "+221770000000",
		Destination:    string(models.DestinationFrance),
		StudyField:     string(models.FieldEngineering),
		EducationLevel: string(models.LevelBachelor),
		Date:           "2026-03-03",
		TimeSlot:       "10:00",
	}
}

func confirmedAppointment(id, email string, date time.Time, slot string) *models.Appointment {
	return &models.Appointment{
		ID:             id,
		Email:          email,
		FirstName:      "Awa",
		LastName:       "Diop",
		Phone:          "+221770000000",
		Destination:    models.DestinationFrance,
		StudyField:     models.FieldEngineering,
		EducationLevel: models.LevelBachelor,
		Date:           date,
		TimeSlot:       slot,
		Status:         models.AppointmentConfirmed,
	}
}

func TestAppointmentCreateConfirmedImmediately(t *testing.T) {
	f := newAppointmentFixture()
	f.accounts.accounts["client@example.com"] = &models.User{ID: "u1", Email: "client@example.com"}

	appointment, err := f.svc.Create(context.Background(), validCreateRequest("Client@Example.com"), userClaims("client@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, appointment.Status)
	assert.Equal(t, "client@example.com", appointment.Email)
	require.NotNil(t, appointment.UserID)
	assert.Equal(t, "u1", *appointment.UserID)
	assert.Equal(t, 1, f.notifier.created)
	assert.Equal(t, 1, f.calendar.invalidated)
}

func TestAppointmentCreateForeignEmailForbidden(t *testing.T) {
	f := newAppointmentFixture()

	_, err := f.svc.Create(context.Background(), validCreateRequest("other@example.com"), userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCreateAdminMayBookUnlinkedEmail(t *testing.T) {
	f := newAppointmentFixture()

	appointment, err := f.svc.Create(context.Background(), validCreateRequest("walkin@example.com"), adminClaims())
	require.NoError(t, err)
	assert.Nil(t, appointment.UserID)
}

func TestAppointmentCreateDuplicateConfirmed(t *testing.T) {
	f := newAppointmentFixture()
	f.accounts.accounts["client@example.com"] = &models.User{ID: "u1", Email: "client@example.com"}
	f.store.confirmedByEmail["client@example.com"] = &models.Appointment{ID: "a0"}

	_, err := f.svc.Create(context.Background(), validCreateRequest("client@example.com"), userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCreateSlotTaken(t *testing.T) {
	f := newAppointmentFixture()
	f.accounts.accounts["client@example.com"] = &models.User{ID: "u1", Email: "client@example.com"}
	f.calendar.takenSlots["2026-03-03 10:00"] = true

	_, err := f.svc.Create(context.Background(), validCreateRequest("client@example.com"), userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCreateDayFull(t *testing.T) {
	f := newAppointmentFixture()
	f.accounts.accounts["client@example.com"] = &models.User{ID: "u1", Email: "client@example.com"}
	f.calendar.dayFull = true

	_, err := f.svc.Create(context.Background(), validCreateRequest("client@example.com"), userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDayFull.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCreateInvalidSlotGrid(t *testing.T) {
	f := newAppointmentFixture()
	f.accounts.accounts["client@example.com"] = &models.User{ID: "u1", Email: "client@example.com"}
	req := validCreateRequest("client@example.com")
	req.TimeSlot = "10:15"

	_, err := f.svc.Create(context.Background(), req, userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCreateWeekendRejected(t *testing.T) {
	f := newAppointmentFixture()
	f.accounts.accounts["client@example.com"] = &models.User{ID: "u1", Email: "client@example.com"}
	req := validCreateRequest("client@example.com")
	req.Date = "2026-03-07" // Saturday

	_, err := f.svc.Create(context.Background(), req, userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCreateOtherDestinationNeedsPrecision(t *testing.T) {
	f := newAppointmentFixture()
	f.accounts.accounts["client@example.com"] = &models.User{ID: "u1", Email: "client@example.com"}
	req := validCreateRequest("client@example.com")
	req.Destination = string(models.DestinationOther)

	_, err := f.svc.Create(context.Background(), req, userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.DestinationOther = "Suisse"
	appointment, err := f.svc.Create(context.Background(), req, userClaims("client@example.com"))
	require.NoError(t, err)
	require.NotNil(t, appointment.DestinationOther)
	assert.Equal(t, "Suisse", *appointment.DestinationOther)
}

func TestAppointmentCreateNoAccountForbidden(t *testing.T) {
	f := newAppointmentFixture()

	_, err := f.svc.Create(context.Background(), validCreateRequest("client@example.com"), userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCancelByOwnerWithNotice(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow.AddDate(0, 0, 1), "14:00")
	f.store.appointments["a1"] = a

	cancelled, err := f.svc.Cancel(context.Background(), "a1", "emploi du temps", userClaims("client@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, models.CancelledByUser, *cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "emploi du temps", *cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, testNow, *cancelled.CancelledAt)
	assert.Equal(t, 1, f.notifier.cancelled)
}

func TestAppointmentCancelTooLate(t *testing.T) {
	f := newAppointmentFixture()
	// Slot at 10:00 today, now 09:00: only one hour of notice left.
	a := confirmedAppointment("a1", "client@example.com", testNow, "10:00")
	f.store.appointments["a1"] = a

	_, err := f.svc.Cancel(context.Background(), "a1", "", userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCancelAdminIgnoresNotice(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "10:00")
	f.store.appointments["a1"] = a

	cancelled, err := f.svc.Cancel(context.Background(), "a1", "", adminClaims())
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, models.CancelledByAdmin, *cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, testNow, *cancelled.CancelledAt)
}

func TestAppointmentCancelTerminalRejected(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "10:00")
	a.Status = models.AppointmentCancelled
	f.store.appointments["a1"] = a

	_, err := f.svc.Cancel(context.Background(), "a1", "", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentUpdateStatusAdminOnly(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "10:00")
	f.store.appointments["a1"] = a

	_, err := f.svc.UpdateStatus(context.Background(), "a1",
		dto.UpdateAppointmentStatusRequest{Status: string(models.AppointmentCompleted), AvisAdmin: string(models.AvisFavorable)},
		userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCompleteFavourableOpensProcedure(t *testing.T) {
	f := newAppointmentFixture()
	// Slot two hours ago, inside the completion window.
	a := confirmedAppointment("a1", "client@example.com", testNow, "07:00")
	f.store.appointments["a1"] = a

	completed, err := f.svc.UpdateStatus(context.Background(), "a1",
		dto.UpdateAppointmentStatusRequest{Status: string(models.AppointmentCompleted), AvisAdmin: string(models.AvisFavorable)},
		adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, completed.Status)
	require.NotNil(t, completed.AvisAdmin)
	assert.Equal(t, models.AvisFavorable, *completed.AvisAdmin)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, testNow, *completed.CompletedAt)
	assert.Equal(t, []string{"a1"}, f.opener.opened)
	assert.Equal(t, []models.AppointmentStatus{models.AppointmentCompleted}, f.notifier.statusEvents)
}

func TestAppointmentCompleteUnfavourableSkipsProcedure(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "07:00")
	f.store.appointments["a1"] = a

	_, err := f.svc.UpdateStatus(context.Background(), "a1",
		dto.UpdateAppointmentStatusRequest{Status: string(models.AppointmentCompleted), AvisAdmin: string(models.AvisUnfavorable)},
		adminClaims())
	require.NoError(t, err)
	assert.Empty(t, f.opener.opened)
}

func TestAppointmentCompleteRequiresAvis(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "07:00")
	f.store.appointments["a1"] = a

	_, err := f.svc.UpdateStatus(context.Background(), "a1",
		dto.UpdateAppointmentStatusRequest{Status: string(models.AppointmentCompleted)}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCompleteFutureRejected(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "14:00")
	f.store.appointments["a1"] = a

	_, err := f.svc.UpdateStatus(context.Background(), "a1",
		dto.UpdateAppointmentStatusRequest{Status: string(models.AppointmentCompleted), AvisAdmin: string(models.AvisFavorable)},
		adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCompleteWindowElapsed(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow.AddDate(0, 0, -8), "10:00")
	f.store.appointments["a1"] = a

	_, err := f.svc.UpdateStatus(context.Background(), "a1",
		dto.UpdateAppointmentStatusRequest{Status: string(models.AppointmentCompleted), AvisAdmin: string(models.AvisFavorable)},
		adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentSameStatusConflict(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow.AddDate(0, 0, 1), "10:00")
	f.store.appointments["a1"] = a

	_, err := f.svc.UpdateStatus(context.Background(), "a1",
		dto.UpdateAppointmentStatusRequest{Status: string(models.AppointmentConfirmed)}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentConfirmPastSlotRejected(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "08:00")
	a.Status = models.AppointmentPending
	f.store.appointments["a1"] = a

	_, err := f.svc.Confirm(context.Background(), "a1", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentConfirmPending(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow.AddDate(0, 0, 1), "10:00")
	a.Status = models.AppointmentPending
	f.store.appointments["a1"] = a

	confirmed, err := f.svc.Confirm(context.Background(), "a1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, confirmed.Status)
	assert.Equal(t, []models.AppointmentStatus{models.AppointmentConfirmed}, f.notifier.statusEvents)
}

func TestAppointmentListScopesToOwner(t *testing.T) {
	f := newAppointmentFixture()
	f.store.appointments["a1"] = confirmedAppointment("a1", "client@example.com", testNow, "10:00")
	f.store.appointments["a2"] = confirmedAppointment("a2", "other@example.com", testNow, "11:00")

	own, total, err := f.svc.List(context.Background(), models.AppointmentFilter{}, userClaims("client@example.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, own, 1)
	assert.Equal(t, "a1", own[0].ID)
}

func TestAppointmentGetForeignForbidden(t *testing.T) {
	f := newAppointmentFixture()
	f.store.appointments["a1"] = confirmedAppointment("a1", "client@example.com", testNow, "10:00")

	_, err := f.svc.Get(context.Background(), "a1", userClaims("other@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExpireOverdueHonoursGrace(t *testing.T) {
	f := newAppointmentFixture()
	overdue := *confirmedAppointment("a1", "late@example.com", testNow, "08:00") // grace elapsed at 09:00
	fresh := *confirmedAppointment("a2", "fresh@example.com", testNow, "08:55")  // inside the grace window
	f.store.appointments["a1"] = &overdue
	f.store.appointments["a2"] = &fresh
	f.store.expiryCandidates = []models.Appointment{overdue, fresh}

	count, err := f.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, f.notifier.expired)
	require.Len(t, f.store.updated, 1)
	assert.Equal(t, models.AppointmentExpired, f.store.updated[0].Status)
	assert.Equal(t, "a1", f.store.updated[0].ID)
}

func TestAutoCancelStalePendingUsesCutoff(t *testing.T) {
	f := newAppointmentFixture()
	f.store.bulkCancelled = 3

	count, err := f.svc.AutoCancelStalePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, testNow.Add(-5*time.Hour), f.store.bulkCutoff)
	assert.Equal(t, 1, f.calendar.invalidated)
}

func TestSendDailyReminders(t *testing.T) {
	f := newAppointmentFixture()
	f.store.confirmedByDate = []models.Appointment{
		*confirmedAppointment("a1", "one@example.com", testNow, "10:00"),
		*confirmedAppointment("a2", "two@example.com", testNow, "11:00"),
	}

	count, err := f.svc.SendDailyReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, f.notifier.reminders)
}

func TestAppointmentUpdateDetailsReschedule(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow.AddDate(0, 0, 1), "10:00")
	f.store.appointments["a1"] = a

	newSlot := "15:00"
	updated, err := f.svc.UpdateDetails(context.Background(), "a1",
		dto.UpdateAppointmentRequest{TimeSlot: &newSlot}, userClaims("client@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "15:00", updated.TimeSlot)
	require.Len(t, f.store.updated, 1)
}

func TestAppointmentUpdateDetailsCompletedImmutable(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow, "07:00")
	a.Status = models.AppointmentCompleted
	f.store.appointments["a1"] = a

	phone := "+33600000000"
	_, err := f.svc.UpdateDetails(context.Background(), "a1",
		dto.UpdateAppointmentRequest{Phone: &phone}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAppointmentUpdateDetailsEmailChangeUserForbidden(t *testing.T) {
	f := newAppointmentFixture()
	a := confirmedAppointment("a1", "client@example.com", testNow.AddDate(0, 0, 1), "10:00")
	f.store.appointments["a1"] = a

	other := "other@example.com"
	_, err := f.svc.UpdateDetails(context.Background(), "a1",
		dto.UpdateAppointmentRequest{Email: &other}, userClaims("client@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
