package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"local-services-server/config"
	"local-services-server/database/dbtest"
	"local-services-server/models"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []BookingEvent
}

func (n *recordingNotifier) Enqueue(ev BookingEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

type fakeUploader struct {
	folder, name string
	err          error
}

func (u *fakeUploader) Upload(_ context.Context, r io.Reader, folder, name string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.ReadAll(r)
	u.folder, u.name = folder, name
	return "https://cdn.example.com/" + folder + "/" + name + ".jpg", nil
}

type bookingFixture struct {
	db       *gorm.DB
	svc      *BookingService
	notifier *recordingNotifier
	cache    *countingInvalidator
	uploader *fakeUploader
	now      time.Time
}

func newBookingFixture(t *testing.T, mutate ...func(*config.BookingConfig)) *bookingFixture {
	t.Helper()
	db := dbtest.New(t)
	require.NoError(t, db.Create(&[]models.Service{
		{Category: "electrical", Name: "Inspection visit", BaseCost: 500, IsActive: true},
		{Category: "electrical", Name: "Wiring", BaseCost: 650, IsActive: true},
		{Category: "plumbing", Name: "Leak repair", BaseCost: 400, IsActive: true},
	}).Error)

	cfg := config.Default().Booking
	for _, m := range mutate {
		m(&cfg)
	}

	f := &bookingFixture{
		db:       db,
		notifier: &recordingNotifier{},
		cache:    &countingInvalidator{},
		uploader: &fakeUploader{},
		now:      time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC),
	}
	f.svc = NewBookingService(db, cfg, BookingServiceDeps{
		Notifier: f.notifier,
		Cache:    f.cache,
		Uploader: f.uploader,
	}, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *bookingFixture) input(mutate ...func(*CreateBookingInput)) CreateBookingInput {
	when := f.now.Add(24 * time.Hour)
	in := CreateBookingInput{
		ServiceType:   "electrical",
		Priority:      "emergency",
		Description:   "no power",
		ContactInfo:   &models.ContactInfo{Name: "A", Phone: "9876543210", Address: "X"},
		ScheduledTime: &when,
	}
	for _, m := range mutate {
		m(&in)
	}
	return in
}

func (f *bookingFixture) create(t *testing.T, mutate ...func(*CreateBookingInput)) *models.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), f.input(mutate...))
	require.NoError(t, err)
	return b
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture(t)

	b := f.create(t)

	assert.NotZero(t, b.ID)
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, float64(750), b.TotalCost)
	assert.Regexp(t, `^LSB-\d{8}-\d{6}-\d{4}$`, b.BookingNumber)
	assert.Equal(t, models.PriorityEmergency, b.Priority)
	require.NotNil(t, b.Customer)
	assert.Equal(t, "9876543210", b.Customer.Phone)
	assert.Equal(t, []string{models.NotificationBookingCreated}, f.notifier.kinds())
	assert.Equal(t, 1, f.cache.calls)

	stored, err := f.svc.Get(context.Background(), b.BookingNumber)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, b.ID, stored.ID)
	assert.Equal(t, "A", stored.ContactInfo.Name)
}

func TestCreateBookingDefaultsPriority(t *testing.T) {
	f := newBookingFixture(t)

	b := f.create(t, func(in *CreateBookingInput) {
		in.Priority = ""
		in.ServiceType = "Plumbing"
	})

	assert.Equal(t, models.PriorityNormal, b.Priority)
	assert.Equal(t, "plumbing", b.ServiceType)
	assert.Equal(t, float64(400), b.TotalCost)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture(t)

	cases := map[string]func(*CreateBookingInput){
		"missing service type": func(in *CreateBookingInput) { in.ServiceType = "" },
		"missing description":  func(in *CreateBookingInput) { in.Description = "  " },
		"missing contact":      func(in *CreateBookingInput) { in.ContactInfo = nil },
		"missing schedule":     func(in *CreateBookingInput) { in.ScheduledTime = nil },
		"blank name":           func(in *CreateBookingInput) { in.ContactInfo.Name = "" },
		"blank address":        func(in *CreateBookingInput) { in.ContactInfo.Address = " " },
		"short phone":          func(in *CreateBookingInput) { in.ContactInfo.Phone = "12345" },
		"phone starting 5":     func(in *CreateBookingInput) { in.ContactInfo.Phone = "5876543210" },
		"bad email":            func(in *CreateBookingInput) { in.ContactInfo.Email = "nope" },
		"bad priority":         func(in *CreateBookingInput) { in.Priority = "asap" },
		"unknown service":      func(in *CreateBookingInput) { in.ServiceType = "carpentry" },
		"past schedule": func(in *CreateBookingInput) {
			past := f.now.Add(-time.Minute)
			in.ScheduledTime = &past
		},
		"schedule equal to now": func(in *CreateBookingInput) {
			now := f.now
			in.ScheduledTime = &now
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.input(mutate))
			require.Error(t, err)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.notifier.kinds())
}

func TestCreateBookingAcceptsPrefixedPhone(t *testing.T) {
	f := newBookingFixture(t)

	b := f.create(t, func(in *CreateBookingInput) { in.ContactInfo.Phone = "+91 98765-43210" })

	assert.Equal(t, "9876543210", b.Customer.Phone)
}

func TestCreateBookingRejectsInactiveCategory(t *testing.T) {
	f := newBookingFixture(t)
	require.NoError(t, f.db.Model(&models.Service{}).Where("category = ?", "plumbing").Update("is_active", false).Error)

	_, err := f.svc.Create(context.Background(), f.input(func(in *CreateBookingInput) { in.ServiceType = "plumbing" }))

	assert.True(t, IsValidation(err))
}

func TestCreateBookingBusinessHours(t *testing.T) {
	f := newBookingFixture(t, func(c *config.BookingConfig) { c.EnforceBusinessHours = true })
	ist := f.svc.loc

	late := time.Date(2026, 3, 11, 20, 0, 0, 0, ist)
	_, err := f.svc.Create(context.Background(), f.input(func(in *CreateBookingInput) { in.ScheduledTime = &late }))
	assert.True(t, IsValidation(err))

	morning := time.Date(2026, 3, 11, 10, 30, 0, 0, ist)
	_, err = f.svc.Create(context.Background(), f.input(func(in *CreateBookingInput) { in.ScheduledTime = &morning }))
	assert.NoError(t, err)

	closing := time.Date(2026, 3, 11, 18, 0, 0, 0, ist)
	_, err = f.svc.Create(context.Background(), f.input(func(in *CreateBookingInput) { in.ScheduledTime = &closing }))
	assert.NoError(t, err)
}

func TestCreateBookingReusesCustomer(t *testing.T) {
	f := newBookingFixture(t)

	first := f.create(t)
	second := f.create(t, func(in *CreateBookingInput) {
		in.ContactInfo.Phone = "+919876543210"
		in.ContactInfo.Name = "A. Kumar"
		in.ContactInfo.Address = "Y"
	})

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.NotEqual(t, first.BookingNumber, second.BookingNumber)

	var customer models.Customer
	require.NoError(t, f.db.First(&customer, first.CustomerID).Error)
	assert.Equal(t, "A. Kumar", customer.Name)
	assert.Equal(t, "Y", customer.Address)

	// The booking keeps the contact details entered at booking time.
	stored, err := f.svc.Get(context.Background(), first.BookingNumber)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.ContactInfo.Name)
}

func TestGetBookingMissing(t *testing.T) {
	f := newBookingFixture(t)

	b, err := f.svc.Get(context.Background(), "999")
	assert.NoError(t, err)
	assert.Nil(t, b)

	b, err = f.svc.Get(context.Background(), "LSB-20260101-000000-0001")
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestListBookings(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	a := f.create(t)
	f.create(t, func(in *CreateBookingInput) { in.ServiceType = "plumbing" })
	f.create(t)
	_, err := f.svc.Cancel(ctx, a.ID, "")
	require.NoError(t, err)

	all, total, err := f.svc.List(ctx, ListBookingsFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	pending, total, err := f.svc.List(ctx, ListBookingsFilter{Status: "pending", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, pending, 1)

	plumbing, _, err := f.svc.List(ctx, ListBookingsFilter{ServiceType: "plumbing"})
	require.NoError(t, err)
	assert.Len(t, plumbing, 1)

	_, _, err = f.svc.List(ctx, ListBookingsFilter{Status: "done"})
	assert.True(t, IsValidation(err))
}

func TestUpdateStatusToCompletedSetsCompletedAt(t *testing.T) {
	f := newBookingFixture(t)
	b := f.create(t)

	updated, err := f.svc.UpdateStatus(context.Background(), b.ID, "completed", "fixed the fuse")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	stored, err := f.svc.Get(context.Background(), b.BookingNumber)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.Contains(t, stored.AdminNotes, "fixed the fuse")
	assert.Equal(t, []string{models.NotificationBookingCreated, models.NotificationBookingStatusChanged}, f.notifier.kinds())
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.create(t)

	_, err := f.svc.UpdateStatus(ctx, b.ID, "in_progress", "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, b.ID, "confirmed", "")
	assert.True(t, IsConflict(err), "backwards move must be rejected")

	_, err = f.svc.UpdateStatus(ctx, b.ID, "in_progress", "")
	assert.True(t, IsConflict(err), "same status must be rejected")

	_, err = f.svc.UpdateStatus(ctx, b.ID, "bogus", "")
	assert.True(t, IsValidation(err))

	_, err = f.svc.UpdateStatus(ctx, 424242, "confirmed", "")
	assert.True(t, IsNotFound(err))

	cost := 900.0
	done, err := f.svc.Complete(ctx, b.ID, &cost, "")
	require.NoError(t, err)
	assert.Equal(t, 900.0, done.BilledAmount())

	_, err = f.svc.UpdateStatus(ctx, b.ID, "cancelled", "")
	assert.True(t, IsConflict(err), "terminal status is frozen")
}

func TestCompleteRejectsNegativeCost(t *testing.T) {
	f := newBookingFixture(t)
	b := f.create(t)
	cost := -1.0

	_, err := f.svc.Complete(context.Background(), b.ID, &cost, "")

	assert.True(t, IsValidation(err))
}

func TestCancelPendingBooking(t *testing.T) {
	f := newBookingFixture(t)
	b := f.create(t)

	cancelled, err := f.svc.Cancel(context.Background(), b.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	stored, err := f.svc.Get(context.Background(), b.BookingNumber)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	assert.Nil(t, stored.Rating)
	assert.Nil(t, stored.CompletedAt)
	assert.NotNil(t, stored.CancelledAt)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, "changed my mind", *stored.CancellationReason)

	kinds := f.notifier.kinds()
	assert.Equal(t, models.NotificationBookingCancelled, kinds[len(kinds)-1])
}

func TestCancelCompletedBookingFails(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.create(t)
	_, err := f.svc.UpdateStatus(ctx, b.ID, "completed", "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, b.ID, "too late")
	assert.True(t, IsConflict(err))

	stored, err := f.svc.Get(ctx, b.BookingNumber)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, stored.Status)
	assert.Nil(t, stored.CancellationReason)

	_, err = f.svc.Cancel(ctx, 999, "")
	assert.True(t, IsNotFound(err))
}

func TestSubmitFeedback(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.create(t)

	_, err := f.svc.SubmitFeedback(ctx, b.ID, 5, "great")
	assert.True(t, IsConflict(err), "pending booking cannot be rated")
	stored, _ := f.svc.Get(ctx, b.BookingNumber)
	assert.Nil(t, stored.Rating)

	_, err = f.svc.UpdateStatus(ctx, b.ID, "completed", "")
	require.NoError(t, err)

	_, err = f.svc.SubmitFeedback(ctx, b.ID, 6, "")
	assert.True(t, IsValidation(err))
	_, err = f.svc.SubmitFeedback(ctx, b.ID, 0, "")
	assert.True(t, IsValidation(err))

	_, err = f.svc.SubmitFeedback(ctx, b.ID, 5, "great")
	require.NoError(t, err)

	stored, err = f.svc.Get(ctx, b.BookingNumber)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 5, *stored.Rating)
	require.NotNil(t, stored.Review)
	assert.Equal(t, "great", *stored.Review)

	_, err = f.svc.SubmitFeedback(ctx, b.ID, 3, "")
	assert.True(t, IsConflict(err), "rating is set once")

	_, err = f.svc.SubmitFeedback(ctx, 999, 4, "")
	assert.True(t, IsNotFound(err))
}

func TestAttachPhoto(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	b := f.create(t)

	updated, err := f.svc.AttachPhoto(ctx, b.ID, bytes.NewReader([]byte("img")), "leak.jpg", 3)
	require.NoError(t, err)
	require.Len(t, updated.Photos, 1)
	assert.Equal(t, b.BookingNumber, f.uploader.folder)

	stored, err := f.svc.Get(ctx, b.BookingNumber)
	require.NoError(t, err)
	assert.Equal(t, updated.Photos, stored.Photos)

	_, err = f.svc.AttachPhoto(ctx, b.ID, bytes.NewReader(nil), "leak.gif", 3)
	assert.True(t, IsValidation(err))

	f.uploader.err = errors.New("cloud down")
	_, err = f.svc.AttachPhoto(ctx, b.ID, bytes.NewReader([]byte("img")), "leak.png", 3)
	assert.Error(t, err)
	assert.False(t, IsValidation(err))
}

func TestAttachPhotoWithoutUploader(t *testing.T) {
	f := newBookingFixture(t)
	f.svc.uploader = nil
	b := f.create(t)

	_, err := f.svc.AttachPhoto(context.Background(), b.ID, bytes.NewReader([]byte("img")), "a.jpg", 3)

	assert.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestNormalizePage(t *testing.T) {
	limit, offset := normalizePage(0, -5, 20)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, _ = normalizePage(1000, 0, 20)
	assert.Equal(t, maxPageSize, limit)
}
