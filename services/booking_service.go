package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"local-services-server/config"
	"local-services-server/metrics"
	"local-services-server/models"
	"local-services-server/utils"
)

const (
	defaultBookingPageSize = 20
	maxPageSize            = 100
	maxBookingPhotos       = 5
)

// ErrUploadsDisabled is returned by AttachPhoto when no uploader is configured.
var ErrUploadsDisabled = errors.New("photo uploads are not configured")

// CacheInvalidator is notified after every booking write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

type CreateBookingInput struct {
	ServiceType   string
	Priority      string
	Description   string
	ContactInfo   *models.ContactInfo
	ScheduledTime *time.Time
}

type ListBookingsFilter struct {
	Status      string
	ServiceType string
	Priority    string
	Limit       int
	Offset      int
}

type BookingService struct {
	db       *gorm.DB
	cost     *CostCalculator
	numbers  *BookingNumberGenerator
	notifier Notifier
	uploader MediaUploader
	cache    CacheInvalidator
	cfg      config.BookingConfig
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

type BookingServiceDeps struct {
	Cost     *CostCalculator
	Numbers  *BookingNumberGenerator
	Notifier Notifier
	Uploader MediaUploader
	Cache    CacheInvalidator
}

func NewBookingService(db *gorm.DB, cfg config.BookingConfig, deps BookingServiceDeps, logger zerolog.Logger) *BookingService {
	logger = logger.With().Str("component", "bookings").Logger()
	if deps.Cost == nil {
		deps.Cost = NewCostCalculator(db, cfg, logger)
	}
	if deps.Numbers == nil {
		deps.Numbers = NewBookingNumberGenerator(cfg.NumberPrefix, cfg.Location(), NewMemorySequencer(), logger)
	}
	return &BookingService{
		db:       db,
		cost:     deps.Cost,
		numbers:  deps.Numbers,
		notifier: deps.Notifier,
		uploader: deps.Uploader,
		cache:    deps.Cache,
		cfg:      cfg,
		loc:      cfg.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

// NormalizePage applies the booking list defaults to limit and offset.
func NormalizePage(limit, offset int) (int, int) {
	return normalizePage(limit, offset, defaultBookingPageSize)
}

func normalizePage(limit, offset, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *BookingService) validateCreate(ctx context.Context, in CreateBookingInput) (models.Priority, models.ContactInfo, error) {
	var contact models.ContactInfo

	serviceType := strings.ToLower(strings.TrimSpace(in.ServiceType))
	if serviceType == "" {
		return "", contact, ValidationError{Field: "serviceType", Msg: "is required"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return "", contact, ValidationError{Field: "description", Msg: "is required"}
	}
	if in.ContactInfo == nil {
		return "", contact, ValidationError{Field: "contactInfo", Msg: "is required"}
	}
	if in.ScheduledTime == nil || in.ScheduledTime.IsZero() {
		return "", contact, ValidationError{Field: "scheduledTime", Msg: "is required"}
	}

	contact = models.ContactInfo{
		Name:    strings.TrimSpace(in.ContactInfo.Name),
		Phone:   strings.TrimSpace(in.ContactInfo.Phone),
		Address: strings.TrimSpace(in.ContactInfo.Address),
		Email:   strings.TrimSpace(in.ContactInfo.Email),
	}
	if contact.Name == "" {
		return "", contact, ValidationError{Field: "contactInfo.name", Msg: "is required"}
	}
	if contact.Phone == "" {
		return "", contact, ValidationError{Field: "contactInfo.phone", Msg: "is required"}
	}
	if !utils.ValidateIndianMobile(contact.Phone) {
		return "", contact, ValidationError{Field: "contactInfo.phone", Msg: "must be a valid Indian mobile number"}
	}
	if contact.Address == "" {
		return "", contact, ValidationError{Field: "contactInfo.address", Msg: "is required"}
	}
	if contact.Email != "" && !utils.ValidateEmail(contact.Email) {
		return "", contact, ValidationError{Field: "contactInfo.email", Msg: "must be a valid email address"}
	}

	priority, err := models.ParsePriority(strings.ToLower(strings.TrimSpace(in.Priority)))
	if err != nil {
		return "", contact, ValidationError{Field: "priority", Msg: err.Error()}
	}

	scheduled := *in.ScheduledTime
	if !scheduled.After(s.now()) {
		return "", contact, ValidationError{Field: "scheduledTime", Msg: "must be in the future"}
	}
	if s.cfg.EnforceBusinessHours && !s.withinBusinessHours(scheduled) {
		return "", contact, ValidationError{
			Field: "scheduledTime",
			Msg:   fmt.Sprintf("must be between %02d:00 and %02d:00", s.cfg.BusinessHourStart, s.cfg.BusinessHourEnd),
		}
	}

	var active int64
	err = s.db.WithContext(ctx).Model(&models.Service{}).
		Where("LOWER(category) = ? AND is_active = ?", serviceType, true).
		Count(&active).Error
	if err != nil {
		return "", contact, fmt.Errorf("check service category: %w", err)
	}
	if active == 0 {
		return "", contact, ValidationError{Field: "serviceType", Msg: fmt.Sprintf("%q is not an available service", serviceType)}
	}

	return priority, contact, nil
}

// withinBusinessHours reports whether t falls in [start:00, end:00] local time.
func (s *BookingService) withinBusinessHours(t time.Time) bool {
	local := t.In(s.loc)
	start := s.cfg.BusinessHourStart
	end := s.cfg.BusinessHourEnd
	h := local.Hour()
	if h < start {
		return false
	}
	if h < end {
		return true
	}
	return h == end && local.Minute() == 0 && local.Second() == 0
}

// Create validates the request, upserts the customer and stores a pending
// booking in one transaction. The notification is queued after commit.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	priority, contact, err := s.validateCreate(ctx, in)
	if err != nil {
		return nil, err
	}
	serviceType := strings.ToLower(strings.TrimSpace(in.ServiceType))
	phone := utils.NormalizeIndianMobile(contact.Phone)

	booking := models.Booking{
		BookingNumber: s.numbers.Generate(ctx),
		ServiceType:   serviceType,
		Priority:      priority,
		Description:   strings.TrimSpace(in.Description),
		ContactInfo:   contact,
		ScheduledTime: in.ScheduledTime.UTC(),
		Status:        models.BookingStatusPending,
		TotalCost:     float64(s.cost.Estimate(ctx, serviceType, priority)),
		Photos:        models.StringList{},
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := upsertCustomer(tx, phone, contact)
		if err != nil {
			return err
		}
		booking.CustomerID = customer.ID
		if err := tx.Create(&booking).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		booking.Customer = customer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_number", booking.BookingNumber).
		Str("service_type", booking.ServiceType).
		Str("priority", string(booking.Priority)).
		Float64("total_cost", booking.TotalCost).
		Msg("✅ Booking created")

	metrics.IncBookingCreated(booking.ServiceType, string(booking.Priority))
	s.afterWrite(ctx, models.NotificationBookingCreated, &booking, "", "")
	return &booking, nil
}

func upsertCustomer(tx *gorm.DB, phone string, contact models.ContactInfo) (*models.Customer, error) {
	var customer models.Customer
	err := tx.Where("phone = ?", phone).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		customer = models.Customer{
			Name:    contact.Name,
			Phone:   phone,
			Email:   contact.Email,
			Address: contact.Address,
		}
		if err := tx.Create(&customer).Error; err != nil {
			return nil, fmt.Errorf("create customer: %w", err)
		}
		return &customer, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}

	updates := map[string]interface{}{
		"name":    contact.Name,
		"address": contact.Address,
	}
	if contact.Email != "" {
		updates["email"] = contact.Email
	}
	if err := tx.Model(&customer).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return &customer, nil
}

// Get looks a booking up by numeric id or booking number. It returns
// nil, nil when nothing matches.
func (s *BookingService) Get(ctx context.Context, idOrNumber string) (*models.Booking, error) {
	key := strings.TrimSpace(idOrNumber)
	if key == "" {
		return nil, nil
	}

	query := s.db.WithContext(ctx).Preload("Customer")
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("booking_number = ?", key)
	}

	var booking models.Booking
	err := query.First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// filterBookings applies the status, priority and service type filters
// shared by listing and export.
func filterBookings(query *gorm.DB, filter ListBookingsFilter) (*gorm.DB, error) {
	if filter.Status != "" {
		status, err := models.ParseBookingStatus(filter.Status)
		if err != nil {
			return nil, ValidationError{Field: "status", Msg: err.Error()}
		}
		query = query.Where("status = ?", status)
	}
	if filter.Priority != "" {
		priority, err := models.ParsePriority(strings.ToLower(filter.Priority))
		if err != nil {
			return nil, ValidationError{Field: "priority", Msg: err.Error()}
		}
		query = query.Where("priority = ?", priority)
	}
	if filter.ServiceType != "" {
		query = query.Where("service_type = ?", strings.ToLower(filter.ServiceType))
	}
	return query, nil
}

func (s *BookingService) List(ctx context.Context, filter ListBookingsFilter) ([]models.Booking, int64, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset, defaultBookingPageSize)

	query, err := filterBookings(s.db.WithContext(ctx).Model(&models.Booking{}), filter)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	var bookings []models.Booking
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&bookings).Error; err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

func (s *BookingService) load(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).First(&booking, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return &booking, nil
}

// applyUpdate writes updates only if the booking still has the status it
// was read with.
func (s *BookingService) applyUpdate(ctx context.Context, booking *models.Booking, updates map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, booking.Status).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ConflictError{Resource: "booking", Msg: "booking was modified concurrently, reload and retry"}
	}
	return nil
}

// UpdateStatus moves a booking along the status state machine. Unlike a
// plain overwrite, backward moves, same-state writes and changes to a
// completed or cancelled booking are rejected with a ConflictError.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint, newStatus, notes string) (*models.Booking, error) {
	return s.transition(ctx, id, newStatus, notes, nil)
}

// Complete marks a booking completed, optionally recording the final amount.
func (s *BookingService) Complete(ctx context.Context, id uint, actualCost *float64, notes string) (*models.Booking, error) {
	if actualCost != nil && *actualCost < 0 {
		return nil, ValidationError{Field: "actualCost", Msg: "must not be negative"}
	}
	return s.transition(ctx, id, string(models.BookingStatusCompleted), notes, actualCost)
}

func (s *BookingService) transition(ctx context.Context, id uint, newStatus, notes string, actualCost *float64) (*models.Booking, error) {
	target, err := models.ParseBookingStatus(newStatus)
	if err != nil {
		return nil, ValidationError{Field: "status", Msg: err.Error()}
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := booking.Status
	if !prev.CanTransitionTo(target) {
		return nil, ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("cannot change status from %s to %s", prev, target),
		}
	}

	now := s.now().UTC()
	updates := map[string]interface{}{"status": target}
	switch target {
	case models.BookingStatusCompleted:
		updates["completed_at"] = now
		booking.CompletedAt = &now
		if actualCost != nil {
			updates["actual_cost"] = *actualCost
			booking.ActualCost = actualCost
		}
	case models.BookingStatusCancelled:
		updates["cancelled_at"] = now
		booking.CancelledAt = &now
	}
	if note := strings.TrimSpace(notes); note != "" {
		booking.AdminNotes = appendNote(booking.AdminNotes, note, now)
		updates["admin_notes"] = booking.AdminNotes
	}

	if err := s.applyUpdate(ctx, booking, updates); err != nil {
		return nil, err
	}
	booking.Status = target

	s.logger.Info().
		Str("booking_number", booking.BookingNumber).
		Str("from", string(prev)).
		Str("to", string(target)).
		Msg("🔄 Booking status updated")

	metrics.IncStatusTransition(string(target))
	kind := models.NotificationBookingStatusChanged
	if target == models.BookingStatusCancelled {
		kind = models.NotificationBookingCancelled
	}
	s.afterWrite(ctx, kind, booking, string(prev), "")
	return booking, nil
}

func appendNote(existing, note string, at time.Time) string {
	line := fmt.Sprintf("[%s] %s", at.Format(time.RFC3339), note)
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

// Cancel cancels a booking that has not been completed or cancelled.
func (s *BookingService) Cancel(ctx context.Context, id uint, reason string) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return nil, ConflictError{Resource: "booking", Msg: fmt.Sprintf("cannot cancel a %s booking", booking.Status)}
	}

	now := s.now().UTC()
	updates := map[string]interface{}{
		"status":       models.BookingStatusCancelled,
		"cancelled_at": now,
	}
	reason = strings.TrimSpace(reason)
	if reason != "" {
		updates["cancellation_reason"] = reason
		booking.CancellationReason = &reason
	}
	if err := s.applyUpdate(ctx, booking, updates); err != nil {
		return nil, err
	}

	prev := booking.Status
	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &now

	s.logger.Info().Str("booking_number", booking.BookingNumber).Str("reason", reason).Msg("🛑 Booking cancelled")
	metrics.IncStatusTransition(string(models.BookingStatusCancelled))
	s.afterWrite(ctx, models.NotificationBookingCancelled, booking, string(prev), reason)
	return booking, nil
}

// SubmitFeedback stores the customer's rating on a completed booking. A
// booking can be rated once.
func (s *BookingService) SubmitFeedback(ctx context.Context, id uint, rating int, review string) (*models.Booking, error) {
	if rating < 1 || rating > 5 {
		return nil, ValidationError{Field: "rating", Msg: "must be between 1 and 5"}
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, ConflictError{Resource: "booking", Msg: "feedback can only be submitted for completed bookings"}
	}
	if booking.Rating != nil {
		return nil, ConflictError{Resource: "booking", Msg: "feedback has already been submitted"}
	}

	updates := map[string]interface{}{"rating": rating}
	review = strings.TrimSpace(review)
	if review != "" {
		updates["review"] = review
		booking.Review = &review
	}
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND rating IS NULL", booking.ID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("store feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ConflictError{Resource: "booking", Msg: "feedback has already been submitted"}
	}
	booking.Rating = &rating

	s.logger.Info().Str("booking_number", booking.BookingNumber).Int("rating", rating).Msg("⭐ Feedback received")
	s.afterWrite(ctx, models.NotificationBookingFeedback, booking, "", "")
	return booking, nil
}

// AttachPhoto uploads a problem photo and appends its URL to the booking.
func (s *BookingService) AttachPhoto(ctx context.Context, id uint, r io.Reader, filename string, size int64) (*models.Booking, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	if err := ValidatePhoto(filename, size); err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(booking.Photos) >= maxBookingPhotos {
		return nil, ValidationError{Field: "photo", Msg: fmt.Sprintf("at most %d photos per booking", maxBookingPhotos)}
	}

	name := fmt.Sprintf("%d", len(booking.Photos)+1)
	url, err := s.uploader.Upload(ctx, r, booking.BookingNumber, name)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}

	photos := append(models.StringList{}, booking.Photos...)
	photos = append(photos, url)
	if err := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", booking.ID).Update("photos", photos).Error; err != nil {
		return nil, fmt.Errorf("save photo url: %w", err)
	}
	booking.Photos = photos
	s.cacheInvalidate(ctx)
	return booking, nil
}

func (s *BookingService) cacheInvalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *BookingService) afterWrite(ctx context.Context, kind string, b *models.Booking, prevStatus, reason string) {
	s.cacheInvalidate(ctx)
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(BookingEvent{
		Kind:          kind,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		ServiceType:   b.ServiceType,
		Priority:      string(b.Priority),
		Status:        string(b.Status),
		PrevStatus:    prevStatus,
		CustomerName:  b.ContactInfo.Name,
		ScheduledTime: b.ScheduledTime.In(s.loc),
		TotalCost:     b.BilledAmount(),
		Rating:        b.Rating,
		Reason:        reason,
		OccurredAt:    s.now().UTC(),
	})
}
