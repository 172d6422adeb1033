package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"local-services-server/metrics"
	"local-services-server/models"
)

// Broadcaster pushes a typed message to connected admin dashboards.
type Broadcaster interface {
	BroadcastJSON(msgType string, data interface{})
}

// Notifier receives lifecycle events from the booking service.
type Notifier interface {
	Enqueue(ev BookingEvent)
}

type NotificationService struct {
	db            *gorm.DB
	push          PushSender
	publisher     EventPublisher
	subjectPrefix string
	broadcaster   Broadcaster
	logger        zerolog.Logger

	queue    chan BookingEvent
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type NotificationOptions struct {
	Push          PushSender
	Publisher     EventPublisher
	SubjectPrefix string
	Broadcaster   Broadcaster
	QueueSize     int
}

func NewNotificationService(db *gorm.DB, opts NotificationOptions, logger zerolog.Logger) *NotificationService {
	if opts.Push == nil {
		opts.Push = LogSender{Logger: logger}
	}
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	return &NotificationService{
		db:            db,
		push:          opts.Push,
		publisher:     opts.Publisher,
		subjectPrefix: opts.SubjectPrefix,
		broadcaster:   opts.Broadcaster,
		logger:        logger.With().Str("component", "notifications").Logger(),
		queue:         make(chan BookingEvent, opts.QueueSize),
	}
}

// Start runs the fan-out worker until Stop is called.
func (s *NotificationService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.queue {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.Dispatch(ctx, ev)
			cancel()
		}
	}()
	s.logger.Info().Msg("🚀 Notification worker started")
}

// Stop drains queued events and waits for the worker.
func (s *NotificationService) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
		s.wg.Wait()
		s.logger.Info().Msg("🛑 Notification worker stopped")
	})
}

// Enqueue never blocks; a full or stopped queue drops the event.
func (s *NotificationService) Enqueue(ev BookingEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn().Str("kind", ev.Kind).Str("booking_number", ev.BookingNumber).Msg("⚠️ notification worker stopped, dropping event")
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.logger.Warn().Str("kind", ev.Kind).Str("booking_number", ev.BookingNumber).Msg("⚠️ notification queue is full, dropping event")
	}
}

// Dispatch stores the in-app notification and fans it out to every channel.
// Failures are logged and never returned.
func (s *NotificationService) Dispatch(ctx context.Context, ev BookingEvent) {
	content := composeNotification(ev)
	bookingID := ev.BookingID

	notification := models.Notification{
		Type:      ev.Kind,
		Title:     content.Title,
		TitleHi:   content.TitleHi,
		Message:   content.Message,
		MessageHi: content.MessageHi,
		BookingID: &bookingID,
		Priority:  models.Priority(ev.Priority),
	}
	if !notification.Priority.IsValid() {
		notification.Priority = models.PriorityNormal
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		s.logger.Error().Err(err).Str("booking_number", ev.BookingNumber).Msg("❌ Error creating notification record")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastJSON("notification", notification)
	}

	if err := publishBookingEvent(ctx, s.publisher, s.subjectPrefix, ev); err != nil {
		s.logger.Error().Err(err).Str("kind", ev.Kind).Msg("❌ Error publishing booking event")
	}

	s.sendPush(ctx, ev, content)
}

func (s *NotificationService) sendPush(ctx context.Context, ev BookingEvent, content notificationContent) {
	var tokens []models.AdminToken
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&tokens).Error; err != nil {
		s.logger.Error().Err(err).Msg("❌ Error fetching admin push tokens")
		return
	}
	if len(tokens) == 0 {
		s.logger.Debug().Msg("no active admin push tokens")
		return
	}

	priority := "normal"
	if ev.Priority == string(models.PriorityEmergency) || ev.Priority == string(models.PriorityUrgent) {
		priority = "high"
	}
	data := map[string]string{
		"type":          ev.Kind,
		"bookingId":     strconv.FormatUint(uint64(ev.BookingID), 10),
		"bookingNumber": ev.BookingNumber,
		"status":        ev.Status,
		"titleHi":       content.TitleHi,
		"messageHi":     content.MessageHi,
	}

	sent := 0
	for _, token := range tokens {
		err := s.push.Send(ctx, PushMessage{
			Token:    token.Token,
			Title:    content.Title,
			Body:     content.Message,
			Priority: priority,
			Data:     data,
		})
		switch {
		case err == nil:
			sent++
			metrics.IncPushDelivery("sent")
			now := time.Now()
			if uerr := s.db.WithContext(ctx).Model(&models.AdminToken{}).Where("id = ?", token.ID).Update("last_used", &now).Error; uerr != nil {
				s.logger.Warn().Err(uerr).Uint("token_id", token.ID).Msg("failed to update token last_used")
			}
		case errors.Is(err, ErrInvalidToken):
			metrics.IncPushDelivery("invalid_token")
			s.logger.Warn().Uint("token_id", token.ID).Msg("deactivating invalid push token")
			if uerr := s.db.WithContext(ctx).Model(&models.AdminToken{}).Where("id = ?", token.ID).Update("is_active", false).Error; uerr != nil {
				s.logger.Error().Err(uerr).Uint("token_id", token.ID).Msg("❌ failed to deactivate push token")
			}
		default:
			metrics.IncPushDelivery("failed")
			s.logger.Error().Err(err).Uint("token_id", token.ID).Msg("❌ Error sending push notification")
		}
	}

	s.logger.Info().Int("sent", sent).Int("tokens", len(tokens)).Str("booking_number", ev.BookingNumber).Msg("📊 Push notification summary")
}

// RegisterToken stores a device token, reactivating it when already known.
func (s *NotificationService) RegisterToken(ctx context.Context, adminID *uint, token, platform string) (*models.AdminToken, error) {
	if token == "" {
		return nil, ValidationError{Field: "token", Msg: "is required"}
	}

	var existing models.AdminToken
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := models.AdminToken{AdminID: adminID, Token: token, Platform: platform, IsActive: true}
		if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
			return nil, fmt.Errorf("create push token: %w", err)
		}
		s.logger.Info().Uint("token_id", created.ID).Msg("✅ Push token registered")
		return &created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find push token: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"admin_id":  adminID,
		"platform":  platform,
		"is_active": true,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update push token: %w", err)
	}
	existing.AdminID = adminID
	existing.Platform = platform
	existing.IsActive = true
	s.logger.Info().Uint("token_id", existing.ID).Msg("✅ Push token updated")
	return &existing, nil
}

func (s *NotificationService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	limit, offset = normalizePage(limit, offset, 50)

	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFoundError{Resource: "notification"}
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).Where("is_read = ?", false).Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// PurgeOlderThan deletes read notifications created before cutoff.
func (s *NotificationService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("is_read = ? AND created_at < ?", true, cutoff).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}
