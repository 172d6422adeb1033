package models

import (
	"time"
)

const (
	NotificationBookingCreated       = "booking_created"
	NotificationBookingStatusChanged = "booking_status_changed"
	NotificationBookingCancelled     = "booking_cancelled"
	NotificationBookingFeedback      = "booking_feedback"
)

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"size:50;not null"`
	Title     string    `json:"title" gorm:"not null"`
	TitleHi   string    `json:"titleHi"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	MessageHi string    `json:"messageHi" gorm:"type:text"`
	BookingID *uint     `json:"bookingId" gorm:"index"`
	Priority  Priority  `json:"priority" gorm:"type:varchar(20);default:'normal'"`
	IsRead    bool      `json:"isRead" gorm:"default:false;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// AdminToken is a push destination registered by an administrator's device.
type AdminToken struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	AdminID   *uint      `json:"adminId" gorm:"index"`
	Token     string     `json:"token" gorm:"size:512;not null;uniqueIndex"`
	Platform  string     `json:"platform" gorm:"size:20"`
	IsActive  bool       `json:"isActive" gorm:"default:true"`
	LastUsed  *time.Time `json:"lastUsed"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (AdminToken) TableName() string {
	return "admin_tokens"
}
