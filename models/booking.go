package models

import (
	"time"
)

type Booking struct {
	ID                 uint          `json:"id" gorm:"primaryKey"`
	BookingNumber      string        `json:"bookingNumber" gorm:"size:40;uniqueIndex;not null"`
	CustomerID         uint          `json:"customerId" gorm:"index;not null"`
	ServiceType        string        `json:"serviceType" gorm:"size:50;index;not null"`
	Priority           Priority      `json:"priority" gorm:"type:varchar(20);default:'normal';not null"`
	Description        string        `json:"description" gorm:"type:text;not null"`
	ContactInfo        ContactInfo   `json:"contactInfo" gorm:"not null"`
	ScheduledTime      time.Time     `json:"scheduledTime" gorm:"not null"`
	Status             BookingStatus `json:"status" gorm:"type:varchar(20);default:'pending';index;not null"`
	TotalCost          float64       `json:"totalCost" gorm:"type:decimal(10,2);not null"`
	ActualCost         *float64      `json:"actualCost" gorm:"type:decimal(10,2)"`
	Rating             *int          `json:"rating" gorm:"type:int;check:rating >= 1 AND rating <= 5"`
	Review             *string       `json:"review" gorm:"type:text"`
	CancellationReason *string       `json:"cancellationReason" gorm:"size:500"`
	AdminNotes         string        `json:"adminNotes,omitempty" gorm:"type:text"`
	Photos             StringList    `json:"photos"`
	CreatedAt          time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt          time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
	CompletedAt        *time.Time    `json:"completedAt"`
	CancelledAt        *time.Time    `json:"cancelledAt"`

	Customer *Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// BilledAmount is the final amount when known, otherwise the estimate.
func (b *Booking) BilledAmount() float64 {
	if b.ActualCost != nil {
		return *b.ActualCost
	}
	return b.TotalCost
}
