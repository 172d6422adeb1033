package models

import (
	"time"
)

// Customer is the single record for a person who books services. Bookings
// keep a ContactInfo snapshot of what was entered at booking time.
type Customer struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Phone     string    `json:"phone" gorm:"size:20;uniqueIndex;not null"`
	Email     string    `json:"email,omitempty" gorm:"size:255"`
	Address   string    `json:"address" gorm:"size:500"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Bookings []Booking `json:"bookings,omitempty" gorm:"foreignKey:CustomerID"`
}

func (Customer) TableName() string {
	return "customers"
}
