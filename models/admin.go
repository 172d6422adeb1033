package models

import (
	"time"
)

type Admin struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Name         string     `json:"name" gorm:"size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	IsActive     bool       `json:"isActive" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Admin model
func (Admin) TableName() string {
	return "admins"
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Admin{},
		&Customer{},
		&Service{},
		&Booking{},
		&Notification{},
		&AdminToken{},
	}
}
