package models

import (
	"time"
)

// Service is a catalog entry. Category doubles as the booking service type.
type Service struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Category      string    `json:"category" gorm:"type:varchar(50);index;not null"`
	Name          string    `json:"name" gorm:"type:varchar(200);not null"`
	NameHi        string    `json:"nameHi" gorm:"type:varchar(200)"`
	Description   string    `json:"description" gorm:"type:text"`
	DescriptionHi string    `json:"descriptionHi" gorm:"type:text"`
	BaseCost      float64   `json:"baseCost" gorm:"type:decimal(10,2);not null"`
	IsActive      bool      `json:"isActive" gorm:"default:true"`
	SortOrder     int       `json:"sortOrder" gorm:"default:0"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ServiceRequest represents the request structure for creating/updating services
type ServiceRequest struct {
	Category      string  `json:"category" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	NameHi        string  `json:"nameHi"`
	Description   string  `json:"description"`
	DescriptionHi string  `json:"descriptionHi"`
	BaseCost      float64 `json:"baseCost" binding:"gte=0"`
	IsActive      *bool   `json:"isActive"`
	SortOrder     int     `json:"sortOrder"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}
