package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	PlanTierFree  = "free"
	PlanTierBasic = "basic"
	PlanTierPro   = "pro"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Username  string         `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Credits   int            `gorm:"default:0" json:"credits"`
	PlanTier  string         `gorm:"size:20;default:free" json:"plan_tier"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
