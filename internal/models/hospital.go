package models

import "time"

// Hospital is a hospital account that manages blood requests and owns inventory.
type Hospital struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:60;uniqueIndex;not null" json:"username"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Password  string    `gorm:"not null" json:"-"`
	City      string    `gorm:"size:80" json:"city"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminUser is a console administrator account that manages hospital accounts.
type AdminUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:60;uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
