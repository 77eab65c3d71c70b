package models

import "time"

type Customer struct {
	ID        uint      `gorm:"primaryKey"         json:"id"`
	Name      string    `gorm:"size:150;not null"  json:"name"`
	Phone     string    `gorm:"size:32"            json:"phone,omitempty"`
	Image     string    `gorm:"size:255"           json:"image,omitempty"`
	UserID    *uint     `gorm:"index"              json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Customer) OwnerUserID() *uint { return c.UserID }
