package model

import "time"

type Announcement struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"not null;size:60" json:"title"`
	Body      string    `gorm:"not null;type:text" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Announcement) TableName() string {
	return "announcements"
}
