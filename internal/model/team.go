package model

import "time"

const TeamNameMaxLen = 30

// Team is a scoring unit. PassHash is the hashed join password, not a
// login credential: teams never authenticate, members do.
type Team struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex;size:30" json:"name"`
	PassHash  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Team) TableName() string {
	return "teams"
}
