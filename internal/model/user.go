package model

import "time"

// Field length limits enforced at the request boundary. PasswordMaxLen is
// checked before hashing: bcrypt silently truncates input beyond 72 bytes,
// so longer passwords must never reach the hasher.
const (
	UsernameMaxLen = 25
	EmailMaxLen    = 50
	PasswordMaxLen = 70
)

type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"not null;uniqueIndex;size:25" json:"username"`
	Email     string    `gorm:"not null;uniqueIndex;size:50" json:"email"`
	PassHash  string    `gorm:"not null" json:"-"`
	Admin     bool      `gorm:"default:false" json:"admin"`
	TeamID    *int64    `gorm:"index" json:"teamId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
