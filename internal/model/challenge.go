package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChallengeNameMaxLen = 60
	DescriptionMaxLen   = 1500
	FlagMaxLen          = 120
	FileNameMaxLen      = 80
)

type Challenge struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"not null;uniqueIndex;size:60" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Flag        string          `gorm:"not null;size:120" json:"-"`
	Points      int             `gorm:"not null" json:"points"`
	Tags        datatypes.JSON  `json:"tags"`
	Hints       datatypes.JSON  `json:"hints"`
	Files       []ChallengeFile `gorm:"foreignKey:ChallengeID" json:"files"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// ChallengeFile records one distributed file. Key is the file-store key:
// the sha256 hex digest for the local store, an object key for s3.
type ChallengeFile struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ChallengeID int64     `gorm:"not null;index" json:"challengeId"`
	Name        string    `gorm:"not null;size:80" json:"name"`
	Key         string    `gorm:"not null" json:"-"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (ChallengeFile) TableName() string {
	return "challenge_files"
}

// Solve marks a challenge as solved by a team. The (team_id, challenge_id)
// unique index makes the first submission win; duplicates surface as a
// conflict, never as a second row.
type Solve struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;index" json:"userId"`
	TeamID      int64     `gorm:"not null;uniqueIndex:idx_solves_team_challenge" json:"teamId"`
	ChallengeID int64     `gorm:"not null;uniqueIndex:idx_solves_team_challenge" json:"challengeId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Solve) TableName() string {
	return "solves"
}
