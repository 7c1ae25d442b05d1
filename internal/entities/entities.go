package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	PublicID     string         `gorm:"uniqueIndex;size:36" json:"public_id"`
	Username     string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string         `gorm:"size:100" json:"-"`
	TokenHash    string         `gorm:"index;size:64" json:"-"` // API token hash, hidden from JSON
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns a public UUID so external callers never see the
// numeric primary key.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID == "" {
		u.PublicID = uuid.NewString()
	}
	return nil
}

// ReputationRecord is the per-user points-and-level aggregate. The unique
// index on UserID is what makes the create-or-get race detectable: exactly
// one concurrent insert for the same user can succeed.
type ReputationRecord struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	UserID uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	User   User  `gorm:"foreignKey:UserID" json:"-"`
	Points int64 `gorm:"not null;default:0" json:"points"`
	Level  int   `gorm:"not null;default:1" json:"level"`

	// Zero value means no reading award has ever been granted.
	LastReadingAwardAt time.Time `json:"last_reading_award_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadingLogEntry is one append-only record of a reading session report.
// Entries are written whether or not the session earned points.
type ReadingLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	BookID    uint      `gorm:"index;not null" json:"book_id"`
	PagesRead int       `gorm:"not null" json:"pages_read"`
	ReadAt    time.Time `gorm:"index;not null" json:"read_at"`
}

func (User) TableName() string {
	return "users"
}

func (ReputationRecord) TableName() string {
	return "reputation_records"
}

func (ReadingLogEntry) TableName() string {
	return "reading_log_entries"
}
