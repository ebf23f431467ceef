package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	UserName     string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;index"`
	Active       bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type CourseModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"uniqueIndex;not null"`
	Category     string    `gorm:"not null"`
	TeacherID    string    `gorm:"not null;index"`
	StudentCount int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// EnrollmentModel uses a composite primary key so the same student cannot
// be enrolled in the same course twice.
type EnrollmentModel struct {
	CourseID  string    `gorm:"primaryKey"`
	StudentID string    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type TopicModel struct {
	ID        string    `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Message   string    `gorm:"type:text;not null"`
	Resolved  bool      `gorm:"not null;index"`
	AuthorID  string    `gorm:"not null;index"`
	CourseID  string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type ReplyModel struct {
	ID        string    `gorm:"primaryKey"`
	TopicID   string    `gorm:"not null;index"`
	AuthorID  string    `gorm:"not null;index"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
