package domain

import "time"

type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
)

type CourseCategory string

const (
	CategoryBackend  CourseCategory = "BACKEND"
	CategoryFrontend CourseCategory = "FRONTEND"
	CategoryDevOps   CourseCategory = "DEVOPS"
)

type User struct {
	ID           string    `json:"id"`
	UserName     string    `json:"userName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Course struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Category     CourseCategory `json:"category"`
	TeacherID    string         `json:"teacherId"`
	StudentCount int            `json:"studentCount"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type Topic struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	AuthorID  string    `json:"authorId"`
	CourseID  string    `json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reply is immutable once created; there is no update path.
type Reply struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topicId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Enrollment links a student to a course. The (CourseID, StudentID) pair is
// unique so concurrent enrollments cannot double-count.
type Enrollment struct {
	CourseID  string    `json:"courseId"`
	StudentID string    `json:"studentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParseUserRole maps external role input onto the two-valued role enum.
func ParseUserRole(role string) (UserRole, bool) {
	switch UserRole(role) {
	case RoleStudent:
		return RoleStudent, true
	case RoleTeacher:
		return RoleTeacher, true
	default:
		return "", false
	}
}

// ParseCourseCategory validates a course category value.
func ParseCourseCategory(category string) (CourseCategory, bool) {
	switch CourseCategory(category) {
	case CategoryBackend:
		return CategoryBackend, true
	case CategoryFrontend:
		return CategoryFrontend, true
	case CategoryDevOps:
		return CategoryDevOps, true
	default:
		return "", false
	}
}
