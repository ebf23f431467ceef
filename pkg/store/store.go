package store

import "forohub/pkg/domain"

// Store defines persistence operations for users, courses, topics, and
// replies. List operations take a zero-based offset and a limit and return
// the total row count alongside the page.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	GetUserByIDAndRole(id string, role domain.UserRole) (domain.User, bool, error)
	ListActiveUsersByRole(role domain.UserRole, offset, limit int) ([]domain.User, int64, error)

	// courses
	SaveCourse(domain.Course) error
	HasCourseName(name string) (bool, error)
	GetCourseByID(id string) (domain.Course, bool, error)
	ListCourses(offset, limit int) ([]domain.Course, int64, error)
	ListCoursesByTeacher(teacherID string, offset, limit int) ([]domain.Course, int64, error)
	ListCoursesByStudent(studentID string, offset, limit int) ([]domain.Course, int64, error)
	// EnrollStudent atomically records the enrollment and bumps the course
	// student count. It reports false when the student was already enrolled,
	// in which case the count is left untouched.
	EnrollStudent(courseID, studentID string) (bool, error)

	// topics
	SaveTopic(domain.Topic) error
	GetTopicByID(id string) (domain.Topic, bool, error)
	ListTopics(resolved *bool, offset, limit int) ([]domain.Topic, int64, error)

	// replies
	SaveReply(domain.Reply) error
	ListRepliesByTopic(topicID string, offset, limit int) ([]domain.Reply, int64, error)
	ListRepliesByAuthor(authorID string, offset, limit int) ([]domain.Reply, int64, error)
	ListRepliesForOpenTopics(offset, limit int) ([]domain.Reply, int64, error)
}
