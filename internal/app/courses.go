package app

import (
	"fmt"
	"strings"
	"time"

	"forohub/internal/util"
	"forohub/pkg/domain"
)

// CreateCourse registers a new course owned by an active teacher.
func (a *App) CreateCourse(name string, category domain.CourseCategory, teacherID string) (domain.Course, error) {
	name = strings.TrimSpace(name)
	if name == "" || category == "" {
		return domain.Course{}, integrityError(reasonCourseFieldsMissing)
	}
	if _, ok := domain.ParseCourseCategory(string(category)); !ok {
		return domain.Course{}, integrityError(reasonCourseFieldsMissing)
	}
	_, ok, err := a.store.GetUserByIDAndRole(teacherID, domain.RoleTeacher)
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch teacher: %w", err)
	}
	if !ok {
		return domain.Course{}, integrityError(reasonTeacherRequired)
	}
	taken, err := a.store.HasCourseName(name)
	if err != nil {
		return domain.Course{}, fmt.Errorf("check course name: %w", err)
	}
	if taken {
		return domain.Course{}, integrityError(reasonCourseNameTaken)
	}
	now := time.Now().UTC()
	course := domain.Course{
		ID:        util.NewID(),
		Name:      name,
		Category:  category,
		TeacherID: teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveCourse(course); err != nil {
		return domain.Course{}, fmt.Errorf("save course: %w", err)
	}
	return course, nil
}

// EnrollStudent registers an active student in a course. The enrollment row
// and the student counter move together in one transaction, and a repeat
// enrollment leaves the counter untouched.
func (a *App) EnrollStudent(courseID, studentID string) (domain.Course, error) {
	_, ok, err := a.store.GetUserByIDAndRole(studentID, domain.RoleStudent)
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch student: %w", err)
	}
	if !ok {
		return domain.Course{}, integrityError(reasonStudentRequired)
	}
	if _, ok, err = a.store.GetCourseByID(courseID); err != nil {
		return domain.Course{}, fmt.Errorf("fetch course: %w", err)
	} else if !ok {
		return domain.Course{}, integrityError(reasonCourseRequired)
	}
	enrolled, err := a.store.EnrollStudent(courseID, studentID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("enroll student: %w", err)
	}
	if !enrolled {
		return domain.Course{}, integrityError(reasonAlreadyEnrolled)
	}
	course, ok, err := a.store.GetCourseByID(courseID)
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch course after enrollment: %w", err)
	}
	if !ok {
		return domain.Course{}, integrityError(reasonCourseRequired)
	}
	return course, nil
}

// ListCourses returns a page of courses.
func (a *App) ListCourses(page, size int) ([]domain.Course, int64, error) {
	offset, limit := pageBounds(page, size)
	courses, total, err := a.store.ListCourses(offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

// ListCoursesByUser returns the courses a user is related to. Teachers see
// the courses they teach, students the courses they are enrolled in.
func (a *App) ListCoursesByUser(userID string, page, size int) ([]domain.Course, int64, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !user.Active {
		return nil, 0, integrityError(reasonInvalidUser)
	}
	offset, limit := pageBounds(page, size)
	var (
		courses []domain.Course
		total   int64
	)
	if user.Role == domain.RoleTeacher {
		courses, total, err = a.store.ListCoursesByTeacher(userID, offset, limit)
	} else {
		courses, total, err = a.store.ListCoursesByStudent(userID, offset, limit)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list courses by user: %w", err)
	}
	return courses, total, nil
}
