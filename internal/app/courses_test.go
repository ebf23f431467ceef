package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"forohub/pkg/domain"
	"forohub/pkg/store"
)

func TestCreateCourseRequiresTeacherRole(t *testing.T) {
	a := newTestApp(t)
	student := registerStudent(t, a, "Ana", "ana@foro.com")

	var integrity *IntegrityError
	if _, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, student.ID); !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if integrity.Reason != "Ingrese un usuario con el rol 'Docente'" {
		t.Fatalf("reason = %q", integrity.Reason)
	}
	if _, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, "no-such-user"); !errors.As(err, &integrity) {
		t.Fatalf("unknown teacher id: got %v", err)
	}
}

func TestCreateCourseRejectsDuplicateName(t *testing.T) {
	a := newTestApp(t)
	teacher := registerTeacher(t, a, "Pedro", "pedro@foro.com")
	if _, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, teacher.ID); err != nil {
		t.Fatalf("create course: %v", err)
	}

	var integrity *IntegrityError
	if _, err := a.CreateCourse("Go desde cero", domain.CategoryFrontend, teacher.ID); !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if integrity.Reason != "El nombre del curso ya está en uso" {
		t.Fatalf("reason = %q", integrity.Reason)
	}
}

func TestCreateCourseRejectsUnknownCategory(t *testing.T) {
	a := newTestApp(t)
	teacher := registerTeacher(t, a, "Pedro", "pedro@foro.com")

	var integrity *IntegrityError
	if _, err := a.CreateCourse("Go desde cero", domain.CourseCategory("MOBILE"), teacher.ID); !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}

func TestEnrollStudent(t *testing.T) {
	a := newTestApp(t)
	teacher := registerTeacher(t, a, "Pedro", "pedro@foro.com")
	student := registerStudent(t, a, "Ana", "ana@foro.com")
	course, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, teacher.ID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	enrolled, err := a.EnrollStudent(course.ID, student.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if enrolled.StudentCount != 1 {
		t.Fatalf("student count = %d, want 1", enrolled.StudentCount)
	}

	var integrity *IntegrityError
	if _, err := a.EnrollStudent(course.ID, student.ID); !errors.As(err, &integrity) {
		t.Fatalf("repeat enrollment: got %v", err)
	}
	refreshed, _, err := a.ListCourses(0, 10)
	if err != nil || refreshed[0].StudentCount != 1 {
		t.Fatalf("count after repeat = %+v, %v", refreshed, err)
	}

	if _, err := a.EnrollStudent(course.ID, teacher.ID); !errors.As(err, &integrity) {
		t.Fatalf("teacher as student: got %v", err)
	}
	if integrity.Reason != "Ingrese un estudiante válido" {
		t.Fatalf("reason = %q", integrity.Reason)
	}
	if _, err := a.EnrollStudent("no-such-course", student.ID); !errors.As(err, &integrity) {
		t.Fatalf("unknown course: got %v", err)
	}
	if integrity.Reason != "Ingrese un curso válido" {
		t.Fatalf("reason = %q", integrity.Reason)
	}
}

func TestEnrollStudentConcurrentAttemptsDoNotDoubleCount(t *testing.T) {
	a := newTestApp(t)
	teacher := registerTeacher(t, a, "Pedro", "pedro@foro.com")
	course, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, teacher.ID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	const students = 8
	ids := make([]string, students)
	for i := range ids {
		ids[i] = registerStudent(t, a, fmt.Sprintf("Estudiante %d", i), fmt.Sprintf("est%d@foro.com", i)).ID
	}

	// Several goroutines race to enroll each student; only one attempt per
	// student may bump the counter.
	var wg sync.WaitGroup
	for _, id := range ids {
		for attempt := 0; attempt < 4; attempt++ {
			wg.Add(1)
			go func(studentID string) {
				defer wg.Done()
				_, _ = a.EnrollStudent(course.ID, studentID)
			}(id)
		}
	}
	wg.Wait()

	courses, _, err := a.ListCourses(0, 10)
	if err != nil || len(courses) != 1 {
		t.Fatalf("list courses = %+v, %v", courses, err)
	}
	if courses[0].StudentCount != students {
		t.Fatalf("student count = %d, want %d", courses[0].StudentCount, students)
	}
	enrolled, total, err := a.ListCoursesByUser(ids[0], 0, 10)
	if err != nil || total != 1 || len(enrolled) != 1 {
		t.Fatalf("student enrollment = %+v, %d, %v", enrolled, total, err)
	}
}

// vanishingCourseStore drops the course after the enrollment row lands so
// the re-fetch inside EnrollStudent comes back empty.
type vanishingCourseStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	enrolled bool
}

func (s *vanishingCourseStore) EnrollStudent(courseID, studentID string) (bool, error) {
	ok, err := s.MemoryStore.EnrollStudent(courseID, studentID)
	s.mu.Lock()
	s.enrolled = true
	s.mu.Unlock()
	return ok, err
}

func (s *vanishingCourseStore) GetCourseByID(id string) (domain.Course, bool, error) {
	s.mu.Lock()
	gone := s.enrolled
	s.mu.Unlock()
	if gone {
		return domain.Course{}, false, nil
	}
	return s.MemoryStore.GetCourseByID(id)
}

func TestEnrollStudentCourseGoneOnRefetch(t *testing.T) {
	vanishing := &vanishingCourseStore{MemoryStore: store.NewMemoryStore()}
	a, err := New(Config{
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
		Store:       vanishing,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	teacher := registerTeacher(t, a, "Pedro", "pedro@foro.com")
	student := registerStudent(t, a, "Ana", "ana@foro.com")
	course, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, teacher.ID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	var integrity *IntegrityError
	if _, err := a.EnrollStudent(course.ID, student.ID); !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError for vanished course, got %v", err)
	}
}

func TestListCoursesByUser(t *testing.T) {
	a := newTestApp(t)
	teacher := registerTeacher(t, a, "Pedro", "pedro@foro.com")
	other := registerTeacher(t, a, "Laura", "laura@foro.com")
	student := registerStudent(t, a, "Ana", "ana@foro.com")

	mine, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, teacher.ID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	theirs, err := a.CreateCourse("CSS avanzado", domain.CategoryFrontend, other.ID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if _, err := a.EnrollStudent(theirs.ID, student.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	taught, total, err := a.ListCoursesByUser(teacher.ID, 0, 10)
	if err != nil || total != 1 || taught[0].ID != mine.ID {
		t.Fatalf("teacher view = %+v, %d, %v", taught, total, err)
	}
	enrolled, total, err := a.ListCoursesByUser(student.ID, 0, 10)
	if err != nil || total != 1 || enrolled[0].ID != theirs.ID {
		t.Fatalf("student view = %+v, %d, %v", enrolled, total, err)
	}

	var integrity *IntegrityError
	if _, _, err := a.ListCoursesByUser("no-such-user", 0, 10); !errors.As(err, &integrity) {
		t.Fatalf("unknown user: got %v", err)
	}
}
