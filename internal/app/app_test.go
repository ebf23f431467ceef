package app

import (
	"errors"
	"testing"
	"time"

	"forohub/pkg/domain"
	"forohub/pkg/session"
	"forohub/pkg/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
		Store:       store.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func registerStudent(t *testing.T, a *App, name, email string) domain.User {
	t.Helper()
	user, err := a.RegisterStudent(name, email, "correct-horse")
	if err != nil {
		t.Fatalf("register student %s: %v", email, err)
	}
	return user
}

func registerTeacher(t *testing.T, a *App, name, email string) domain.User {
	t.Helper()
	user, err := a.RegisterTeacher(name, email, "correct-horse")
	if err != nil {
		t.Fatalf("register teacher %s: %v", email, err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestApp(t)

	user := registerStudent(t, a, "Ana", "Ana@Foro.com")
	if user.Email != "ana@foro.com" {
		t.Fatalf("email = %q, want normalized lowercase", user.Email)
	}
	if user.Role != domain.RoleStudent || !user.Active {
		t.Fatalf("unexpected user state: %+v", user)
	}
	if user.PasswordHash == "correct-horse" {
		t.Fatalf("password stored in plaintext")
	}

	loggedIn, token, err := a.Login("ana@foro.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID || token == "" {
		t.Fatalf("login = %+v, token %q", loggedIn, token)
	}

	resolved, err := a.UserFromToken(token)
	if err != nil {
		t.Fatalf("user from token: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("resolved user = %+v, want %s", resolved, user.ID)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	a := newTestApp(t)
	registerStudent(t, a, "Ana", "ana@foro.com")

	_, err := a.RegisterTeacher("Otra Ana", "ana@foro.com", "correct-horse")
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	a := newTestApp(t)
	for _, tc := range []struct{ name, email, password string }{
		{"", "ana@foro.com", "correct-horse"},
		{"Ana", "", "correct-horse"},
		{"Ana", "ana@foro.com", ""},
	} {
		var integrity *IntegrityError
		if _, err := a.RegisterStudent(tc.name, tc.email, tc.password); !errors.As(err, &integrity) {
			t.Fatalf("register %+v: expected IntegrityError, got %v", tc, err)
		}
	}
}

func TestLoginFailuresShareOneError(t *testing.T) {
	a := newTestApp(t)
	user := registerStudent(t, a, "Ana", "ana@foro.com")

	if _, _, err := a.Login("nadie@foro.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, _, err := a.Login("ana@foro.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if err := a.DeactivateUser(user.ID, domain.RoleStudent); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := a.Login("ana@foro.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive user: got %v", err)
	}
}

func TestUserFromTokenRejectsDeactivatedUser(t *testing.T) {
	a := newTestApp(t)
	user := registerStudent(t, a, "Ana", "ana@foro.com")
	_, token, err := a.Login("ana@foro.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := a.DeactivateUser(user.ID, domain.RoleStudent); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := a.UserFromToken(token); !errors.Is(err, ErrUnknownTokenSubject) {
		t.Fatalf("expected ErrUnknownTokenSubject, got %v", err)
	}
}

func TestUserFromTokenPassesThroughDecodeErrors(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.UserFromToken("not-a-token"); !errors.Is(err, session.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestListUsersByRoleSkipsInactive(t *testing.T) {
	a := newTestApp(t)
	registerStudent(t, a, "Zoe", "zoe@foro.com")
	ana := registerStudent(t, a, "Ana", "ana@foro.com")
	registerTeacher(t, a, "Pedro", "pedro@foro.com")
	if err := a.DeactivateUser(ana.ID, domain.RoleStudent); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	students, total, err := a.ListUsersByRole(domain.RoleStudent, 0, 10)
	if err != nil {
		t.Fatalf("list students: %v", err)
	}
	if total != 1 || len(students) != 1 || students[0].UserName != "Zoe" {
		t.Fatalf("students = %+v, total %d", students, total)
	}
}

func TestUpdatePassword(t *testing.T) {
	a := newTestApp(t)
	registerStudent(t, a, "Ana", "ana@foro.com")

	if _, err := a.UpdatePassword("ana@foro.com", "wrong-password", "new-password-1", domain.RoleStudent); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: got %v", err)
	}
	if _, err := a.UpdatePassword("ana@foro.com", "correct-horse", "new-password-1", domain.RoleTeacher); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("role mismatch: got %v", err)
	}
	if _, err := a.UpdatePassword("ana@foro.com", "correct-horse", "new-password-1", domain.RoleStudent); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, _, err := a.Login("ana@foro.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted")
	}
	if _, _, err := a.Login("ana@foro.com", "new-password-1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestGetStudentAndTeacherByID(t *testing.T) {
	a := newTestApp(t)
	teacher := registerTeacher(t, a, "Pedro", "pedro@foro.com")
	student := registerStudent(t, a, "Ana", "ana@foro.com")
	course, err := a.CreateCourse("Go desde cero", domain.CategoryBackend, teacher.ID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if _, err := a.EnrollStudent(course.ID, student.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	got, enrolled, err := a.GetStudentByID(student.ID)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if got.ID != student.ID || len(enrolled) != 1 || enrolled[0].ID != course.ID {
		t.Fatalf("student projection = %+v, courses %+v", got, enrolled)
	}

	_, taught, err := a.GetTeacherByID(teacher.ID)
	if err != nil {
		t.Fatalf("get teacher: %v", err)
	}
	if len(taught) != 1 || taught[0].ID != course.ID {
		t.Fatalf("teacher courses = %+v", taught)
	}

	var integrity *IntegrityError
	if _, _, err := a.GetStudentByID(teacher.ID); !errors.As(err, &integrity) {
		t.Fatalf("teacher id on student lookup: got %v", err)
	}
}
