package app

import (
	"fmt"
	"strings"
	"time"

	"forohub/internal/util"
	"forohub/pkg/auth"
	"forohub/pkg/domain"
	"forohub/pkg/session"
	"forohub/pkg/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	TokenSecret string
	TokenTTL    time.Duration
	TokenIssuer string
	TokenLeeway time.Duration
	Store       store.Store
}

// App is the core application service wiring together storage, password
// checks, and token issuance.
type App struct {
	store store.Store
	codec *session.Codec
}

// New constructs the application with database storage and a token codec.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	codec, err := session.NewCodec(cfg.TokenSecret, session.Options{
		Issuer: cfg.TokenIssuer,
		TTL:    cfg.TokenTTL,
		Leeway: cfg.TokenLeeway,
	})
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	return &App{
		store: dataStore,
		codec: codec,
	}, nil
}

// RegisterStudent creates a new active user with the student role.
func (a *App) RegisterStudent(name, email, password string) (domain.User, error) {
	return a.registerUser(name, email, password, domain.RoleStudent)
}

// RegisterTeacher creates a new active user with the teacher role.
func (a *App) RegisterTeacher(name, email, password string) (domain.User, error) {
	return a.registerUser(name, email, password, domain.RoleTeacher)
}

func (a *App) registerUser(name, email, password string, role domain.UserRole) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return domain.User{}, integrityError(reasonUserFieldsMissing)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, integrityError(reasonEmailTaken)
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		UserName:     name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !user.Active {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.codec.Encode(user.Email, user.Role)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves an active user from a session token.
// Token decode failures pass through as pkg/session sentinel errors so the
// HTTP boundary can distinguish malformed, invalid, and expired tokens.
func (a *App) UserFromToken(token string) (domain.User, error) {
	claims, err := a.codec.Decode(token)
	if err != nil {
		return domain.User{}, err
	}
	user, ok, err := a.store.GetUserByEmail(claims.Subject)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !user.Active {
		return domain.User{}, ErrUnknownTokenSubject
	}
	return user, nil
}

// ListUsersByRole returns a page of active users with the given role,
// ordered by user name.
func (a *App) ListUsersByRole(role domain.UserRole, page, size int) ([]domain.User, int64, error) {
	offset, limit := pageBounds(page, size)
	users, total, err := a.store.ListActiveUsersByRole(role, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// GetStudentByID returns an active student and the courses they are
// enrolled in.
func (a *App) GetStudentByID(id string) (domain.User, []domain.Course, error) {
	user, ok, err := a.store.GetUserByIDAndRole(id, domain.RoleStudent)
	if err != nil {
		return domain.User{}, nil, fmt.Errorf("fetch student: %w", err)
	}
	if !ok {
		return domain.User{}, nil, integrityError(reasonStudentRequired)
	}
	courses, _, err := a.store.ListCoursesByStudent(id, 0, maxPageSize)
	if err != nil {
		return domain.User{}, nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return user, courses, nil
}

// GetTeacherByID returns an active teacher and the courses they teach.
func (a *App) GetTeacherByID(id string) (domain.User, []domain.Course, error) {
	user, ok, err := a.store.GetUserByIDAndRole(id, domain.RoleTeacher)
	if err != nil {
		return domain.User{}, nil, fmt.Errorf("fetch teacher: %w", err)
	}
	if !ok {
		return domain.User{}, nil, integrityError(reasonTeacherRequired)
	}
	courses, _, err := a.store.ListCoursesByTeacher(id, 0, maxPageSize)
	if err != nil {
		return domain.User{}, nil, fmt.Errorf("list taught courses: %w", err)
	}
	return user, courses, nil
}

// UpdatePassword replaces the password of an active user with the given
// role after verifying the current one.
func (a *App) UpdatePassword(email, current, next string, role domain.UserRole) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !user.Active || user.Role != role {
		return domain.User{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(current, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(next); err != nil {
		return domain.User{}, err
	}
	passwordHash, err := auth.HashPassword(next)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// DeactivateUser flips the active flag of a user with the given role.
// Rows are never deleted.
func (a *App) DeactivateUser(id string, role domain.UserRole) error {
	user, ok, err := a.store.GetUserByIDAndRole(id, role)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		if role == domain.RoleTeacher {
			return integrityError(reasonTeacherRequired)
		}
		return integrityError(reasonStudentRequired)
	}
	user.Active = false
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// UserNameByID resolves a user id to its display name for response
// projections. Unknown ids fall back to the id itself.
func (a *App) UserNameByID(id string) string {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil || !ok {
		return id
	}
	return user.UserName
}

// CourseNameByID resolves a course id to its name for response projections.
// Unknown ids fall back to the id itself.
func (a *App) CourseNameByID(id string) string {
	course, ok, err := a.store.GetCourseByID(id)
	if err != nil || !ok {
		return id
	}
	return course.Name
}

// pageBounds converts a zero-based page and size into offset and limit,
// applying the default and the cap.
func pageBounds(page, size int) (offset, limit int) {
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if page < 0 {
		page = 0
	}
	return page * size, size
}
