package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"forohub/internal/app"
	"forohub/internal/ratelimit"
	"forohub/internal/util"
	"forohub/pkg/auth"
	"forohub/pkg/domain"
	"forohub/pkg/session"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	RedisAddr                string
	RedisPassword            string
	LoginRateLimitPerMinute  int
	SignupRateLimitPerMinute int
	TrustedProxies           *util.TrustedProxies
}

// Server exposes the forum HTTP endpoints.
type Server struct {
	app           *app.App
	mux           *http.ServeMux
	trusted       *util.TrustedProxies
	loginLimiter  *ratelimit.FixedWindowLimiter
	signupLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. Rate limiting is
// active only when a Redis address is supplied.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app:     cfg.App,
		mux:     http.NewServeMux(),
		trusted: cfg.TrustedProxies,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		loginLimit := cfg.LoginRateLimitPerMinute
		if loginLimit <= 0 {
			loginLimit = 10
		}
		signupLimit := cfg.SignupRateLimitPerMinute
		if signupLimit <= 0 {
			signupLimit = 5
		}
		newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
			prefix := "forohub:ratelimit:" + name
			limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
			if err != nil {
				return nil, fmt.Errorf("init %s limiter: %w", name, err)
			}
			return limiter, nil
		}
		var err error
		if s.loginLimiter, err = newLimiter("login", loginLimit); err != nil {
			return nil, err
		}
		if s.signupLimiter, err = newLimiter("signup", signupLimit); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Router returns the full middleware chain around the mux.
func (s *Server) Router() http.Handler {
	handler := s.requestGate(s.mux)
	handler = util.WithSecurityHeaders(handler)
	handler = util.WithCORS(handler)
	handler = util.WithRequestLog(handler)
	handler = util.WithRequestID(handler)
	return handler
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/login", s.handleLogin)

	s.mux.HandleFunc("/estudiantes", s.handleStudents)
	s.mux.HandleFunc("/estudiantes/", s.handleStudentByID)
	s.mux.HandleFunc("/docentes", s.handleTeachers)
	s.mux.HandleFunc("/docentes/", s.handleTeacherByID)

	s.mux.HandleFunc("/cursos", s.handleCourses)
	s.mux.HandleFunc("/cursos/registrar", s.handleEnrollment)
	s.mux.HandleFunc("/cursos/usuario/", s.handleCoursesByUser)

	s.mux.HandleFunc("/topicos", s.handleTopics)
	s.mux.HandleFunc("/topicos/all", s.handleAllTopics)
	s.mux.HandleFunc("/topicos/", s.handleTopicsByStatus)

	s.mux.HandleFunc("/respuestas", s.handleReplies)
	s.mux.HandleFunc("/respuestas/autor/", s.handleRepliesByAuthor)
	s.mux.HandleFunc("/respuestas/topico/", s.handleRepliesByTopic)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestGate authenticates every request except the public allow-list.
// The resolved caller is stored in the request context; the gate itself
// never mutates state.
func (s *Server) requestGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRoute(r) {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "forohub.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "Debe ingresar un token")
			return
		}
		user, err := s.app.UserFromToken(token)
		if err != nil {
			s.audit(r, "forohub.authorize", "fail", "reason", gateFailReason(err))
			writeError(w, http.StatusUnauthorized, gateFailMessage(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
	})
}

func isPublicRoute(r *http.Request) bool {
	if r.URL.Path == "/healthz" {
		return true
	}
	if r.Method != http.MethodPost {
		return false
	}
	switch r.URL.Path {
	case "/login", "/estudiantes", "/docentes":
		return true
	}
	return false
}

func gateFailReason(err error) string {
	switch {
	case errors.Is(err, session.ErrExpired):
		return "token_expired"
	case errors.Is(err, session.ErrMalformed):
		return "token_malformed"
	case errors.Is(err, session.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, app.ErrUnknownTokenSubject):
		return "unknown_subject"
	default:
		return "invalid_token"
	}
}

func gateFailMessage(err error) string {
	if errors.Is(err, session.ErrExpired) {
		return "El token ha expirado"
	}
	return "El token ingresado no es válido"
}

type userContextKey struct{}

func contextWithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func userFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.User)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

// writeAppError maps service-layer failures onto the response contract:
// integrity violations and weak passwords are 400 with the user-facing
// reason, credential failures are 401, everything else is a 500.
func writeAppError(w http.ResponseWriter, err error) {
	var integrity *app.IntegrityError
	switch {
	case errors.As(err, &integrity):
		writeError(w, http.StatusBadRequest, integrity.Reason)
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parsePage reads the page and size query params. Page is zero based;
// size defaults to 10 and is capped by the service layer.
func parsePage(r *http.Request) (page, size int) {
	page = 0
	size = 10
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			page = n
		}
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	return page, size
}

func pathSuffix(r *http.Request, prefix string) (string, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
