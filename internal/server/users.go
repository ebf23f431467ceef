package server

import (
	"net/http"

	"forohub/pkg/domain"
)

// passwordAliases accepts the password field under its English name and
// both Spanish spellings the original API contract allowed.
type passwordAliases struct {
	Password        string `json:"password"`
	Contrasena      string `json:"contrasena"`
	ContrasenaTilde string `json:"contraseña"`
}

func (p passwordAliases) password() string {
	if p.Password != "" {
		return p.Password
	}
	if p.Contrasena != "" {
		return p.Contrasena
	}
	return p.ContrasenaTilde
}

type loginRequest struct {
	Email string `json:"email"`
	passwordAliases
}

type registerUserRequest struct {
	UserName string `json:"user_name"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	passwordAliases
}

func (r registerUserRequest) name() string {
	if r.UserName != "" {
		return r.UserName
	}
	return r.Nombre
}

type updatePasswordRequest struct {
	Email            string `json:"email"`
	ContrasenaActual string `json:"contrasena_actual"`
	ContrasenaNueva  string `json:"contrasena_nueva"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "Demasiados intentos de inicio de sesión") {
		s.audit(r, "forohub.login", "rate_limited")
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		s.audit(r, "forohub.login", "fail", "reason", "invalid_json")
		return
	}
	user, token, err := s.app.Login(req.Email, req.password())
	if err != nil {
		s.audit(r, "forohub.login", "fail", "reason", "invalid_credentials")
		writeAppError(w, err)
		return
	}
	s.audit(r, "forohub.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	s.handleUsers(w, r, domain.RoleStudent)
}

func (s *Server) handleTeachers(w http.ResponseWriter, r *http.Request) {
	s.handleUsers(w, r, domain.RoleTeacher)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request, role domain.UserRole) {
	switch r.Method {
	case http.MethodPost:
		s.registerUser(w, r, role)
	case http.MethodGet:
		page, size := parsePage(r)
		users, total, err := s.app.ListUsersByRole(role, page, size)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{
			Items: toUserResponses(users),
			Page:  page,
			Size:  size,
			Total: total,
		})
	case http.MethodPut:
		var req updatePasswordRequest
		if !decodeBody(w, r, &req) {
			return
		}
		user, err := s.app.UpdatePassword(req.Email, req.ContrasenaActual, req.ContrasenaNueva, role)
		if err != nil {
			s.audit(r, "forohub.password.change", "fail")
			writeAppError(w, err)
			return
		}
		s.audit(r, "forohub.password.change", "success", "user_id", user.ID)
		writeJSON(w, http.StatusOK, toUserResponse(user))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request, role domain.UserRole) {
	if !s.allowRate(w, r, s.signupLimiter, "Demasiados intentos de registro") {
		s.audit(r, "forohub.signup", "rate_limited")
		return
	}
	var req registerUserRequest
	if !decodeBody(w, r, &req) {
		s.audit(r, "forohub.signup", "fail", "reason", "invalid_json")
		return
	}
	var (
		user domain.User
		err  error
	)
	if role == domain.RoleTeacher {
		user, err = s.app.RegisterTeacher(req.name(), req.Email, req.password())
	} else {
		user, err = s.app.RegisterStudent(req.name(), req.Email, req.password())
	}
	if err != nil {
		s.audit(r, "forohub.signup", "fail")
		writeAppError(w, err)
		return
	}
	s.audit(r, "forohub.signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleStudentByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSuffix(r, "/estudiantes/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, courses, err := s.app.GetStudentByID(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, userDetailResponse{
			userResponse: toUserResponse(user),
			Cursos:       s.toCourseResponses(courses),
		})
	case http.MethodDelete:
		if err := s.app.DeactivateUser(id, domain.RoleStudent); err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "forohub.user.deactivate", "success", "user_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTeacherByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSuffix(r, "/docentes/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, courses, err := s.app.GetTeacherByID(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, userDetailResponse{
			userResponse: toUserResponse(user),
			Cursos:       s.toCourseResponses(courses),
		})
	case http.MethodDelete:
		if err := s.app.DeactivateUser(id, domain.RoleTeacher); err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "forohub.user.deactivate", "success", "user_id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}
