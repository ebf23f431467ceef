package server

import (
	"net/http"

	"forohub/pkg/domain"
)

type createCourseRequest struct {
	Nombre    string `json:"nombre"`
	Categoria string `json:"categoria"`
	DocenteID string `json:"docente_id"`
}

type enrollRequest struct {
	CursoID      string `json:"curso_id"`
	EstudianteID string `json:"estudiante_id"`
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createCourseRequest
		if !decodeBody(w, r, &req) {
			return
		}
		course, err := s.app.CreateCourse(req.Nombre, domain.CourseCategory(req.Categoria), req.DocenteID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.toCourseResponse(course))
	case http.MethodGet:
		page, size := parsePage(r)
		courses, total, err := s.app.ListCourses(page, size)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{
			Items: s.toCourseResponses(courses),
			Page:  page,
			Size:  size,
			Total: total,
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleEnrollment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req enrollRequest
	if !decodeBody(w, r, &req) {
		return
	}
	course, err := s.app.EnrollStudent(req.CursoID, req.EstudianteID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toCourseResponse(course))
}

func (s *Server) handleCoursesByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := pathSuffix(r, "/cursos/usuario/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, size := parsePage(r)
	courses, total, err := s.app.ListCoursesByUser(id, page, size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items: s.toCourseResponses(courses),
		Page:  page,
		Size:  size,
		Total: total,
	})
}
