package server

import (
	"time"

	"forohub/pkg/domain"
)

// Response projections keep the API's original Spanish snake_case contract
// regardless of how entities are stored.

type pageResponse struct {
	Items any   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	UsuarioID string `json:"usuario_id"`
	Nombre    string `json:"nombre"`
	Email     string `json:"email"`
	Perfil    string `json:"perfil"`
}

type userDetailResponse struct {
	userResponse
	Cursos []courseResponse `json:"cursos"`
}

type courseResponse struct {
	CursoID           string `json:"curso_id"`
	Nombre            string `json:"nombre"`
	Categoria         string `json:"categoria"`
	Docente           string `json:"docente"`
	NumeroEstudiantes int    `json:"numero_estudiantes"`
}

type topicResponse struct {
	TopicoID      string `json:"topico_id"`
	Titulo        string `json:"titulo"`
	Mensaje       string `json:"mensaje"`
	FechaCreacion string `json:"fecha_creacion"`
	Resuelto      bool   `json:"resuelto"`
	Autor         string `json:"autor"`
	NombreCurso   string `json:"nombre_curso"`
}

type replyResponse struct {
	RespuestaID    string `json:"respuesta_id"`
	Respuesta      string `json:"respuesta"`
	FechaCreacion  string `json:"fecha_creacion"`
	AutorRespuesta string `json:"autor_respuesta"`
	TituloTopico   string `json:"titulo_topico"`
	Curso          string `json:"curso"`
}

// perfilLabel maps stored roles onto the API's Spanish profile names.
func perfilLabel(role domain.UserRole) string {
	switch role {
	case domain.RoleTeacher:
		return "DOCENTE"
	default:
		return "ESTUDIANTE"
	}
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		UsuarioID: u.ID,
		Nombre:    u.UserName,
		Email:     u.Email,
		Perfil:    perfilLabel(u.Role),
	}
}

func toUserResponses(users []domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func (s *Server) toCourseResponse(c domain.Course) courseResponse {
	return courseResponse{
		CursoID:           c.ID,
		Nombre:            c.Name,
		Categoria:         string(c.Category),
		Docente:           s.app.UserNameByID(c.TeacherID),
		NumeroEstudiantes: c.StudentCount,
	}
}

func (s *Server) toCourseResponses(courses []domain.Course) []courseResponse {
	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, s.toCourseResponse(c))
	}
	return out
}

func (s *Server) toTopicResponse(t domain.Topic) topicResponse {
	return topicResponse{
		TopicoID:      t.ID,
		Titulo:        t.Title,
		Mensaje:       t.Message,
		FechaCreacion: t.CreatedAt.Format(time.RFC3339),
		Resuelto:      t.Resolved,
		Autor:         s.app.UserNameByID(t.AuthorID),
		NombreCurso:   s.app.CourseNameByID(t.CourseID),
	}
}

func (s *Server) toTopicResponses(topics []domain.Topic) []topicResponse {
	out := make([]topicResponse, 0, len(topics))
	for _, t := range topics {
		out = append(out, s.toTopicResponse(t))
	}
	return out
}

func (s *Server) toReplyResponse(r domain.Reply) replyResponse {
	resp := replyResponse{
		RespuestaID:    r.ID,
		Respuesta:      r.Body,
		FechaCreacion:  r.CreatedAt.Format(time.RFC3339),
		AutorRespuesta: s.app.UserNameByID(r.AuthorID),
	}
	if topic, err := s.app.GetTopicByID(r.TopicID); err == nil {
		resp.TituloTopico = topic.Title
		resp.Curso = s.app.CourseNameByID(topic.CourseID)
	}
	return resp
}

func (s *Server) toReplyResponses(replies []domain.Reply) []replyResponse {
	out := make([]replyResponse, 0, len(replies))
	for _, r := range replies {
		out = append(out, s.toReplyResponse(r))
	}
	return out
}
