package server

import (
	"net/http"
	"strconv"
)

type createTopicRequest struct {
	Titulo    string `json:"titulo"`
	Mensaje   string `json:"mensaje"`
	UsuarioID string `json:"usuario_id"`
	CursoID   string `json:"curso_id"`
}

type closeTopicRequest struct {
	TopicoID string `json:"topico_id"`
}

type createReplyRequest struct {
	TopicoID  string `json:"topico_id"`
	UsuarioID string `json:"usuario_id"`
	Respuesta string `json:"respuesta"`
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createTopicRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UsuarioID == "" {
			if caller, ok := userFromContext(r.Context()); ok {
				req.UsuarioID = caller.ID
			}
		}
		topic, err := s.app.CreateTopic(req.Titulo, req.Mensaje, req.UsuarioID, req.CursoID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.toTopicResponse(topic))
	case http.MethodGet:
		// The bare collection lists open topics only.
		open := false
		s.writeTopicPage(w, r, &open)
	case http.MethodDelete:
		var req closeTopicRequest
		if !decodeBody(w, r, &req) {
			return
		}
		topic, err := s.app.CloseTopic(req.TopicoID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "forohub.topic.close", "success", "topic_id", topic.ID)
		writeJSON(w, http.StatusOK, s.toTopicResponse(topic))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAllTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.writeTopicPage(w, r, nil)
}

func (s *Server) handleTopicsByStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	raw, ok := pathSuffix(r, "/topicos/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	resolved, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "estado inválido: use true o false")
		return
	}
	s.writeTopicPage(w, r, &resolved)
}

func (s *Server) writeTopicPage(w http.ResponseWriter, r *http.Request, resolved *bool) {
	page, size := parsePage(r)
	topics, total, err := s.app.ListTopics(resolved, page, size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items: s.toTopicResponses(topics),
		Page:  page,
		Size:  size,
		Total: total,
	})
}

func (s *Server) handleReplies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createReplyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UsuarioID == "" {
			if caller, ok := userFromContext(r.Context()); ok {
				req.UsuarioID = caller.ID
			}
		}
		reply, err := s.app.CreateReply(req.TopicoID, req.UsuarioID, req.Respuesta)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.toReplyResponse(reply))
	case http.MethodGet:
		page, size := parsePage(r)
		replies, total, err := s.app.ListRepliesForOpenTopics(page, size)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{
			Items: s.toReplyResponses(replies),
			Page:  page,
			Size:  size,
			Total: total,
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRepliesByAuthor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := pathSuffix(r, "/respuestas/autor/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, size := parsePage(r)
	replies, total, err := s.app.ListRepliesByAuthor(id, page, size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items: s.toReplyResponses(replies),
		Page:  page,
		Size:  size,
		Total: total,
	})
}

func (s *Server) handleRepliesByTopic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := pathSuffix(r, "/respuestas/topico/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, size := parsePage(r)
	replies, total, err := s.app.ListRepliesByTopic(id, page, size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items: s.toReplyResponses(replies),
		Page:  page,
		Size:  size,
		Total: total,
	})
}
