package api

import (
	"net/http"

	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
)

type setRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100,setname"`
}

type setDetail struct {
	*models.VocabSet
	Statistics *models.SetStatistics `json:"statistics"`
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.Sets.List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if sets == nil {
		sets = []models.SetSummary{}
	}
	writeJSON(w, r, http.StatusOK, sets)
}

func (s *Server) handleCreateSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	set, err := s.Sets.Create(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, set)
}

func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	set, err := s.Sets.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	stats, err := s.Sets.Statistics(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, setDetail{VocabSet: set, Statistics: stats})
}

func (s *Server) handleRenameSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req setRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Sets.Rename(r.Context(), id, req.Name); err != nil {
		handleError(w, r, err)
		return
	}
	set, err := s.Sets.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, set)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Sets.Delete(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	if n := s.Sessions.DestroySet(id); n > 0 {
		logger.FromContext(r.Context()).Debug("dropped %d open sessions of set %d", n, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	n, err := s.Sets.Reset(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"reset": n})
}
