package api

import (
	"net/http"

	"github.com/vytor/verve/internal/session"
)

type answerRequest struct {
	Quality *int `json:"quality" validate:"required,gte=0,lte=5"`
}

type shuffleRequest struct {
	Grouped bool `json:"grouped"`
}

type modeRequest struct {
	Practice  bool `json:"practice"`
	WrongOnly bool `json:"wrong_only"`
}

func modeFromQuery(r *http.Request) (session.Mode, error) {
	practice, err := queryBool(r, "practice")
	if err != nil {
		return session.Mode{}, err
	}
	wrongOnly, err := queryBool(r, "wrong_only")
	if err != nil {
		return session.Mode{}, err
	}
	return session.Mode{Practice: practice, WrongOnly: wrongOnly}, nil
}

// controller returns the device's session for the set in the URL. A device
// without one gets a session in the mode given by the query.
func (s *Server) controller(r *http.Request) (*session.Controller, error) {
	setID, err := pathID(r, "setID")
	if err != nil {
		return nil, err
	}
	device := deviceFromContext(r.Context())
	if c, ok := s.Sessions.Get(device, setID); ok && c.State() != session.StateEmpty {
		return c, nil
	}
	if _, err := s.Sets.Get(r.Context(), setID); err != nil {
		return nil, err
	}
	mode, err := modeFromQuery(r)
	if err != nil {
		return nil, err
	}
	return s.Sessions.Open(r.Context(), device, setID, mode)
}

// sessionOp runs op on the session and responds with the resulting frame.
func (s *Server) sessionOp(w http.ResponseWriter, r *http.Request, op func(*session.Controller) error) {
	c, err := s.controller(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := op(c); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Frame())
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	mode, err := modeFromQuery(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := s.Sets.Get(r.Context(), setID); err != nil {
		handleError(w, r, err)
		return
	}
	c, err := s.Sessions.Open(r.Context(), deviceFromContext(r.Context()), setID, mode)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Frame())
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Sessions.Destroy(r.Context(), deviceFromContext(r.Context()), setID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	s.sessionOp(w, r, func(c *session.Controller) error {
		return c.Flip(r.Context())
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	s.sessionOp(w, r, func(c *session.Controller) error {
		return c.Answer(r.Context(), *req.Quality)
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.sessionOp(w, r, func(c *session.Controller) error {
		return c.Undo(r.Context())
	})
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var req shuffleRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		handleError(w, r, err)
		return
	}
	s.sessionOp(w, r, func(c *session.Controller) error {
		return c.Shuffle(r.Context(), req.Grouped)
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.sessionOp(w, r, func(c *session.Controller) error {
		return c.Restart(r.Context())
	})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	s.sessionOp(w, r, func(c *session.Controller) error {
		return c.SetMode(r.Context(), session.Mode{Practice: req.Practice, WrongOnly: req.WrongOnly})
	})
}
