package api

import (
	"net/http"
	"time"

	"github.com/vytor/verve/internal/models"
)

type cardRequest struct {
	Front string `json:"front" validate:"required,max=1000"`
	Back  string `json:"back" validate:"required,max=1000"`
}

type rateRequest struct {
	Front   string `json:"front" validate:"required,max=1000"`
	Quality *int   `json:"quality" validate:"required,gte=0,lte=5"`
}

type practiceRequest struct {
	Front   string `json:"front" validate:"required,max=1000"`
	Correct *bool  `json:"correct" validate:"required"`
}

type restoreRequest struct {
	Front        string    `json:"front" validate:"required,max=1000"`
	Level        int       `json:"level" validate:"gte=1"`
	LastInterval int       `json:"last_interval" validate:"gte=0"`
	EaseFactor   float64   `json:"ease_factor" validate:"gte=1.3"`
	NextReview   time.Time `json:"next_review" validate:"required"`
	Since        time.Time `json:"since"`
}

type orderRequest struct {
	Fronts []string `json:"fronts" validate:"required,min=1,dive,required"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	due, err := queryBool(r, "due")
	if err != nil {
		handleError(w, r, err)
		return
	}
	wrongOnly, err := queryBool(r, "wrong_only")
	if err != nil {
		handleError(w, r, err)
		return
	}

	cards, err := s.Cards.List(r.Context(), setID, due, wrongOnly)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, r, http.StatusOK, cards)
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req cardRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.Cards.Add(r.Context(), setID, models.CardInput{Front: req.Front, Back: req.Back})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	cardID, err := pathID(r, "cardID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Cards.Delete(r.Context(), setID, cardID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req rateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.Cards.ApplyRating(r.Context(), setID, req.Front, *req.Quality)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleMarkPractice(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req practiceRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Cards.MarkPractice(r.Context(), setID, req.Front, *req.Correct); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req restoreRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	sched := models.Schedule{
		Level:        req.Level,
		LastInterval: req.LastInterval,
		EaseFactor:   req.EaseFactor,
		NextReview:   req.NextReview,
	}
	if err := s.Cards.RestoreCard(r.Context(), setID, req.Front, sched, req.Since); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePersistOrder(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req orderRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := s.Sets.Get(r.Context(), setID); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Cards.PersistOrder(r.Context(), setID, req.Fronts); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
