package api

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/vytor/verve/internal/errors"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/validator"
)

type importResult struct {
	Set   *models.VocabSet `json:"set,omitempty"`
	Added int              `json:"added"`
}

// parseImport reads the cards of a multipart import request: an uploaded
// "file", or "text" with optional "card_separator" and "field_separator".
func (s *Server) parseImport(w http.ResponseWriter, r *http.Request) ([]models.CardInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxImportBytes)
	if err := r.ParseMultipartForm(s.MaxImportBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewTooLargeError(tooLarge.Limit)
		}
		return nil, errors.NewBadRequestError("invalid import form: " + err.Error())
	}

	cardSep := r.FormValue("card_separator")
	fieldSep := r.FormValue("field_separator")

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.NewBadRequestError("unreadable upload: " + err.Error())
		}
		return s.Imports.ParseFile(header.Filename, content, cardSep, fieldSep)
	case stderrors.Is(err, http.ErrMissingFile):
		text := r.FormValue("text")
		if text == "" {
			return nil, errors.NewValidationError("input", "either file or text must be provided")
		}
		return s.Imports.ParseText(text, cardSep, fieldSep)
	default:
		return nil, errors.NewBadRequestError("invalid upload: " + err.Error())
	}
}

func (s *Server) handleImportIntoSet(w http.ResponseWriter, r *http.Request) {
	setID, err := pathID(r, "setID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	cards, err := s.parseImport(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	n, err := s.Imports.ImportIntoSet(r.Context(), setID, cards)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, importResult{Added: n})
}

func (s *Server) handleImportNewSet(w http.ResponseWriter, r *http.Request) {
	cards, err := s.parseImport(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	req := setRequest{Name: r.FormValue("name")}
	if err := validator.ValidateStruct(req); err != nil {
		handleError(w, r, err)
		return
	}
	set, n, err := s.Imports.ImportNewSet(r.Context(), req.Name, cards)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, importResult{Set: set, Added: n})
}
