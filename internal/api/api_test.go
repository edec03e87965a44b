package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/verve/internal/db"
	"github.com/vytor/verve/internal/jobs"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/repository"
	"github.com/vytor/verve/internal/repository/sqlite"
	"github.com/vytor/verve/internal/services"
	"github.com/vytor/verve/internal/session"
	"github.com/vytor/verve/internal/testutil"
	"github.com/vytor/verve/internal/worker"
)

const testDevice = "3f1c2a9e-4b7d-4c55-9a0e-2d6f8b1e7c42"

type APISuite struct {
	suite.Suite
	db      *db.DB
	cards   repository.CardRepository
	queue   *jobs.WorkerQueue
	handler http.Handler
}

func (s *APISuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	sets := sqlite.NewSetRepository(s.db.DB)
	s.cards = sqlite.NewCardRepository(s.db.DB)
	snapshots := sqlite.NewSnapshotRepository(s.db.DB)
	clock := clockwork.NewRealClock()

	cardService := services.NewCardService(sets, s.cards, clock)
	q := worker.NewQueue(clock, worker.DefaultQueueConfig())
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	s.T().Cleanup(func() {
		q.Stop()
		cancel()
	})
	s.queue = jobs.NewWorkerQueue(q, cardService)

	server := &Server{
		Sets:    services.NewSetService(sets, s.cards, snapshots, clock),
		Cards:   cardService,
		Imports: services.NewImportService(sets, s.cards, clock),
		Sessions: session.NewManager(session.Deps{
			Cards:     cardService,
			Writes:    s.queue,
			Snapshots: snapshots,
			Clock:     clock,
		}),
		Health:         s.db,
		MaxImportBytes: 4 << 10,
	}
	s.handler = server.Routes()
}

func (s *APISuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: deviceCookieName, Value: testDevice})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *APISuite) errorCode(rec *httptest.ResponseRecorder) string {
	return decode[errorBody](s.T(), rec).Error.Code
}

func (s *APISuite) createSet(name string, fronts ...string) int64 {
	rec := s.do(http.MethodPost, "/api/sets", map[string]string{"name": name})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	set := decode[models.VocabSet](s.T(), rec)
	for _, front := range fronts {
		rec := s.do(http.MethodPost, "/api/sets/"+itoa(set.ID)+"/cards", map[string]string{"front": front, "back": front + "-en"})
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	}
	return set.ID
}

func (s *APISuite) waitWrites() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.queue.Wait(ctx))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *APISuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/readyz", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Ready", rec.Body.String())
}

func (s *APISuite) TestDeviceCookieIssued() {
	req := httptest.NewRequest(http.MethodGet, "/api/sets", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(deviceCookieName, cookies[0].Name)
	s.Len(cookies[0].Value, 36)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
}

func (s *APISuite) TestSetLifecycle() {
	id := s.createSet("Tiere", "Hund", "Katze")

	rec := s.do(http.MethodPost, "/api/sets", map[string]string{"name": "Tiere"})
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("CONFLICT", s.errorCode(rec))

	rec = s.do(http.MethodPost, "/api/sets", map[string]string{"name": "bad;name"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", s.errorCode(rec))

	rec = s.do(http.MethodGet, "/api/sets/"+itoa(id), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	detail := decode[struct {
		Name       string               `json:"name"`
		Statistics models.SetStatistics `json:"statistics"`
	}](s.T(), rec)
	s.Equal("Tiere", detail.Name)
	s.Equal(2, detail.Statistics.TotalCards)
	s.Equal(2, detail.Statistics.DueCards)

	rec = s.do(http.MethodPatch, "/api/sets/"+itoa(id), map[string]string{"name": "Haustiere"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("Haustiere", decode[models.VocabSet](s.T(), rec).Name)

	rec = s.do(http.MethodGet, "/api/sets", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	list := decode[[]models.SetSummary](s.T(), rec)
	s.Require().Len(list, 1)
	s.Equal(2, list[0].CardCount)

	rec = s.do(http.MethodDelete, "/api/sets/"+itoa(id), nil)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/sets/"+itoa(id), nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("NOT_FOUND", s.errorCode(rec))
}

func (s *APISuite) TestCards() {
	id := s.createSet("Farben", "rot")

	rec := s.do(http.MethodPost, "/api/sets/"+itoa(id)+"/cards", map[string]string{"front": "rot", "back": "red"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/sets/"+itoa(id)+"/cards", map[string]string{"front": "blau"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/sets/"+itoa(id)+"/cards?due=true", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	cards := decode[[]models.Card](s.T(), rec)
	s.Require().Len(cards, 1)

	rec = s.do(http.MethodDelete, "/api/sets/"+itoa(id)+"/cards/"+itoa(cards[0].ID), nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/sets/"+itoa(id)+"/cards?due=maybe", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestRateEndpoints() {
	id := s.createSet("Verben", "gehen")
	base := "/api/sets/" + itoa(id)

	rec := s.do(http.MethodPost, base+"/rate", map[string]any{"front": "gehen", "quality": 5})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	res := decode[models.RatingResult](s.T(), rec)
	s.Equal(1, res.OldLevel)
	s.Equal(2, res.NewLevel)
	s.Equal(1, res.IntervalDays)

	rec = s.do(http.MethodPost, base+"/rate", map[string]any{"front": "gehen"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+"/rate", map[string]any{"front": "laufen", "quality": 3})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, base+"/practice", map[string]any{"front": "gehen", "correct": false})
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, base+"/restore", map[string]any{
		"front": "gehen", "level": 1, "last_interval": 0, "ease_factor": 2.5,
		"next_review": time.Now().UTC().Format(time.RFC3339),
	})
	s.Equal(http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/order", map[string]any{"fronts": []string{"gehen"}})
	s.Equal(http.StatusNoContent, rec.Code)

	card, err := s.cards.GetByFront(context.Background(), id, "gehen")
	s.Require().NoError(err)
	s.Equal(1, card.Level)
	s.True(card.PracticeWrong)
	s.Require().NotNil(card.ShuffleOrder)
}

func (s *APISuite) TestSessionEndToEnd() {
	id := s.createSet("Zahlen", "eins", "zwei")
	base := "/api/sets/" + itoa(id) + "/session"

	rec := s.do(http.MethodGet, base, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	frame := decode[session.Frame](s.T(), rec)
	s.Equal(2, frame.Stats.Total)
	s.Require().NotNil(frame.Card)
	s.Equal("eins", frame.Card.Front)
	s.True(frame.ShowProgress)

	rec = s.do(http.MethodPost, base+"/flip", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.True(decode[session.Frame](s.T(), rec).Flipped)

	rec = s.do(http.MethodPost, base+"/answer", map[string]int{"quality": 5})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, base+"/answer", map[string]int{"quality": 2})
	s.Require().Equal(http.StatusOK, rec.Code)
	frame = decode[session.Frame](s.T(), rec)
	s.Equal(session.Stats{Correct: 1, Wrong: 1, Total: 2}, frame.Stats)
	s.True(frame.Completed)

	rec = s.do(http.MethodPost, base+"/answer", map[string]int{"quality": 5})
	s.Equal(http.StatusConflict, rec.Code)

	s.waitWrites()
	one, err := s.cards.GetByFront(context.Background(), id, "eins")
	s.Require().NoError(err)
	s.Equal(2, one.Level)
	s.Equal(1, one.LastInterval)
	two, err := s.cards.GetByFront(context.Background(), id, "zwei")
	s.Require().NoError(err)
	s.Equal(1, two.Level)
	history, err := s.cards.ReviewHistory(context.Background(), one.ID)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *APISuite) TestSessionUndoRestoresCard() {
	id := s.createSet("Farben", "gelb", "grün")
	base := "/api/sets/" + itoa(id) + "/session"

	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, base, nil).Code)
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, base+"/answer", map[string]int{"quality": 5}).Code)

	rec := s.do(http.MethodPost, base+"/undo", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	frame := decode[session.Frame](s.T(), rec)
	s.Equal(0, frame.Position)
	s.False(frame.CanUndo)

	s.waitWrites()
	card, err := s.cards.GetByFront(context.Background(), id, "gelb")
	s.Require().NoError(err)
	s.Equal(1, card.Level)
	s.InDelta(2.5, card.EaseFactor, 1e-9)
	history, err := s.cards.ReviewHistory(context.Background(), card.ID)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *APISuite) TestSessionPracticeMode() {
	id := s.createSet("Obst", "Apfel", "Birne")
	base := "/api/sets/" + itoa(id) + "/session"

	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, base, nil).Code)
	rec := s.do(http.MethodPost, base+"/mode", map[string]bool{"practice": true})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	frame := decode[session.Frame](s.T(), rec)
	s.True(frame.Mode.Practice)
	s.False(frame.ShowProgress)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, base+"/answer", map[string]int{"quality": 0}).Code)
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, base+"/shuffle", nil).Code)

	s.waitWrites()
	cards, err := s.cards.AllCards(context.Background(), id, true)
	s.Require().NoError(err)
	s.Require().Len(cards, 1)
	s.Equal(1, cards[0].Level)
	s.Equal(frame.Card.Front, cards[0].Front)

	rec = s.do(http.MethodDelete, base, nil)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *APISuite) TestImport() {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	s.Require().NoError(mw.WriteField("name", "Import"))
	s.Require().NoError(mw.WriteField("text", "Hund;dog|Katze;cat"))
	s.Require().NoError(mw.WriteField("card_separator", "|"))
	s.Require().NoError(mw.WriteField("field_separator", ";"))
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sets/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[importResult](s.T(), rec)
	s.Equal(2, res.Added)
	s.Equal("Import", res.Set.Name)

	body.Reset()
	mw = multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "more.tsv")
	s.Require().NoError(err)
	_, err = fw.Write([]byte("Hund\tdog\nMaus\tmouse\n"))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req = httptest.NewRequest(http.MethodPost, "/api/sets/"+itoa(res.Set.ID)+"/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(1, decode[importResult](s.T(), rec).Added)
}

func (s *APISuite) TestImportTooLarge() {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	s.Require().NoError(mw.WriteField("text", strings.Repeat("Hund\tdog\n", 1000)))
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sets/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	s.Equal(http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	s.Equal("PAYLOAD_TOO_LARGE", s.errorCode(rec))
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func TestHandleErrorMapsSessionErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{session.ErrBusy, http.StatusConflict},
		{session.ErrExhausted, http.StatusConflict},
		{stderrors.New("boom"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}
