package services

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/vytor/verve/internal/errors"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/models"
	"github.com/vytor/verve/internal/repository"
	"github.com/xuri/excelize/v2"
)

// Separators of raw text imports.
const (
	DefaultCardSeparator  = "\n"
	DefaultFieldSeparator = "\t"
)

// ImportService parses vocabulary files and text and stores the cards
type ImportService interface {
	ParseFile(filename string, content []byte, cardSep, fieldSep string) ([]models.CardInput, error)
	ParseText(text, cardSep, fieldSep string) ([]models.CardInput, error)
	ImportIntoSet(ctx context.Context, setID int64, cards []models.CardInput) (int, error)
	ImportNewSet(ctx context.Context, name string, cards []models.CardInput) (*models.VocabSet, int, error)
}

type importService struct {
	sets  repository.SetRepository
	cards repository.CardRepository
	clock clockwork.Clock
}

// NewImportService creates a new ImportService
func NewImportService(sets repository.SetRepository, cards repository.CardRepository, clock clockwork.Clock) ImportService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &importService{sets: sets, cards: cards, clock: clock}
}

// ParseFile reads .xlsx, .csv, .tsv and .txt files. Spreadsheets use the
// first two columns of the first sheet.
func (s *importService) ParseFile(filename string, content []byte, cardSep, fieldSep string) ([]models.CardInput, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx":
		return parseXLSX(content)
	case ".csv":
		if fieldSep == "" || fieldSep == "," {
			return parseCSV(content)
		}
	case ".tsv", ".txt":
	default:
		return nil, errors.NewValidationError("file", "only XLSX, CSV, TSV and TXT files are supported")
	}
	if !utf8.Valid(content) {
		return nil, errors.NewValidationError("file", "file must be UTF-8 encoded")
	}
	if fieldSep == "" {
		fieldSep = DefaultFieldSeparator
	}
	return s.ParseText(string(content), cardSep, fieldSep)
}

// ParseText splits text into cards and each card into front and back.
// Separators may be given escaped, e.g. `\t`.
func (s *importService) ParseText(text, cardSep, fieldSep string) ([]models.CardInput, error) {
	cardSep = unescapeSeparator(cardSep)
	fieldSep = unescapeSeparator(fieldSep)
	if cardSep == "" {
		cardSep = DefaultCardSeparator
	}
	if fieldSep == "" {
		fieldSep = DefaultFieldSeparator
	}

	if cardSep == "\n" {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
	}
	rows := strings.Split(text, cardSep)

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, strings.Split(strings.TrimSpace(row), fieldSep))
	}
	return collect(records)
}

var separatorEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r")

func unescapeSeparator(sep string) string {
	return separatorEscapes.Replace(sep)
}

func parseCSV(content []byte) ([]models.CardInput, error) {
	if !utf8.Valid(content) {
		return nil, errors.NewValidationError("file", "file must be UTF-8 encoded")
	}
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.NewValidationError("file", fmt.Sprintf("malformed CSV: %v", err))
		}
		records = append(records, rec)
	}
	return collect(records)
}

func parseXLSX(content []byte) ([]models.CardInput, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.NewValidationError("file", fmt.Sprintf("unreadable spreadsheet: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewValidationError("file", "spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewValidationError("file", fmt.Sprintf("unreadable sheet %s: %v", sheets[0], err))
	}
	return collect(rows)
}

// collect keeps records with a non-empty front and back, ignoring extra
// columns.
func collect(records [][]string) ([]models.CardInput, error) {
	var cards []models.CardInput
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		front := strings.TrimSpace(rec[0])
		back := strings.TrimSpace(rec[1])
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, models.CardInput{Front: front, Back: back})
	}
	if len(cards) == 0 {
		return nil, errors.NewValidationError("content", "no valid vocabulary cards found")
	}
	return cards, nil
}

// ImportIntoSet adds the cards whose front is not yet in the set and returns
// how many were added.
func (s *importService) ImportIntoSet(ctx context.Context, setID int64, cards []models.CardInput) (int, error) {
	log := logger.FromContext(ctx)
	set, err := s.sets.Get(ctx, setID)
	if err != nil {
		return 0, errors.NewInternalError(err)
	}
	if set == nil {
		return 0, errors.NewNotFoundError("set", setID)
	}

	now := s.clock.Now().UTC()
	n, err := s.cards.InsertMany(ctx, setID, cards, now)
	if err != nil {
		log.Error("failed to import cards: %v", err)
		return 0, errors.NewInternalError(err)
	}
	if n > 0 {
		if err := s.sets.Touch(ctx, setID, now); err != nil {
			log.Warn("failed to touch set %d: %v", setID, err)
		}
	}
	log.Info("imported %d of %d cards into set %d", n, len(cards), setID)
	return n, nil
}

// ImportNewSet creates a set named name holding cards.
func (s *importService) ImportNewSet(ctx context.Context, name string, cards []models.CardInput) (*models.VocabSet, int, error) {
	log := logger.FromContext(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, 0, errors.NewValidationError("name", "must not be empty")
	}

	now := s.clock.Now().UTC()
	id, err := s.sets.Create(ctx, name, now)
	if err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, 0, errors.NewConflictError("a set named "+name+" already exists", err)
		}
		log.Error("failed to create set for import: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	n, err := s.cards.InsertMany(ctx, id, cards, now)
	if err != nil {
		log.Error("failed to import cards: %v", err)
		if delErr := s.sets.Delete(ctx, id); delErr != nil {
			log.Error("failed to remove half-imported set %d: %v", id, delErr)
		}
		return nil, 0, errors.NewInternalError(err)
	}

	set, err := s.sets.Get(ctx, id)
	if err != nil || set == nil {
		return nil, 0, errors.NewInternalError(fmt.Errorf("reload set %d: %w", id, err))
	}
	log.Info("imported %d cards into new set %q", n, name)
	return set, n, nil
}
