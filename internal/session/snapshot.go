package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vytor/verve/internal/models"
)

const snapshotVersion = 1

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Version  int           `json:"version"`
	Queue    []models.Card `json:"queue"`
	Position int           `json:"position"`
	Stats    Stats         `json:"stats"`
	Undo     []UndoEntry   `json:"undo"`
	Mode     Mode          `json:"mode"`
	State    State         `json:"state"`
	SavedAt  time.Time     `json:"saved_at"`
}

var errCorrupt = errors.New("corrupt snapshot")

func encodeSnapshot(s Snapshot) ([]byte, error) {
	s.Version = snapshotVersion
	return json.Marshal(s)
}

// decodeSnapshot parses data and checks it describes a session in mode.
func decodeSnapshot(data []byte, mode Mode) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if err := s.validate(mode); err != nil {
		return Snapshot{}, err
	}
	if s.Queue == nil {
		s.Queue = []models.Card{}
	}
	return s, nil
}

func (s Snapshot) validate(mode Mode) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", errCorrupt, fmt.Sprintf(format, args...))
	}

	switch {
	case s.Version != snapshotVersion:
		return fail("version %d", s.Version)
	case s.Mode != mode:
		return fail("mode %s, want %s", s.Mode, mode)
	case !s.State.valid() || s.State == StateEmpty:
		return fail("state %q", s.State)
	case s.Position < 0 || s.Position > len(s.Queue):
		return fail("position %d of %d", s.Position, len(s.Queue))
	case s.Stats.Correct < 0 || s.Stats.Wrong < 0:
		return fail("negative stats")
	case s.Stats.Total != len(s.Queue):
		return fail("total %d for %d cards", s.Stats.Total, len(s.Queue))
	case s.Stats.Correct+s.Stats.Wrong > s.Stats.Total:
		return fail("answered more cards than total")
	case len(s.Undo) > s.Position:
		return fail("undo stack deeper than position")
	}

	completed := s.Position == len(s.Queue)
	if completed != (s.State == StateCompleted) {
		return fail("state %s at position %d of %d", s.State, s.Position, len(s.Queue))
	}
	for _, e := range s.Undo {
		if e.Quality < 0 || e.Quality > 5 {
			return fail("undo quality %d", e.Quality)
		}
	}
	return nil
}
