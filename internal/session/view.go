package session

import "github.com/vytor/verve/internal/logger"

// LogView writes every frame to a logger at debug level.
type LogView struct {
	Logger *logger.Logger
}

func (v LogView) Render(f Frame) {
	log := v.Logger
	if log == nil {
		log = logger.Default()
	}
	front := ""
	if f.Card != nil {
		front = f.Card.Front
	}
	log.WithFields(map[string]any{
		"state":    string(f.State),
		"mode":     f.Mode.String(),
		"position": f.Position,
		"correct":  f.Stats.Correct,
		"wrong":    f.Stats.Wrong,
		"total":    f.Stats.Total,
	}).Debug("frame %q flipped=%t", front, f.Flipped)
}
