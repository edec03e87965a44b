package models

type SetStatistics struct {
	TotalCards  int         `json:"total_cards"`
	DueCards    int         `json:"due_cards"`
	WrongCards  int         `json:"wrong_cards"`
	LevelCounts map[int]int `json:"level_counts"`
	MaxLevel    int         `json:"max_level"`
}

// SetSummary is a set as shown in listings.
type SetSummary struct {
	VocabSet
	CardCount int `json:"card_count" db:"card_count"`
	DueCount  int `json:"due_count" db:"due_count"`
}
