package models

import "time"

type VocabSet struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CardInput is a front/back pair coming from user input or an import.
type CardInput struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
