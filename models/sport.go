package models

import (
	"time"

	"github.com/google/uuid"
)

type GenderCategory string

const (
	GenderBoth  GenderCategory = "both"
	GenderBoys  GenderCategory = "boys"
	GenderGirls GenderCategory = "girls"
)

// Sport представляет вид спорта.
type Sport struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	Slug           string         `json:"slug" db:"slug"`
	Description    string         `json:"description" db:"description"`
	Rules          string         `json:"rules" db:"rules"`
	IconURL        *string        `json:"icon_url" db:"icon_url"`
	IsPreEvent     bool           `json:"is_pre_event" db:"is_pre_event"`
	GenderCategory GenderCategory `json:"gender_category" db:"gender_category"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}
