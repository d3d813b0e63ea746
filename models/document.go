package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID             uuid.UUID `json:"id" db:"id"`
	RegistrationID uuid.UUID `json:"registration_id" db:"registration_id"`
	FileName       string    `json:"file_name" db:"file_name"`
	FileURL        string    `json:"file_url" db:"file_url"`
	FileType       string    `json:"file_type" db:"file_type"`
	ObjectKey      string    `json:"-" db:"object_key"`
	UploadedAt     time.Time `json:"uploaded_at" db:"uploaded_at"`
}
