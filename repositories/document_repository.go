package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/sports-registration/models"
	"github.com/google/uuid"
)

var documentConstraintErrors = map[string]error{
	"documents_registration_id_fkey": ErrRegistrationNotFound,
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]models.Document, error)
}

type postgresDocumentRepository struct {
	db *sql.DB
}

func NewPostgresDocumentRepository(db *sql.DB) DocumentRepository {
	return &postgresDocumentRepository{db: db}
}

func (r *postgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (registration_id, file_name, file_url, file_type, object_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at`

	err := r.db.QueryRowContext(ctx, query,
		doc.RegistrationID,
		doc.FileName,
		doc.FileURL,
		doc.FileType,
		doc.ObjectKey,
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		if mapped, ok := constraintError(err, documentConstraintErrors); ok {
			return mapped
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *postgresDocumentRepository) ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]models.Document, error) {
	query := `
		SELECT id, registration_id, file_name, file_url, file_type, object_key, uploaded_at
		FROM documents
		WHERE registration_id = $1
		ORDER BY uploaded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.RegistrationID, &d.FileName, &d.FileURL, &d.FileType, &d.ObjectKey, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
