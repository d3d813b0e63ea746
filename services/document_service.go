package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/Dosada05/sports-registration/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxDocumentSize is the upload limit for a single registration document.
const MaxDocumentSize = 10 << 20

var allowedDocumentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

type DocumentService interface {
	Upload(ctx context.Context, registrationID uuid.UUID, identity models.Identity, fileName string, file io.Reader) (*models.Document, error)
	List(ctx context.Context, registrationID uuid.UUID, identity models.Identity) ([]models.Document, error)
	DeleteRegistrationObjects(ctx context.Context, registrationID uuid.UUID) error
}

type documentService struct {
	store    repositories.RegistrationStore
	docRepo  repositories.DocumentRepository
	uploader storage.FileUploader
	logger   *slog.Logger
	now      func() time.Time
}

// NewDocumentService; uploader may be nil when object storage is not configured.
func NewDocumentService(
	store repositories.RegistrationStore,
	docRepo repositories.DocumentRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) DocumentService {
	return &documentService{
		store:    store,
		docRepo:  docRepo,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
	}
}

func registrationPrefix(registrationID uuid.UUID) string {
	return "registrations/" + registrationID.String() + "/"
}

func (s *documentService) authorize(ctx context.Context, registrationID uuid.UUID, identity models.Identity) error {
	access, _, err := resolveAccess(ctx, s.store, registrationID, identity)
	if err != nil {
		return err
	}
	if !access.Granted {
		return ErrAccessDenied
	}
	return nil
}

func (s *documentService) Upload(ctx context.Context, registrationID uuid.UUID, identity models.Identity, fileName string, file io.Reader) (*models.Document, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	if err := s.authorize(ctx, registrationID, identity); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrDocumentTooLarge
	}
	if len(data) == 0 {
		return nil, ErrDocumentType
	}

	// Тип определяется по содержимому, а не по заголовку клиента.
	mtype := mimetype.Detect(data)
	contentType := strings.SplitN(mtype.String(), ";", 2)[0]
	ext, ok := allowedDocumentTypes[contentType]
	if !ok {
		return nil, ErrDocumentType
	}

	key := fmt.Sprintf("%s%d%s", registrationPrefix(registrationID), s.now().UnixMilli(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = path.Base(key)
	}

	doc := &models.Document{
		RegistrationID: registrationID,
		FileName:       name,
		FileURL:        result.Location,
		FileType:       contentType,
		ObjectKey:      result.Key,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned document object",
				slog.String("key", result.Key),
				slog.Any("error", delErr),
			)
		}
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.InfoContext(ctx, "Document uploaded",
		slog.String("registration_id", registrationID.String()),
		slog.String("document_id", doc.ID.String()),
		slog.String("file_type", contentType),
	)
	return doc, nil
}

func (s *documentService) List(ctx context.Context, registrationID uuid.UUID, identity models.Identity) ([]models.Document, error) {
	if err := s.authorize(ctx, registrationID, identity); err != nil {
		return nil, err
	}
	docs, err := s.docRepo.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func (s *documentService) DeleteRegistrationObjects(ctx context.Context, registrationID uuid.UUID) error {
	if s.uploader == nil {
		return nil
	}
	removed, err := s.uploader.DeletePrefix(ctx, registrationPrefix(registrationID))
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "Registration documents removed from storage",
			slog.String("registration_id", registrationID.String()),
			slog.Int("objects", removed),
		)
	}
	return nil
}
