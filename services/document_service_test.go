package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/Dosada05/sports-registration/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *fakeUploader) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	removed := 0
	for key := range u.objects {
		if strings.HasPrefix(key, prefix) {
			delete(u.objects, key)
			removed++
		}
	}
	return removed, nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return storage.PublicURL("https://cdn.example", key)
}

type fakeDocumentRepo struct {
	docs []models.Document
	err  error
}

func (r *fakeDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if r.err != nil {
		return r.err
	}
	doc.ID = uuid.New()
	doc.UploadedAt = time.Now()
	r.docs = append(r.docs, *doc)
	return nil
}

func (r *fakeDocumentRepo) ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	for _, d := range r.docs {
		if d.RegistrationID == registrationID {
			out = append(out, d)
		}
	}
	return out, nil
}

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

type documentFixture struct {
	store    *repositories.MemoryRegistrationStore
	uploader *fakeUploader
	repo     *fakeDocumentRepo
	svc      *documentService
	leader   models.Identity
	reg      *models.Registration
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	store := repositories.NewMemoryRegistrationStore()
	teams := NewTeamService(store, nil, discardLogger())
	leader := newIdentity("lead@example.com")
	reg := createTeam(t, teams, leader, seedTeamEvent(store, nil).ID, "Falcons")

	uploader := newFakeUploader()
	repo := &fakeDocumentRepo{}
	svc := &documentService{
		store:    store,
		docRepo:  repo,
		uploader: uploader,
		logger:   discardLogger(),
		now:      func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return &documentFixture{store: store, uploader: uploader, repo: repo, svc: svc, leader: leader, reg: reg}
}

func TestDocumentUpload(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, f.reg.ID, f.leader, `C:\scans\medical.pdf`, bytes.NewReader(pdfBytes))
	require.NoError(t, err)

	expectedKey := "registrations/" + f.reg.ID.String() + "/1700000000000.pdf"
	assert.Equal(t, expectedKey, doc.ObjectKey)
	assert.Equal(t, "application/pdf", doc.FileType)
	assert.Equal(t, "medical.pdf", doc.FileName)
	assert.Equal(t, "https://cdn.example/"+expectedKey, doc.FileURL)
	assert.Contains(t, f.uploader.objects, expectedKey)

	docs, err := f.svc.List(ctx, f.reg.ID, f.leader)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentUpload_Rejections(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, f.reg.ID, f.leader, "notes.txt", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrDocumentType)

	big := io.MultiReader(bytes.NewReader(pngBytes), bytes.NewReader(make([]byte, MaxDocumentSize)))
	_, err = f.svc.Upload(ctx, f.reg.ID, f.leader, "huge.png", big)
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	_, err = f.svc.Upload(ctx, f.reg.ID, newIdentity("stranger@example.com"), "a.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrAccessDenied)

	assert.Empty(t, f.uploader.objects)
}

func TestDocumentUpload_RemovesObjectWhenSaveFails(t *testing.T) {
	f := newDocumentFixture(t)
	f.repo.err = errors.New("connection reset")

	_, err := f.svc.Upload(context.Background(), f.reg.ID, f.leader, "scan.png", bytes.NewReader(pngBytes))
	require.Error(t, err)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Empty(t, f.uploader.objects)
}

func TestDocumentUpload_StorageUnavailable(t *testing.T) {
	f := newDocumentFixture(t)
	svc := NewDocumentService(f.store, f.repo, nil, discardLogger())

	_, err := svc.Upload(context.Background(), f.reg.ID, f.leader, "scan.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NoError(t, svc.DeleteRegistrationObjects(context.Background(), f.reg.ID))
}

func TestDeleteTeamRemovesDocuments(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()
	teams := NewTeamService(f.store, f.svc, discardLogger())

	_, err := f.svc.Upload(ctx, f.reg.ID, f.leader, "scan.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	f.uploader.objects["registrations/other/keep.pdf"] = pdfBytes

	require.NoError(t, teams.DeleteTeam(ctx, f.reg.ID, f.leader))
	assert.Len(t, f.uploader.objects, 1)
	assert.Contains(t, f.uploader.objects, "registrations/other/keep.pdf")
}
