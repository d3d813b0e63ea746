package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const qrCodeSize = 300

// QRCodeEncoder matches qrcode.Encode so tests can swap it out.
type QRCodeEncoder func(content string, level qrcode.RecoveryLevel, size int) ([]byte, error)

type QRCodeService interface {
	RegistrationQRCode(ctx context.Context, registrationID uuid.UUID, identity models.Identity) ([]byte, error)
	InviteQRCode(ctx context.Context, code string) ([]byte, error)
}

type qrCodeService struct {
	store     repositories.RegistrationStore
	encode    QRCodeEncoder
	publicURL string
}

// NewQRCodeService; a nil encoder defaults to qrcode.Encode.
func NewQRCodeService(store repositories.RegistrationStore, encode QRCodeEncoder, publicURL string) QRCodeService {
	if encode == nil {
		encode = qrcode.Encode
	}
	return &qrCodeService{
		store:     store,
		encode:    encode,
		publicURL: publicURL,
	}
}

func (s *qrCodeService) png(content string) ([]byte, error) {
	png, err := s.encode(content, qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// RegistrationQRCode encodes the registration's qr_code_data for check-in.
func (s *qrCodeService) RegistrationQRCode(ctx context.Context, registrationID uuid.UUID, identity models.Identity) ([]byte, error) {
	access, reg, err := resolveAccess(ctx, s.store, registrationID, identity)
	if err != nil {
		return nil, err
	}
	if !access.Granted {
		return nil, ErrAccessDenied
	}
	return s.png(reg.QRCodeData)
}

// InviteQRCode encodes the public join link for an invite code.
func (s *qrCodeService) InviteQRCode(ctx context.Context, code string) ([]byte, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidInviteCode
	}
	if _, err := s.store.ResolveInviteCode(ctx, code); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}
	return s.png(JoinURL(s.publicURL, code))
}
