package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	cfg "github.com/grayic/bluesky-scheduler/configs"
	"github.com/grayic/bluesky-scheduler/internal/bluesky"
	"github.com/grayic/bluesky-scheduler/internal/models"
	"github.com/grayic/bluesky-scheduler/internal/repository"
	"github.com/grayic/bluesky-scheduler/pkg/utils"
)

type AuthService interface {
	Login(ctx context.Context, handle, appPassword string) (*models.Credential, error)
	Logout(ctx context.Context, userID string) error
	UserInfo(ctx context.Context, userID string) (*models.Credential, error)
}

type authService struct {
	cfg    cfg.Config
	cr     repository.CredentialRepository
	client *bluesky.Client
}

func NewAuthService(cfg cfg.Config, cr repository.CredentialRepository, client *bluesky.Client) AuthService {
	return &authService{
		cfg:    cfg,
		cr:     cr,
		client: client,
	}
}

// Login verifies the handle and app password against the PDS, then
// upserts the credential keyed by DID. A re-login overwrites the
// stored secret, which the scheduler picks up on its next attempt.
func (s *authService) Login(ctx context.Context, handle, appPassword string) (*models.Credential, error) {
	handle = strings.TrimSpace(strings.TrimPrefix(handle, "@"))
	if handle == "" {
		return nil, validationErr("handle", "handle is required")
	}
	if appPassword == "" {
		return nil, validationErr("app_password", "app password is required")
	}

	session, err := s.client.CreateSession(ctx, handle, appPassword)
	if err != nil {
		return nil, err
	}

	firstName, lastName := "", ""
	if profile, err := session.GetProfile(ctx); err != nil {
		slog.Info("profile lookup failed", "handle", session.Handle, "error", err)
	} else {
		firstName, lastName = splitDisplayName(profile.DisplayName)
	}

	encryptedSecret, err := utils.Encrypt([]byte(appPassword), []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("encrypting credential: %w", err)
	}

	cred := &models.Credential{
		UserID:    session.DID,
		Handle:    session.Handle,
		Secret:    encryptedSecret,
		FirstName: firstName,
		LastName:  lastName,
	}

	if err := s.cr.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("saving credential: %w", err)
	}

	return cred, nil
}

func (s *authService) Logout(ctx context.Context, userID string) error {
	return s.cr.Delete(ctx, userID)
}

func (s *authService) UserInfo(ctx context.Context, userID string) (*models.Credential, error) {
	cred, err := s.cr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}
	return cred, nil
}

func splitDisplayName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
