package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/grayic/bluesky-scheduler/internal/models"
)

type CredentialRepository interface {
	Upsert(ctx context.Context, cred *models.Credential) error
	GetByUserID(ctx context.Context, userID string) (*models.Credential, error)
	Delete(ctx context.Context, userID string) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Upsert(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (user_id, handle, secret, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET handle = EXCLUDED.handle,
			secret = EXCLUDED.secret,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = $6
	`

	_, err := r.db.ExecContext(ctx, query, cred.UserID, cred.Handle, cred.Secret, cred.FirstName, cred.LastName, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) GetByUserID(ctx context.Context, userID string) (*models.Credential, error) {
	query := `SELECT id, user_id, handle, secret, first_name, last_name, created_at, updated_at FROM credentials WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	var cred models.Credential
	err := row.Scan(&cred.ID, &cred.UserID, &cred.Handle, &cred.Secret, &cred.FirstName, &cred.LastName, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &cred, nil
}

func (r *credentialRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM credentials WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
