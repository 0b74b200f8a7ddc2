package models

import "time"

// Credential holds one Bluesky credential set per user. UserID is the
// account DID and is unique; a re-login overwrites the existing row.
// Secret is the AES-GCM encrypted app password.
type Credential struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Handle    string    `db:"handle" json:"handle"`
	Secret    string    `db:"secret" json:"-"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
