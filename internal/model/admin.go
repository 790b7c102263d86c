package model

import "time"

// Admin is a staff account that can review applications and manage other
// accounts through the admin API. Passwords are stored as bcrypt hashes.
type Admin struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"user" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// AdminSummary is the listing shape returned by the admin API. It carries
// no password material.
type AdminSummary struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"user" db:"username"`
	Role     Role   `json:"role" db:"role"`
}
