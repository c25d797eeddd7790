package model

import "time"

// User represents an application user record as stored in the
// `users` table.  The booking core only needs a stable identifier for
// ownership checks; the rest of the fields serve the identity
// endpoints.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name used in emails.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (CUSTOMER or ADMIN).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FullName     string    // users.full_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
