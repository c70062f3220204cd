package models

import "time"

// Admin is a privileged principal with its own identity space. Admins are
// provisioned out-of-band and have no verification or reset lifecycle.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
