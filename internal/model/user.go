package model

import "time"

// User forum member; created at registration and never deleted
type User struct {
	ID          int64     `db:"id" json:"-"`
	PublicID    string    `db:"public_id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	CreatedAt   time.Time `db:"created_at"`
	ModifiedAt  time.Time `db:"modified_at"`
}

// Name display name, falling back to the email
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
