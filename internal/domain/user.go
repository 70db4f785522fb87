package domain

import "time"

// MaxUserNameLength mirrors the width of the users.name column.
const MaxUserNameLength = 50

// User is a registered account. PasswordHash and Salt never leave the service.
type User struct {
	ID           int64
	Name         string
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
}
