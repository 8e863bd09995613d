package model

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	DisplayName  *string
	Role         string
	IsActive     bool
	Preferences  map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)
