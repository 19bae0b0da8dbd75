package models

import "time"

type User struct {
	ID           uint
	Email        string
	FirstName    string
	LastName     string
	Role         string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

type University struct {
	ID        string
	Name      string
	Acronym   string
	Slug      string
	Active    bool
	CreatedAt time.Time
}

type Membership struct {
	ID           uint
	UserID       uint
	UniversityID string
	Role         string
	CreatedAt    time.Time
}

type InvitationCode struct {
	ID             string
	UniversityID   string
	UniversityName string
	Role           string
	SecretHash     []byte
	CreatedByID    uint
	CreatedByEmail string
	UsedByID       *uint
	UsedByEmail    string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}
