package models

import "time"

type Thesis struct {
	ID           uint
	UniversityID string
	Title        string
	Author       string
	Year         int
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
