package models

import "time"

type AuditRecord struct {
	ID            uint
	CreatedAt     time.Time
	ActorID       *uint
	ActorEmail    string
	ActorRole     string
	Action        string
	Severity      string
	TenantID      *string
	TenantName    string
	TargetType    string
	TargetID      string
	TargetRepr    string
	PreviousState []byte
	NewState      []byte
	IPAddress     string
	UserAgent     string
	RequestPath   string
	RequestMethod string
	Description   string
}
