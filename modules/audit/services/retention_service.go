package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
	"github.com/univault/univault/pkg/composables"
)

var ErrRetentionWindow = errors.New("retention window must be a positive number of days")

const sampleSize = 5

type RetentionOptions struct {
	Days        int
	ArchivePath string
	PurgeOnly   bool
	DryRun      bool
}

type RetentionResult struct {
	Cutoff   time.Time
	Matched  int64
	Archived int64
	Purged   int64
	Sample   []string
}

// RetentionService expires audit records past the retention window. The
// default run appends expired records to a JSON Lines archive and only then
// purges them; a failed or partial archive write leaves every record in
// place.
type RetentionService struct {
	repo auditrecord.Repository
}

func NewRetentionService(repo auditrecord.Repository) *RetentionService {
	return &RetentionService{repo: repo}
}

func (s *RetentionService) Run(ctx context.Context, opts RetentionOptions) (*RetentionResult, error) {
	if opts.Days <= 0 {
		return nil, ErrRetentionWindow
	}

	// One cutoff for the whole run: records crossing the boundary while the
	// run is in flight are picked up next time instead of being half-handled.
	cutoff := time.Now().AddDate(0, 0, -opts.Days)
	result := &RetentionResult{Cutoff: cutoff}

	matched, err := s.repo.CountOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	result.Matched = matched
	if matched == 0 {
		return result, nil
	}

	if opts.DryRun {
		records, err := s.repo.ListOlderThan(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		for _, record := range records[:min(len(records), sampleSize)] {
			result.Sample = append(result.Sample, record.String())
		}
		return result, nil
	}

	if !opts.PurgeOnly {
		records, err := s.repo.ListOlderThan(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		archived, err := appendArchive(opts.ArchivePath, records)
		if err != nil {
			return nil, fmt.Errorf("archive write failed, nothing purged: %w", err)
		}
		result.Archived = archived
	}

	purged, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	result.Purged = purged

	composables.UseLogger(ctx).
		WithField("cutoff", cutoff.Format(time.RFC3339)).
		WithField("archived", result.Archived).
		WithField("purged", result.Purged).
		Info("audit retention run complete")
	return result, nil
}

// archiveRecord is the stable on-disk shape, one JSON object per line.
type archiveRecord struct {
	ID            uint           `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	ActorID       *uint          `json:"actor_id,omitempty"`
	ActorEmail    string         `json:"actor_email,omitempty"`
	ActorRole     string         `json:"actor_role,omitempty"`
	Action        string         `json:"action"`
	Severity      string         `json:"severity"`
	TenantID      string         `json:"tenant_id,omitempty"`
	TenantName    string         `json:"tenant_name,omitempty"`
	TargetType    string         `json:"target_type,omitempty"`
	TargetID      string         `json:"target_id,omitempty"`
	TargetRepr    string         `json:"target_repr,omitempty"`
	PreviousState map[string]any `json:"previous_state,omitempty"`
	NewState      map[string]any `json:"new_state,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
	RequestPath   string         `json:"request_path,omitempty"`
	RequestMethod string         `json:"request_method,omitempty"`
	Description   string         `json:"description,omitempty"`
}

func toArchiveRecord(record *auditrecord.AuditRecord) archiveRecord {
	out := archiveRecord{
		ID:            record.ID(),
		CreatedAt:     record.CreatedAt(),
		ActorID:       record.ActorID(),
		ActorEmail:    record.ActorEmail(),
		ActorRole:     record.ActorRole(),
		Action:        string(record.Action()),
		Severity:      string(record.Severity()),
		TenantName:    record.TenantName(),
		TargetType:    record.TargetType(),
		TargetID:      record.TargetID(),
		TargetRepr:    record.TargetRepr(),
		PreviousState: record.PreviousState(),
		NewState:      record.NewState(),
		IPAddress:     record.IPAddress(),
		UserAgent:     record.UserAgent(),
		RequestPath:   record.RequestPath(),
		RequestMethod: record.RequestMethod(),
		Description:   record.Description(),
	}
	if id := record.TenantID(); id != uuid.Nil {
		out.TenantID = id.String()
	}
	return out
}

// appendArchive writes records to path in JSON Lines form and fsyncs before
// returning, so the purge that follows only ever removes rows that are
// durably on disk. Appending keeps successive runs in one growing file.
func appendArchive(path string, records []*auditrecord.AuditRecord) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(f)
	var written int64
	for _, record := range records {
		if err := enc.Encode(toArchiveRecord(record)); err != nil {
			f.Close()
			return written, err
		}
		written++
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return written, err
	}
	return written, f.Close()
}
