package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/univault/univault/modules/audit/domain/entities/auditrecord"
)

func seedRetentionRepo(t *testing.T, aged, fresh int) *memRepo {
	t.Helper()
	repo := &memRepo{}
	for i := 0; i < aged; i++ {
		record := auditrecord.New(auditrecord.Login, auditrecord.SeverityLow,
			auditrecord.WithCreatedAt(time.Now().AddDate(0, 0, -120)),
			auditrecord.WithActor(nil, "old@unikin.cd", "standard"),
		)
		require.NoError(t, repo.Create(context.Background(), record))
	}
	for i := 0; i < fresh; i++ {
		record := auditrecord.New(auditrecord.Login, auditrecord.SeverityLow)
		require.NoError(t, repo.Create(context.Background(), record))
	}
	return repo
}

func TestRetentionService_DryRunTouchesNothing(t *testing.T) {
	repo := seedRetentionRepo(t, 8, 2)
	svc := NewRetentionService(repo)
	archive := filepath.Join(t.TempDir(), "archive.jsonl")

	result, err := svc.Run(context.Background(), RetentionOptions{
		Days:        90,
		ArchivePath: archive,
		DryRun:      true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(8), result.Matched)
	require.Zero(t, result.Archived)
	require.Zero(t, result.Purged)
	require.Len(t, result.Sample, 5)

	require.NoFileExists(t, archive)
	require.Len(t, repo.records, 10)
}

func TestRetentionService_ArchivesThenPurges(t *testing.T) {
	repo := seedRetentionRepo(t, 3, 2)
	svc := NewRetentionService(repo)
	archive := filepath.Join(t.TempDir(), "archive.jsonl")

	result, err := svc.Run(context.Background(), RetentionOptions{Days: 90, ArchivePath: archive})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Matched)
	require.Equal(t, int64(3), result.Archived)
	require.Equal(t, int64(3), result.Purged)
	require.Len(t, repo.records, 2)

	f, err := os.Open(archive)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		require.Equal(t, "LOGIN", row["action"])
		require.Equal(t, "old@unikin.cd", row["actor_email"])
		lines++
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, 3, lines)
}

func TestRetentionService_ArchiveAppendsAcrossRuns(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "archive.jsonl")

	for run := 0; run < 2; run++ {
		repo := seedRetentionRepo(t, 2, 0)
		_, err := NewRetentionService(repo).Run(context.Background(), RetentionOptions{Days: 90, ArchivePath: archive})
		require.NoError(t, err)
	}

	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	var lines int
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines++
	}
	require.Equal(t, 4, lines)
}

func TestRetentionService_PurgeOnlySkipsArchive(t *testing.T) {
	repo := seedRetentionRepo(t, 4, 1)
	svc := NewRetentionService(repo)
	archive := filepath.Join(t.TempDir(), "archive.jsonl")

	result, err := svc.Run(context.Background(), RetentionOptions{
		Days:        90,
		ArchivePath: archive,
		PurgeOnly:   true,
	})
	require.NoError(t, err)
	require.Zero(t, result.Archived)
	require.Equal(t, int64(4), result.Purged)
	require.NoFileExists(t, archive)
	require.Len(t, repo.records, 1)
}

func TestRetentionService_FailedArchiveBlocksPurge(t *testing.T) {
	repo := seedRetentionRepo(t, 4, 0)
	svc := NewRetentionService(repo)

	_, err := svc.Run(context.Background(), RetentionOptions{
		Days:        90,
		ArchivePath: filepath.Join(t.TempDir(), "missing", "archive.jsonl"),
	})
	require.Error(t, err)
	require.Len(t, repo.records, 4)
}

func TestRetentionService_RejectsNonPositiveWindow(t *testing.T) {
	svc := NewRetentionService(&memRepo{})
	_, err := svc.Run(context.Background(), RetentionOptions{Days: 0})
	require.ErrorIs(t, err, ErrRetentionWindow)
}

func TestRetentionService_NothingExpired(t *testing.T) {
	repo := seedRetentionRepo(t, 0, 3)
	svc := NewRetentionService(repo)
	archive := filepath.Join(t.TempDir(), "archive.jsonl")

	result, err := svc.Run(context.Background(), RetentionOptions{Days: 90, ArchivePath: archive})
	require.NoError(t, err)
	require.Zero(t, result.Matched)
	require.NoFileExists(t, archive)
}
