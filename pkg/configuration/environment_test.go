package configuration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfiguration_Load_Defaults(t *testing.T) {
	c := &Configuration{}
	require.NoError(t, c.load(nil))

	require.Equal(t, 90, c.Audit.RetentionDays)
	require.Equal(t, "audit_logs_archive.jsonl", c.Audit.ArchivePath)
	require.Equal(t, "/login", c.Audit.LoginPath)
	require.Contains(t, c.Database.Opts, "dbname=univault")
	require.Equal(t, "localhost:3200", c.SocketAddress)
	require.NotNil(t, c.Logger())
}

func TestConfiguration_Load_EnvOverrides(t *testing.T) {
	t.Setenv("AUDIT_SENSITIVE_PATHS", "/admin/, /bulk-delete ,,/role")
	t.Setenv("GO_APP_ENV", Production)
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	c := &Configuration{}
	require.NoError(t, c.load(nil))

	require.Equal(t, []string{"/admin/", "/bulk-delete", "/role"}, c.Audit.SensitivePathList())
	require.Equal(t, ":8080", c.SocketAddress)
	require.Equal(t, "debug", c.LogLevel)
}

func TestMailOptions_Configured(t *testing.T) {
	m := &MailOptions{}
	require.False(t, m.Configured())
	m.Host = "smtp.example.org"
	require.True(t, m.Configured())
}
