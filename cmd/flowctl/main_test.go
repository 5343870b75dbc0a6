package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	mw "github.com/logicflow/engine/internal/api/middleware"
	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/pkg/logger"
	"github.com/logicflow/engine/pkg/utils"
)

const testSecret = "flowctl-test-secret-1234"

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runAt(t, "error", args...)
	return out, err
}

func runAt(t *testing.T, level string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{"flowctl", "--log-level", level}, args...))
	return out.String(), errOut.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--secret", testSecret, "--user", "u1")
	require.NoError(t, err)

	sub, err := mw.ParseToken([]byte(testSecret), strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "u1", sub)

	_, err = run(t, "token", "--secret", "short", "--user", "u1")
	require.Error(t, err)
}

func TestTraceCommand(t *testing.T) {
	graph := `{
		"nodes": [
			{"id":"a","type":"oval","data":{"label":"Start"},"position":{"x":0,"y":0}},
			{"id":"b","type":"rectangle","data":{"label":"x = 1"},"position":{"x":0,"y":100}}
		],
		"edges": [{"id":"e1","source":"a","target":"b"}]
	}`
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(graph), 0o600))

	out, err := run(t, "trace", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Start")
	require.Contains(t, lines[1], "x = 1 via e1")

	out, err = run(t, "trace", "--json", "--max-steps", "0", path)
	require.NoError(t, err)
	var res struct {
		Frames    []map[string]any `json:"frames"`
		Truncated bool             `json:"truncated"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Frames, 1)
	require.True(t, res.Truncated)

	_, err = run(t, "trace")
	require.Error(t, err)
}

func TestBackupCommandsOverHTTP(t *testing.T) {
	doc := []byte(`{"version":"1.0","exportedAt":1,"userId":"u1","projects":[]}`)
	var imported []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := mw.ParseToken([]byte(testSecret), strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if err != nil || sub != "u1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"unauthorized","message":"invalid or expired token"}}`))
			return
		}
		switch r.URL.Path {
		case "/api/backup":
			w.Header().Set("X-Backup-Checksum", "sha256="+utils.SumSHA256Hex(doc))
			_, _ = w.Write(doc)
		case "/api/backup/import":
			require.Equal(t, "skip", r.URL.Query().Get("onConflict"))
			imported, _ = io.ReadAll(r.Body)
			_, _ = w.Write([]byte(`{"success":true,"data":{"imported":0,"skipped":2,"errors":["failed to import project p: boom"]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "backup.json")
	_, err := run(t, "backup", "export", "--server", srv.URL, "--secret", testSecret, "--user", "u1", "--out", path)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, doc, got)

	out, err := run(t, "backup", "import", "--server", srv.URL, "--secret", testSecret, "--user", "u1", "--on-conflict", "skip", path)
	require.NoError(t, err)
	require.Equal(t, doc, imported)
	require.Contains(t, out, "imported 0, skipped 2")
	require.Contains(t, out, "boom")

	_, err = run(t, "backup", "export", "--server", srv.URL, "--token", "garbage", "--user", "u1")
	require.ErrorContains(t, err, "401 unauthorized")

	_, err = run(t, "backup", "import", "--server", srv.URL, "--secret", testSecret, "--user", "u1", "--on-conflict", "merge", path)
	require.ErrorContains(t, err, "invalid --on-conflict")
}

func TestExportToStdoutKeepsLogsOnStderr(t *testing.T) {
	doc := []byte(`{"version":"1.0","exportedAt":1,"userId":"u1","projects":[]}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backup-Checksum", "sha256="+utils.SumSHA256Hex(doc))
		_, _ = w.Write(doc)
	}))
	defer srv.Close()
	defer func() { _, _ = logger.Init("error", "json") }()

	out, errOut, err := runAt(t, "info", "backup", "export", "--server", srv.URL, "--secret", testSecret, "--user", "u1")
	require.NoError(t, err)

	var got models.BackupDocument
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "u1", got.UserID)
	require.Contains(t, errOut, "backup exported")
}
