package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	mw "github.com/logicflow/engine/internal/api/middleware"
	"github.com/logicflow/engine/internal/api/types"
	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/repository"
	"github.com/logicflow/engine/internal/services"
	"github.com/logicflow/engine/pkg/database"
	"github.com/logicflow/engine/pkg/logger"
	"github.com/logicflow/engine/pkg/utils"
)

func backupFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "user",
			Aliases:  []string{"u"},
			Usage:    "Owner of the projects",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "server",
			Usage:   "Base URL of the API server",
			Value:   "http://localhost:8080",
			Sources: cli.EnvVars("FLOW_SERVER"),
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Bearer token; minted from --secret when empty",
			Sources: cli.EnvVars("FLOW_TOKEN"),
		},
		newSecretFlag(),
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Talk to PostgreSQL directly instead of the API server",
			Sources: cli.EnvVars("FLOWCTL_DATABASE_URL"),
		},
	}
}

func NewBackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Export or import a user's projects",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write every project of a user, with history, to a file",
				Flags: append(backupFlags(), &cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Usage:   "Output file; stdout when empty",
				}),
				Action: runExport,
			},
			{
				Name:      "import",
				Usage:     "Restore projects from a backup file",
				ArgsUsage: "<backup.json>",
				Flags: append(backupFlags(), &cli.StringFlag{
					Name:  "on-conflict",
					Usage: "rename, skip or overwrite",
					Value: string(models.ConflictRename),
				}),
				Action: runImport,
			},
		},
	}
}

func runExport(ctx context.Context, command *cli.Command) error {
	user := command.String("user")
	var body []byte
	var err error
	if dsn := command.String("database-url"); dsn != "" {
		err = withLocalBackups(ctx, dsn, func(b services.BackupService) error {
			body, err = b.ExportJSON(ctx, user)
			return err
		})
	} else {
		var c *apiClient
		if c, err = newAPIClient(command); err == nil {
			body, err = c.export(ctx, user)
		}
	}
	if err != nil {
		return err
	}
	logger.L().Info("backup exported", zap.String("user_id", user), zap.Int("bytes", len(body)))

	if path := command.String("out"); path != "" {
		if err := os.WriteFile(path, body, 0o600); err != nil {
			return err
		}
		fmt.Fprintf(command.Root().ErrWriter, "wrote %s (%d bytes)\n", path, len(body))
		return nil
	}
	_, err = command.Root().Writer.Write(body)
	return err
}

func runImport(ctx context.Context, command *cli.Command) error {
	path := command.Args().First()
	if path == "" {
		return errors.New("missing backup file argument")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	user := command.String("user")
	policy := models.ConflictPolicy(command.String("on-conflict"))
	if !policy.Valid() {
		return fmt.Errorf("invalid --on-conflict %q: use rename, skip or overwrite", policy)
	}

	var res *models.ImportResult
	if dsn := command.String("database-url"); dsn != "" {
		err = withLocalBackups(ctx, dsn, func(b services.BackupService) error {
			res, err = b.ImportJSON(ctx, user, raw, policy)
			return err
		})
	} else {
		var c *apiClient
		if c, err = newAPIClient(command); err == nil {
			res, err = c.importBackup(ctx, user, policy, raw)
		}
	}
	if err != nil {
		return err
	}

	out := command.Root().Writer
	fmt.Fprintf(out, "imported %d, skipped %d\n", res.Imported, res.Skipped)
	for _, e := range res.Errors {
		fmt.Fprintln(out, "  error:", e)
	}
	return nil
}

func withLocalBackups(ctx context.Context, dsn string, fn func(services.BackupService) error) error {
	db, err := database.OpenPostgres(ctx, logger.L(), database.Options{DSN: dsn, MaxRetries: 1})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.L().Warn("database close error", zap.Error(err))
		}
	}()
	b, err := services.NewBackupService(repository.NewGormStore(db), nil)
	if err != nil {
		return err
	}
	return fn(b)
}

type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(command *cli.Command) (*apiClient, error) {
	tok := command.String("token")
	if tok == "" {
		secret := command.String("secret")
		if secret == "" {
			return nil, errors.New("either --token or --secret is required")
		}
		var err error
		if tok, err = mw.IssueToken([]byte(secret), command.String("user"), 10*time.Minute); err != nil {
			return nil, err
		}
	}
	return &apiClient{
		base:  strings.TrimRight(command.String("server"), "/"),
		token: tok,
		http:  &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func (c *apiClient) do(req *http.Request) ([]byte, *http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, nil, decodeAPIError(resp.StatusCode, body)
	}
	return body, resp, nil
}

func (c *apiClient) export(ctx context.Context, user string) ([]byte, error) {
	u := c.base + "/api/backup?" + url.Values{"userId": {user}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	body, resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if want := resp.Header.Get("X-Backup-Checksum"); want != "" && want != "sha256="+utils.SumSHA256Hex(body) {
		return nil, errors.New("backup checksum mismatch")
	}
	return body, nil
}

func (c *apiClient) importBackup(ctx context.Context, user string, policy models.ConflictPolicy, raw []byte) (*models.ImportResult, error) {
	u := c.base + "/api/backup/import?" + url.Values{"userId": {user}, "onConflict": {string(policy)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var env struct {
		Data models.ImportResult `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode import response: %w", err)
	}
	return &env.Data, nil
}

func decodeAPIError(status int, body []byte) error {
	var env types.APIResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return fmt.Errorf("server returned %d %s: %s", status, env.Error.Code, env.Error.Message)
	}
	return fmt.Errorf("server returned %d", status)
}
