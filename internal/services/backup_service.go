package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/repository"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
	"github.com/logicflow/engine/pkg/telemetry"
)

// BackupService exports and imports a user's whole project set.
type BackupService interface {
	Export(ctx context.Context, userID string) (*models.BackupDocument, error)
	// ExportJSON is Export rendered as indented JSON.
	ExportJSON(ctx context.Context, userID string) ([]byte, error)
	Metadata(ctx context.Context, userID string) (*models.BackupMetadata, error)
	Import(ctx context.Context, userID string, doc *models.BackupDocument, policy models.ConflictPolicy) (*models.ImportResult, error)
	// ImportJSON validates raw against the backup schema, then imports it.
	ImportJSON(ctx context.Context, userID string, raw []byte, policy models.ConflictPolicy) (*models.ImportResult, error)
}

type backupService struct {
	store  repository.Store
	clock  Clock
	schema *gojsonschema.Schema
}

// NewBackupService builds a BackupService over store.
func NewBackupService(store repository.Store, clock Clock) (BackupService, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(backupSchema))
	if err != nil {
		return nil, fmt.Errorf("compile backup schema: %w", err)
	}
	return &backupService{store: store, clock: clock, schema: schema}, nil
}

var _ BackupService = (*backupService)(nil)

func (s *backupService) Export(ctx context.Context, userID string) (*models.BackupDocument, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "backup.export", attribute.String(telemetry.UserIDKey, userID))
	defer span.End()

	projects, err := s.store.Projects().ListAll(ctx, userID)
	if err != nil {
		telemetry.SetError(span, err)
		return nil, err
	}

	doc := &models.BackupDocument{
		Version:    models.BackupFormatVersion,
		ExportedAt: s.clock.millis(),
		UserID:     userID,
		Projects:   make([]models.BackupProject, 0, len(projects)),
	}
	for i := range projects {
		p := &projects[i]
		entries, err := s.store.History().ListByProject(ctx, userID, p.ID)
		if err != nil {
			telemetry.SetError(span, err, attribute.String(telemetry.ProjectIDKey, p.ID))
			return nil, err
		}
		doc.Projects = append(doc.Projects, toBackupProject(p, entries))
	}

	span.SetAttributes(attribute.Int("backup.projects", len(doc.Projects)))
	logger.L().Info("backup exported", zap.String("user_id", userID), zap.Int("projects", len(doc.Projects)))
	return doc, nil
}

func toBackupProject(p *models.Project, entries []models.ProjectHistory) models.BackupProject {
	bp := models.BackupProject{
		ID:        p.ID,
		Name:      p.Name,
		Code:      p.Code,
		Nodes:     nonNil([]models.Node(p.Nodes)),
		Edges:     nonNil([]models.Edge(p.Edges)),
		UpdatedAt: p.UpdatedAt,
		IsDeleted: p.IsDeleted,
		DeletedAt: p.DeletedAt,
		ShareID:   p.ShareID,
		IsPublic:  p.IsPublic,
		SharedBy:  p.SharedBy,
		SharedAt:  p.SharedAt,
		History:   make([]models.BackupRecord, 0, len(entries)),
	}
	for _, h := range entries {
		bp.History = append(bp.History, models.BackupRecord{
			ID:             h.ID,
			Action:         h.Action,
			ChangedBy:      h.ChangedBy,
			ChangedAt:      h.ChangedAt,
			PreviousValues: map[string]any(h.PreviousValues),
		})
	}
	return bp
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *backupService) ExportJSON(ctx context.Context, userID string) ([]byte, error) {
	doc, err := s.Export(ctx, userID)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode backup failed")
	}
	return b, nil
}

func (s *backupService) Metadata(ctx context.Context, userID string) (*models.BackupMetadata, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	count, last, err := s.store.Projects().Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.BackupMetadata{ProjectCount: count, LastUpdated: last}, nil
}

func (s *backupService) ImportJSON(ctx context.Context, userID string, raw []byte, policy models.ConflictPolicy) (*models.ImportResult, error) {
	if !json.Valid(raw) {
		return nil, appErr.New(appErr.CodeBadRequest, "invalid JSON format")
	}
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeBadRequest, "invalid backup data format")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, appErr.New(appErr.CodeInvalid, "invalid backup data format: "+strings.Join(msgs, "; ")).
			WithMeta("errors", msgs)
	}

	var doc models.BackupDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeBadRequest, "invalid backup data format")
	}
	return s.Import(ctx, userID, &doc, policy)
}

func (s *backupService) Import(ctx context.Context, userID string, doc *models.BackupDocument, policy models.ConflictPolicy) (*models.ImportResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = models.ConflictRename
	}
	if !policy.Valid() {
		return nil, appErr.Newf(appErr.CodeInvalid, "unknown conflict policy %q: use rename, skip or overwrite", policy)
	}
	if doc == nil {
		return nil, appErr.New(appErr.CodeBadRequest, "missing backup document")
	}
	if doc.Version != models.BackupFormatVersion {
		return nil, appErr.Newf(appErr.CodeInvalid, "unsupported backup version: %s", doc.Version)
	}
	if doc.UserID != userID {
		return nil, appErr.New(appErr.CodeForbidden, "backup user ID does not match target user ID")
	}

	ctx, span := telemetry.StartSpan(ctx, "backup.import",
		attribute.String(telemetry.UserIDKey, userID),
		attribute.String("backup.policy", string(policy)))
	defer span.End()

	res := &models.ImportResult{Errors: []string{}}
	for i := range doc.Projects {
		bp := &doc.Projects[i]
		skipped, err := s.importProject(ctx, userID, bp, policy)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, fmt.Sprintf("failed to import project %s: %v", bp.ID, err))
			logger.L().Warn("project import failed", zap.String("user_id", userID), zap.String("project_id", bp.ID), zap.Error(err))
		case skipped:
			res.Skipped++
		default:
			res.Imported++
		}
	}

	span.SetAttributes(
		attribute.Int("backup.imported", res.Imported),
		attribute.Int("backup.skipped", res.Skipped),
		attribute.Int("backup.errors", len(res.Errors)))
	logger.L().Info("backup imported",
		zap.String("user_id", userID),
		zap.String("policy", string(policy)),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

// importProject writes one project and its history in its own transaction.
func (s *backupService) importProject(ctx context.Context, userID string, bp *models.BackupProject, policy models.ConflictPolicy) (bool, error) {
	skipped := false
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if policy == models.ConflictRename {
			return s.importRenamed(ctx, tx, userID, bp)
		}

		exists, err := tx.Projects().Exists(ctx, userID, bp.ID)
		if err != nil {
			return err
		}
		if exists && policy == models.ConflictSkip {
			skipped = true
			return nil
		}

		p := fromBackupProject(userID, bp)
		if err := tx.Projects().Save(ctx, p); err != nil {
			return err
		}
		for i := len(bp.History) - 1; i >= 0; i-- {
			h := bp.History[i]
			if err := tx.History().Upsert(ctx, historyFromRecord(userID, p.ID, h.ID, h)); err != nil {
				return err
			}
		}
		return nil
	})
	return skipped, err
}

// importRenamed always lands the project under a fresh id, so it never collides.
func (s *backupService) importRenamed(ctx context.Context, tx repository.Store, userID string, bp *models.BackupProject) error {
	now := s.clock.now()
	p := fromBackupProject(userID, bp)
	base := fmt.Sprintf("%s_%d", bp.ID, now.UnixMilli())
	p.ID = base
	for n := 1; ; n++ {
		exists, err := tx.Projects().Exists(ctx, userID, p.ID)
		if err != nil {
			return err
		}
		if !exists {
			break
		}
		p.ID = fmt.Sprintf("%s_%d", base, n)
	}
	suffix := fmt.Sprintf(" (Import %s)", now.UTC().Format(time.RFC3339))
	p.Name = truncateRunes(bp.Name, maxProjectNameLen-utf8.RuneCountInString(suffix)) + suffix
	p.UpdatedAt = now.UnixMilli()
	// A share token is unique; the copy starts unshared.
	p.ShareID, p.IsPublic, p.SharedBy, p.SharedAt = nil, false, nil, nil

	if err := tx.Projects().Create(ctx, p); err != nil {
		return err
	}
	// Documents list history newest first; append oldest first so ties keep that order.
	for i := len(bp.History) - 1; i >= 0; i-- {
		if err := tx.History().Append(ctx, historyFromRecord(userID, p.ID, newID(), bp.History[i])); err != nil {
			return err
		}
	}
	return nil
}

const maxProjectNameLen = 255

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func fromBackupProject(userID string, bp *models.BackupProject) *models.Project {
	return &models.Project{
		UserID:    userID,
		ID:        bp.ID,
		Name:      bp.Name,
		Code:      bp.Code,
		Nodes:     datatypes.JSONSlice[models.Node](nonNil(bp.Nodes)),
		Edges:     datatypes.JSONSlice[models.Edge](nonNil(bp.Edges)),
		UpdatedAt: bp.UpdatedAt,
		IsDeleted: bp.IsDeleted,
		DeletedAt: bp.DeletedAt,
		ShareID:   bp.ShareID,
		IsPublic:  bp.IsPublic,
		SharedBy:  bp.SharedBy,
		SharedAt:  bp.SharedAt,
	}
}

func historyFromRecord(userID, projectID, id string, h models.BackupRecord) *models.ProjectHistory {
	return &models.ProjectHistory{
		UserID:         userID,
		ProjectID:      projectID,
		ID:             id,
		Action:         h.Action,
		ChangedBy:      h.ChangedBy,
		ChangedAt:      h.ChangedAt,
		PreviousValues: datatypes.JSONMap(h.PreviousValues),
	}
}
