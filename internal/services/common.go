package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	appErr "github.com/logicflow/engine/pkg/errors"
)

// StructValidator validates request structs; see internal/api/validators.
type StructValidator interface {
	Struct(any) error
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

func (c Clock) millis() int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c().UnixMilli()
}

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// VersionPurger schedules the removal of a hard-deleted project's versions.
type VersionPurger interface {
	EnqueueVersionPurge(ctx context.Context, userID, projectID string) error
}

func newID() string {
	return uuid.NewString()
}

func requireUser(userID string) error {
	if userID == "" {
		return appErr.New(appErr.CodeBadRequest, "missing userId")
	}
	return nil
}

func requireProjectID(projectID string) error {
	if projectID == "" {
		return appErr.New(appErr.CodeBadRequest, "missing project id")
	}
	return nil
}

// clampLimit applies the listing default of 20 and rejects values outside 1..100.
func clampLimit(limit int) (int, error) {
	if limit == 0 {
		return 20, nil
	}
	if limit < 1 || limit > 100 {
		return 0, appErr.New(appErr.CodeInvalid, "limit must be between 1 and 100")
	}
	return limit, nil
}
