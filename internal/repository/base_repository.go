package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErr "github.com/logicflow/engine/pkg/errors"
)

const pgUniqueViolation = "23505"

// baseRepository holds the CRUD plumbing shared by the gorm repositories.
// entity names the row kind in error messages.
type baseRepository[T any] struct {
	db     *gorm.DB
	entity string
}

func newBaseRepository[T any](db *gorm.DB, entity string) baseRepository[T] {
	return baseRepository[T]{db: db, entity: entity}
}

func (r baseRepository[T]) create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return r.translate(err, "create")
	}
	return nil
}

func (r baseRepository[T]) upsert(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(obj).Error; err != nil {
		return r.translate(err, "upsert")
	}
	return nil
}

func (r baseRepository[T]) first(ctx context.Context, where map[string]any, lock bool) (*T, error) {
	var out T
	q := r.db.WithContext(ctx).Where(where)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Take(&out).Error; err != nil {
		return nil, r.translate(err, "get")
	}
	return &out, nil
}

func (r baseRepository[T]) deleteWhere(ctx context.Context, where map[string]any) (int64, error) {
	var t T
	res := r.db.WithContext(ctx).Where(where).Delete(&t)
	if res.Error != nil {
		return 0, r.translate(res.Error, "delete")
	}
	return res.RowsAffected, nil
}

func (r baseRepository[T]) count(ctx context.Context, where map[string]any) (int64, error) {
	var n int64
	var t T
	if err := r.db.WithContext(ctx).Model(&t).Where(where).Count(&n).Error; err != nil {
		return 0, r.translate(err, "count")
	}
	return n, nil
}

func (r baseRepository[T]) translate(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr.New(appErr.CodeNotFound, r.entity+" not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return appErr.Wrap(err, appErr.CodeConflict, r.entity+" already exists")
	}
	return appErr.Wrap(err, appErr.CodeInternal, fmt.Sprintf("%s %s failed", op, r.entity))
}
