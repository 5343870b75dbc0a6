// Package memory is a process-local Store used in development mode and tests.
// Transactions are serialised by one mutex and applied copy-on-write.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/repository"
	appErr "github.com/logicflow/engine/pkg/errors"
)

type projectKey struct {
	userID    string
	projectID string
}

type versionKey struct {
	projectKey
	versionID string
}

type state struct {
	projects       map[projectKey]*models.Project
	history        map[projectKey][]models.ProjectHistory
	versions       map[projectKey][]models.ProjectVersion
	versionHistory map[versionKey][]models.VersionHistory
}

func newState() *state {
	return &state{
		projects:       map[projectKey]*models.Project{},
		history:        map[projectKey][]models.ProjectHistory{},
		versions:       map[projectKey][]models.ProjectVersion{},
		versionHistory: map[versionKey][]models.VersionHistory{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, p := range s.projects {
		c.projects[k] = p.Clone()
	}
	for k, h := range s.history {
		c.history[k] = append([]models.ProjectHistory(nil), h...)
	}
	for k, v := range s.versions {
		c.versions[k] = append([]models.ProjectVersion(nil), v...)
	}
	for k, h := range s.versionHistory {
		c.versionHistory[k] = append([]models.VersionHistory(nil), h...)
	}
	return c
}

// Store is the in-memory repository.Store.
type Store struct {
	mu sync.Mutex
	st *state
	// tx is set on the view handed to a transaction callback.
	tx *state
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// view runs fn against the transaction state, or against the shared state under the lock.
func (s *Store) view(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) Projects() repository.ProjectRepository { return projects{s} }
func (s *Store) History() repository.HistoryRepository  { return history{s} }
func (s *Store) Versions() repository.VersionRepository { return versions{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return appErr.Wrap(err, appErr.CodeDeadline, "transaction canceled")
	}

	work := s.st.clone()
	if err := fn(&Store{tx: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

type projects struct{ s *Store }

func (r projects) Create(_ context.Context, p *models.Project) error {
	return r.s.view(func(st *state) error {
		k := projectKey{p.UserID, p.ID}
		if _, ok := st.projects[k]; ok {
			return appErr.New(appErr.CodeConflict, "project already exists")
		}
		st.projects[k] = p.Clone()
		return nil
	})
}

func (r projects) Get(_ context.Context, userID, projectID string) (*models.Project, error) {
	var out *models.Project
	err := r.s.view(func(st *state) error {
		p, ok := st.projects[projectKey{userID, projectID}]
		if !ok {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r projects) GetForUpdate(ctx context.Context, userID, projectID string) (*models.Project, error) {
	return r.Get(ctx, userID, projectID)
}

func (r projects) Save(_ context.Context, p *models.Project) error {
	return r.s.view(func(st *state) error {
		st.projects[projectKey{p.UserID, p.ID}] = p.Clone()
		return nil
	})
}

func (r projects) Delete(_ context.Context, userID, projectID string) error {
	return r.s.view(func(st *state) error {
		k := projectKey{userID, projectID}
		if _, ok := st.projects[k]; !ok {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		delete(st.projects, k)
		return nil
	})
}

func (r projects) Exists(_ context.Context, userID, projectID string) (bool, error) {
	var ok bool
	err := r.s.view(func(st *state) error {
		_, ok = st.projects[projectKey{userID, projectID}]
		return nil
	})
	return ok, err
}

// newestFirst orders by updatedAt desc, then id desc.
func newestFirst(ps []models.Project) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].UpdatedAt != ps[j].UpdatedAt {
			return ps[i].UpdatedAt > ps[j].UpdatedAt
		}
		return ps[i].ID > ps[j].ID
	})
}

func (r projects) ListActive(_ context.Context, userID, cursor string, limit int) ([]models.Project, error) {
	var out []models.Project
	err := r.s.view(func(st *state) error {
		var all []models.Project
		for k, p := range st.projects {
			if k.userID == userID && !p.IsDeleted {
				all = append(all, *p.Clone())
			}
		}
		newestFirst(all)

		if after, ok := st.projects[projectKey{userID, cursor}]; ok && cursor != "" {
			idx := sort.Search(len(all), func(i int) bool {
				p := all[i]
				return p.UpdatedAt < after.UpdatedAt || (p.UpdatedAt == after.UpdatedAt && p.ID < after.ID)
			})
			all = all[idx:]
		}
		if limit > 0 && len(all) > limit {
			all = all[:limit]
		}
		out = all
		return nil
	})
	return out, err
}

func (r projects) ListAll(_ context.Context, userID string) ([]models.Project, error) {
	var out []models.Project
	err := r.s.view(func(st *state) error {
		for k, p := range st.projects {
			if k.userID == userID {
				out = append(out, *p.Clone())
			}
		}
		newestFirst(out)
		return nil
	})
	return out, err
}

func (r projects) FindByShareID(_ context.Context, shareID string) (*models.Project, error) {
	var out *models.Project
	err := r.s.view(func(st *state) error {
		for _, p := range st.projects {
			if p.ShareID != nil && *p.ShareID == shareID && p.IsPublic && !p.IsDeleted {
				out = p.Clone()
				return nil
			}
		}
		return appErr.New(appErr.CodeNotFound, "project not found")
	})
	return out, err
}

func (r projects) Stats(_ context.Context, userID string) (int64, int64, error) {
	var count, last int64
	err := r.s.view(func(st *state) error {
		for k, p := range st.projects {
			if k.userID != userID {
				continue
			}
			count++
			if p.UpdatedAt > last {
				last = p.UpdatedAt
			}
		}
		return nil
	})
	return count, last, err
}

type history struct{ s *Store }

func (r history) Append(_ context.Context, h *models.ProjectHistory) error {
	return r.s.view(func(st *state) error {
		k := projectKey{h.UserID, h.ProjectID}
		for _, e := range st.history[k] {
			if e.ID == h.ID {
				return appErr.New(appErr.CodeConflict, "history entry already exists")
			}
		}
		st.history[k] = append(st.history[k], *h)
		return nil
	})
}

func (r history) Upsert(_ context.Context, h *models.ProjectHistory) error {
	return r.s.view(func(st *state) error {
		k := projectKey{h.UserID, h.ProjectID}
		for i, e := range st.history[k] {
			if e.ID == h.ID {
				st.history[k][i] = *h
				return nil
			}
		}
		st.history[k] = append(st.history[k], *h)
		return nil
	})
}

func (r history) ListByProject(_ context.Context, userID, projectID string) ([]models.ProjectHistory, error) {
	var out []models.ProjectHistory
	err := r.s.view(func(st *state) error {
		out = append(out, st.history[projectKey{userID, projectID}]...)
		return nil
	})
	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangedAt > out[j].ChangedAt })
	return out, err
}

type versions struct{ s *Store }

func (r versions) Create(_ context.Context, v *models.ProjectVersion) error {
	return r.s.view(func(st *state) error {
		k := projectKey{v.UserID, v.ProjectID}
		for _, e := range st.versions[k] {
			if e.ID == v.ID || e.Version == v.Version {
				return appErr.New(appErr.CodeConflict, "version already exists")
			}
		}
		st.versions[k] = append(st.versions[k], *v)
		return nil
	})
}

func (r versions) Get(_ context.Context, userID, projectID, versionID string) (*models.ProjectVersion, error) {
	var out *models.ProjectVersion
	err := r.s.view(func(st *state) error {
		for _, e := range st.versions[projectKey{userID, projectID}] {
			if e.ID == versionID {
				v := e
				out = &v
				return nil
			}
		}
		return appErr.New(appErr.CodeNotFound, "version not found")
	})
	return out, err
}

func (r versions) List(_ context.Context, userID, projectID string, limit int) ([]models.ProjectVersion, error) {
	var out []models.ProjectVersion
	err := r.s.view(func(st *state) error {
		out = append(out, st.versions[projectKey{userID, projectID}]...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r versions) MaxNumber(_ context.Context, userID, projectID string) (int, error) {
	var max int
	err := r.s.view(func(st *state) error {
		for _, e := range st.versions[projectKey{userID, projectID}] {
			if e.Version > max {
				max = e.Version
			}
		}
		return nil
	})
	return max, err
}

func (r versions) Delete(_ context.Context, userID, projectID, versionID string) error {
	return r.s.view(func(st *state) error {
		k := projectKey{userID, projectID}
		list := st.versions[k]
		for i, e := range list {
			if e.ID == versionID {
				st.versions[k] = append(list[:i:i], list[i+1:]...)
				delete(st.versionHistory, versionKey{k, versionID})
				return nil
			}
		}
		return appErr.New(appErr.CodeNotFound, "version not found")
	})
}

func (r versions) DeleteByProject(_ context.Context, userID, projectID string) (int64, error) {
	var n int64
	err := r.s.view(func(st *state) error {
		k := projectKey{userID, projectID}
		n = int64(len(st.versions[k]))
		delete(st.versions, k)
		for vk := range st.versionHistory {
			if vk.projectKey == k {
				delete(st.versionHistory, vk)
			}
		}
		return nil
	})
	return n, err
}

func (r versions) DeleteOrphans(_ context.Context) (int64, error) {
	var n int64
	err := r.s.view(func(st *state) error {
		for k, list := range st.versions {
			if _, ok := st.projects[k]; ok {
				continue
			}
			n += int64(len(list))
			delete(st.versions, k)
		}
		for vk := range st.versionHistory {
			if _, ok := st.projects[vk.projectKey]; !ok {
				delete(st.versionHistory, vk)
			}
		}
		return nil
	})
	return n, err
}

func (r versions) AppendHistory(_ context.Context, h *models.VersionHistory) error {
	return r.s.view(func(st *state) error {
		k := versionKey{projectKey{h.UserID, h.ProjectID}, h.VersionID}
		st.versionHistory[k] = append(st.versionHistory[k], *h)
		return nil
	})
}

func (r versions) ListHistory(_ context.Context, userID, projectID, versionID string) ([]models.VersionHistory, error) {
	var out []models.VersionHistory
	err := r.s.view(func(st *state) error {
		out = append(out, st.versionHistory[versionKey{projectKey{userID, projectID}, versionID}]...)
		return nil
	})
	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RestoredAt > out[j].RestoredAt })
	return out, err
}
