package applications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"placement-backend/internal/contracts"
	"placement-backend/internal/jobs"
)

// MemoryRepo is an in-memory Repo for local development and tests. Row locks
// become per-key mutexes acquired with TryLock so contention surfaces as
// ErrLockContention exactly like the Postgres NOWAIT path.
type MemoryRepo struct {
	Jobs      jobs.Repo
	Contracts contracts.Repo

	mu    sync.RWMutex
	apps  map[string]Application
	locks map[string]*sync.Mutex
}

// NewMemoryRepo creates an empty in-memory repo backed by the given job and
// contract repos.
func NewMemoryRepo(jobRepo jobs.Repo, contractRepo contracts.Repo) *MemoryRepo {
	return &MemoryRepo{
		Jobs:      jobRepo,
		Contracts: contractRepo,
		apps:      make(map[string]Application),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, app Application) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.JobID == app.JobID && existing.EmployeeID == app.EmployeeID {
			return ErrAlreadyApplied
		}
	}
	r.apps[app.ID] = cloneApplication(app)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Application, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return cloneApplication(app), nil
}

func (r *MemoryRepo) ListByEmployee(ctx context.Context, employeeID string) ([]Application, error) {
	_ = ctx
	return r.list(func(a Application) bool { return a.EmployeeID == employeeID }), nil
}

func (r *MemoryRepo) ListByJob(ctx context.Context, jobID string) ([]Application, error) {
	_ = ctx
	return r.list(func(a Application) bool { return a.JobID == jobID }), nil
}

func (r *MemoryRepo) list(keep func(Application) bool) []Application {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Application
	for _, app := range r.apps {
		if keep(app) {
			out = append(out, cloneApplication(app))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Transition serializes on the application key first, then the job key, so
// two concurrent transitions on different applications of the same job
// contend on the job lock and one of them backs off.
func (r *MemoryRepo) Transition(ctx context.Context, applicationID string, decide DecideFunc) (Application, error) {
	r.mu.RLock()
	app, ok := r.apps[applicationID]
	r.mu.RUnlock()
	if !ok {
		return Application{}, ErrNotFound
	}

	appLock := r.keyLock("app:" + applicationID)
	if !appLock.TryLock() {
		return Application{}, ErrLockContention
	}
	defer appLock.Unlock()

	jobLock := r.keyLock("job:" + app.JobID)
	if !jobLock.TryLock() {
		return Application{}, ErrLockContention
	}
	defer jobLock.Unlock()

	// Re-read under the locks.
	r.mu.RLock()
	app = r.apps[applicationID]
	r.mu.RUnlock()

	job, err := r.Jobs.GetByID(ctx, app.JobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}

	siblings, err := r.ListByJob(ctx, app.JobID)
	if err != nil {
		return Application{}, err
	}

	contractExists := false
	if _, err := r.Contracts.GetByApplication(ctx, applicationID); err == nil {
		contractExists = true
	} else if !errors.Is(err, contracts.ErrNotFound) {
		return Application{}, err
	}

	update, err := decide(Snapshot{
		Application:    cloneApplication(app),
		Job:            job,
		Siblings:       siblings,
		ContractExists: contractExists,
	})
	if err != nil {
		return Application{}, err
	}

	if update.SetShortlistedEmployee {
		if err := r.Jobs.SetShortlisted(ctx, app.JobID, app.EmployeeID); err != nil {
			if errors.Is(err, jobs.ErrShortlistTaken) {
				return Application{}, ErrJobAlreadyShortlisted
			}
			return Application{}, err
		}
	}
	if update.ClearShortlistedEmployee {
		if err := r.Jobs.ClearShortlisted(ctx, app.JobID, app.EmployeeID); err != nil {
			return Application{}, err
		}
	}
	if update.CloseJob {
		if err := r.Jobs.SetStatus(ctx, app.JobID, jobs.StatusClosed); err != nil {
			return Application{}, err
		}
	}

	next := cloneApplication(app)
	next.Stage = update.Stage
	if _, seen := next.StageTimestamps[update.Stage]; !seen {
		next.StageTimestamps[update.Stage] = update.EnteredAt
	}
	if update.Attachment != nil {
		next.Attachments[update.AttachmentKind] = *update.Attachment
	}
	next.UpdatedAt = update.EnteredAt

	r.mu.Lock()
	r.apps[applicationID] = next
	r.mu.Unlock()
	return cloneApplication(next), nil
}

func (r *MemoryRepo) keyLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

func cloneApplication(app Application) Application {
	out := app
	out.StageTimestamps = make(map[Stage]time.Time, len(app.StageTimestamps))
	for k, v := range app.StageTimestamps {
		out.StageTimestamps[k] = v
	}
	out.Attachments = make(map[AttachmentKind]Attachment, len(app.Attachments))
	for k, v := range app.Attachments {
		out.Attachments[k] = v
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
