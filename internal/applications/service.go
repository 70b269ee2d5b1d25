package applications

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"placement-backend/internal/events"
	"placement-backend/internal/jobs"
	"placement-backend/internal/queue"
	"placement-backend/internal/shared/metrics"
	"placement-backend/internal/shared/telemetry"
	"placement-backend/internal/users"
)

const (
	maxLockRetries   = 4
	lockBackoffBase  = 25 * time.Millisecond
	lockBackoffLimit = 400 * time.Millisecond
)

// Service drives the application workflow. Transitions run the guard and
// invariant checks under the repo's row locks, commit atomically, then hand
// side effects to the queue. When Queue is nil effects run in-process
// through Dispatcher.
type Service struct {
	Repo       Repo
	Jobs       jobs.Repo
	Queue      queue.Client
	Dispatcher *Dispatcher
	Events     *events.Publisher

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Apply creates a new application at the initial stage. Only an employee
// may apply, only to an open job, and only once per job.
func (s *Service) Apply(ctx context.Context, actor Actor, jobID string) (Application, error) {
	if actor.Role != users.RoleEmployee {
		return Application{}, ErrWrongRole
	}
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	if job.Status != jobs.StatusOpen {
		return Application{}, ErrJobClosed
	}

	now := s.now()
	app := Application{
		ID:              uuid.NewString(),
		JobID:           jobID,
		EmployeeID:      actor.UserID,
		Stage:           StageSubmitted,
		StageTimestamps: map[Stage]time.Time{StageSubmitted: now},
		Attachments:     map[AttachmentKind]Attachment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, app); err != nil {
		return Application{}, err
	}
	telemetry.Info("application.created", map[string]any{
		"applicationId": app.ID,
		"jobId":         jobID,
		"employeeId":    actor.UserID,
	})
	return app, nil
}

// Transition moves an application to the target stage on behalf of the
// actor. Lock contention is retried with jittered backoff; validation
// failures surface immediately.
func (s *Service) Transition(ctx context.Context, actor Actor, applicationID string, target Stage, attachment *Attachment) (Application, error) {
	started := time.Now()
	now := s.now()

	decide := func(snap Snapshot) (Update, error) {
		if err := Authorize(actor, snap.Application, snap.Job, target); err != nil {
			return Update{}, err
		}
		if err := CheckInvariants(snap, target); err != nil {
			return Update{}, err
		}

		update := Update{Stage: target, EnteredAt: now}
		if kind, required := RequiredAttachment(target); required {
			if attachment == nil || attachment.URL == "" {
				return Update{}, ErrAttachmentRequired
			}
			att := *attachment
			att.UploadedAt = now
			att.UploadedBy = actor.UserID
			update.AttachmentKind = kind
			update.Attachment = &att
		}
		if target == StageShortlisted {
			update.SetShortlistedEmployee = true
		}
		if target.IsAbsorbing() && snap.Job.ShortlistedEmployeeID == snap.Application.EmployeeID {
			update.ClearShortlistedEmployee = true
		}
		if ClosesJob(target) {
			update.CloseJob = true
		}
		return update, nil
	}

	var app Application
	var err error
	for attempt := 0; ; attempt++ {
		app, err = s.Repo.Transition(ctx, applicationID, decide)
		if !errors.Is(err, ErrLockContention) || attempt >= maxLockRetries {
			break
		}
		metrics.IncLockRetries()
		select {
		case <-ctx.Done():
			return Application{}, ctx.Err()
		case <-time.After(lockBackoff(attempt)):
		}
	}
	if err != nil {
		metrics.IncTransitionsRejected()
		return Application{}, err
	}

	metrics.IncTransitionsCommitted()
	metrics.ObserveTransitionDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("application.transitioned", map[string]any{
		"applicationId": app.ID,
		"jobId":         app.JobID,
		"stage":         string(app.Stage),
		"actorId":       actor.UserID,
		"actorRole":     string(actor.Role),
	})

	s.enqueueEffects(ctx, app)
	s.publishEvent(ctx, app, now)
	return app, nil
}

// Get returns an application visible to the actor: the employee who owns it
// or the employer who owns its job.
func (s *Service) Get(ctx context.Context, actor Actor, applicationID string) (Application, error) {
	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	if err := s.checkVisibility(ctx, actor, app); err != nil {
		return Application{}, err
	}
	return app, nil
}

// ListMine lists applications the actor can see: their own for employees,
// those of a given job for employers. Results are windowed oldest first.
func (s *Service) ListMine(ctx context.Context, actor Actor, jobID string, limit, offset int) ([]Application, error) {
	switch actor.Role {
	case users.RoleEmployee:
		apps, err := s.Repo.ListByEmployee(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return windowApplications(apps, limit, offset), nil
	case users.RoleEmployer:
		if jobID == "" {
			return nil, ErrNotFound
		}
		job, err := s.Jobs.GetByID(ctx, jobID)
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if job.EmployerID != actor.UserID {
			return nil, ErrNotOwner
		}
		apps, err := s.Repo.ListByJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		return windowApplications(apps, limit, offset), nil
	default:
		return nil, ErrWrongRole
	}
}

func windowApplications(apps []Application, limit, offset int) []Application {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(apps) {
		return []Application{}
	}
	end := len(apps)
	if offset+limit < end {
		end = offset + limit
	}
	return apps[offset:end]
}

// AttachmentVisible reports whether the actor is a party to an application
// that references the attachment URL. The uploader's own files are handled
// by the caller via the storage key's owner segment; this covers the
// counterparty, who sees the file through the shared application record.
func (s *Service) AttachmentVisible(ctx context.Context, actor Actor, url string) bool {
	switch actor.Role {
	case users.RoleEmployee:
		apps, err := s.Repo.ListByEmployee(ctx, actor.UserID)
		if err != nil {
			return false
		}
		return anyAttachmentMatches(apps, url)
	case users.RoleEmployer:
		for offset := 0; ; offset += attachmentScanPageSize {
			owned, err := s.Jobs.ListByEmployer(ctx, actor.UserID, attachmentScanPageSize, offset)
			if err != nil {
				return false
			}
			for _, j := range owned {
				apps, err := s.Repo.ListByJob(ctx, j.ID)
				if err != nil {
					return false
				}
				if anyAttachmentMatches(apps, url) {
					return true
				}
			}
			if len(owned) < attachmentScanPageSize {
				return false
			}
		}
	default:
		return false
	}
}

const attachmentScanPageSize = 100

func anyAttachmentMatches(apps []Application, url string) bool {
	for _, app := range apps {
		for _, att := range app.Attachments {
			if att.URL == url {
				return true
			}
		}
	}
	return false
}

func (s *Service) checkVisibility(ctx context.Context, actor Actor, app Application) error {
	switch actor.Role {
	case users.RoleEmployee:
		if app.EmployeeID != actor.UserID {
			return ErrNotOwner
		}
	case users.RoleEmployer:
		job, err := s.Jobs.GetByID(ctx, app.JobID)
		if err != nil {
			return err
		}
		if job.EmployerID != actor.UserID {
			return ErrNotOwner
		}
	default:
		return ErrWrongRole
	}
	return nil
}

// enqueueEffects hands the committed transition to the side-effect worker.
// Failures are logged and never surfaced; the stage change already stands,
// so a canceled request context must not stop the dispatch.
func (s *Service) enqueueEffects(ctx context.Context, app Application) {
	ctx = context.WithoutCancel(ctx)
	msg := queue.Message{
		ApplicationID: app.ID,
		Stage:         string(app.Stage),
		RequestID:     uuid.NewString(),
		EnqueuedAt:    s.now().Format(time.RFC3339),
		Version:       1,
	}
	if s.Queue != nil {
		err := s.Queue.Send(ctx, msg)
		if err == nil {
			return
		}
		// The stage change already stands, so the effects must not be
		// lost with the message. Run them in process instead; they are
		// idempotent if the queue send half-succeeded.
		telemetry.Error("effects.enqueue_failed", map[string]any{
			"applicationId": app.ID,
			"stage":         string(app.Stage),
			"error":         err.Error(),
		})
	}
	if s.Dispatcher == nil {
		return
	}
	if err := s.Dispatcher.Dispatch(ctx, app.ID, app.Stage); err != nil {
		telemetry.Error("effects.dispatch_failed", map[string]any{
			"applicationId": app.ID,
			"stage":         string(app.Stage),
			"error":         err.Error(),
		})
	}
}

func (s *Service) publishEvent(ctx context.Context, app Application, at time.Time) {
	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, events.TransitionEvent{
		ApplicationID: app.ID,
		JobID:         app.JobID,
		EmployeeID:    app.EmployeeID,
		Stage:         string(app.Stage),
		At:            at.Format(time.RFC3339),
	})
	if err != nil {
		telemetry.Error("events.publish_failed", map[string]any{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
}

func lockBackoff(attempt int) time.Duration {
	backoff := lockBackoffBase << attempt
	if backoff > lockBackoffLimit {
		backoff = lockBackoffLimit
	}
	jitter := time.Duration(rand.Int63n(int64(lockBackoffBase)))
	return backoff + jitter
}
