package applications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"placement-backend/internal/contracts"
	"placement-backend/internal/jobs"
	"placement-backend/internal/notifications"
	"placement-backend/internal/shared/metrics"
	"placement-backend/internal/shared/telemetry"
)

// effectTarget is the loaded state an effect runs against.
type effectTarget struct {
	App Application
	Job jobs.Job
}

// effect is one post-transition action. Effects must be idempotent for a
// given (applicationID, stage) pair; re-dispatch after a crash replays them.
type effect struct {
	name string
	// replayable effects still run when a redelivered message arrives
	// after the application has advanced past the message's stage. Only
	// idempotent state changes qualify; notifications stay skip-on-late.
	replayable bool
	run        func(d *Dispatcher, ctx context.Context, t effectTarget) error
}

// Dispatcher fans out the side effects of committed transitions. Each
// effect runs independently; one failure is logged and does not block the
// others.
type Dispatcher struct {
	Apps      Repo
	Jobs      jobs.Repo
	Contracts contracts.Repo
	Generator contracts.Generator
	Users     UserDirectory
	Notifier  notifications.Sink
}

// UserDirectory resolves display names for notifications.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) string
}

// effectTable keys post-transition effects by the stage entered.
var effectTable = map[Stage][]effect{
	StageUnderReview: {
		{name: "notify_employee", run: notifyEmployee("Application under review", "The employer is reviewing your application.")},
	},
	StageShortlisted: {
		{name: "notify_employee", run: notifyEmployee("You have been shortlisted", "The employer shortlisted your application.")},
	},
	StageMedicalRequested: {
		{name: "notify_employee", run: notifyEmployee("Medical examination requested", "Please submit your medical examination document.")},
	},
	StageMedicalSubmitted: {
		{name: "notify_employer", run: notifyEmployer("Medical document submitted", "The candidate submitted their medical examination document.")},
	},
	StageMedicalApproved: {
		{name: "notify_employee", run: notifyEmployee("Medical examination approved", "Your medical examination was approved.")},
	},
	StageContractSent: {
		{name: "notify_employee", run: notifyEmployee("Contract sent", "The employer sent you an employment contract to sign.")},
	},
	StageContractSigned: {
		{name: "create_contract", replayable: true, run: (*Dispatcher).createContract},
		{name: "close_job", replayable: true, run: (*Dispatcher).closeJob},
		{name: "notify_employee", run: notifyEmployee("Contract signed", "Your signed contract has been recorded.")},
		{name: "notify_employer", run: notifyEmployer("Contract signed", "The candidate signed the employment contract.")},
	},
	StageVisaApproved: {
		{name: "notify_employee", run: notifyEmployee("Visa approved", "Your work visa was approved.")},
	},
	StageFlightTicketSent: {
		{name: "notify_employee", run: notifyEmployee("Flight ticket sent", "The employer sent your flight ticket.")},
	},
	StageDeploymentReady: {
		{name: "close_job", replayable: true, run: (*Dispatcher).closeJob},
		{name: "notify_employee", run: notifyEmployee("Deployment ready", "Your placement is complete. Safe travels.")},
		{name: "notify_employer", run: notifyEmployer("Deployment ready", "The candidate is ready for deployment.")},
	},
	StageWithdrawn: {
		{name: "free_shortlist", run: (*Dispatcher).freeShortlist},
		{name: "notify_employer", run: notifyEmployer("Application withdrawn", "The candidate withdrew their application.")},
	},
	StageRejected: {
		{name: "free_shortlist", run: (*Dispatcher).freeShortlist},
		{name: "notify_employee", run: notifyEmployee("Application rejected", "The employer rejected your application.")},
	},
}

// Dispatch runs the effect table row for the given stage. It returns an
// error only when the application or job cannot be loaded; per-effect
// failures are logged and swallowed so the remaining effects still run.
func (d *Dispatcher) Dispatch(ctx context.Context, applicationID string, stage Stage) error {
	app, err := d.Apps.GetByID(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("load application %s: %w", applicationID, err)
	}
	replayOnly := false
	if app.Stage != stage {
		if _, reached := app.StageTimestamps[stage]; !reached {
			// The application never entered the message's stage; nothing
			// here is owed any effect.
			telemetry.Info("effects.stale_message", map[string]any{
				"applicationId": applicationID,
				"messageStage":  string(stage),
				"currentStage":  string(app.Stage),
			})
			return nil
		}
		// The application passed through this stage and moved on before
		// the message was processed. Idempotent effects still run so a
		// crash between commit and dispatch cannot lose them; the rest
		// were overtaken by the newer stage.
		replayOnly = true
		telemetry.Info("effects.late_replay", map[string]any{
			"applicationId": applicationID,
			"messageStage":  string(stage),
			"currentStage":  string(app.Stage),
		})
	}
	job, err := d.Jobs.GetByID(ctx, app.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", app.JobID, err)
	}

	target := effectTarget{App: app, Job: job}
	for _, e := range effectTable[stage] {
		if replayOnly && !e.replayable {
			continue
		}
		if err := e.run(d, ctx, target); err != nil {
			metrics.IncEffectsFailed()
			telemetry.Error("effects.effect_failed", map[string]any{
				"applicationId": applicationID,
				"stage":         string(stage),
				"effect":        e.name,
				"error":         err.Error(),
			})
			continue
		}
		metrics.IncEffectsDispatched()
	}
	return nil
}

// createContract asks the generation collaborator for a document and
// records the contract. A contract that already exists means a replay;
// both paths are treated as success.
func (d *Dispatcher) createContract(ctx context.Context, t effectTarget) error {
	if _, err := d.Contracts.GetByApplication(ctx, t.App.ID); err == nil {
		return nil
	} else if !errors.Is(err, contracts.ErrNotFound) {
		return err
	}

	documentURL, err := d.Generator.Generate(ctx, contracts.GenerateRequest{
		ApplicationID: t.App.ID,
		JobID:         t.Job.ID,
		JobTitle:      t.Job.Title,
		EmployerID:    t.Job.EmployerID,
		EmployerName:  d.displayName(ctx, t.Job.EmployerID),
		EmployeeID:    t.App.EmployeeID,
		EmployeeName:  d.displayName(ctx, t.App.EmployeeID),
	})
	if err != nil {
		return fmt.Errorf("generate contract: %w", err)
	}

	err = d.Contracts.Create(ctx, contracts.Contract{
		ID:            uuid.NewString(),
		ApplicationID: t.App.ID,
		JobID:         t.Job.ID,
		EmployerID:    t.Job.EmployerID,
		EmployeeID:    t.App.EmployeeID,
		DocumentURL:   documentURL,
		IssuedAt:      time.Now().UTC(),
	})
	if errors.Is(err, contracts.ErrAlreadyExists) {
		return nil
	}
	return err
}

// closeJob re-checks the job status so replays are no-ops.
func (d *Dispatcher) closeJob(ctx context.Context, t effectTarget) error {
	job, err := d.Jobs.GetByID(ctx, t.Job.ID)
	if err != nil {
		return err
	}
	if job.Status == jobs.StatusClosed {
		return nil
	}
	return d.Jobs.SetStatus(ctx, t.Job.ID, jobs.StatusClosed)
}

// freeShortlist clears the job's shortlist slot if this application's
// employee still holds it. ClearShortlisted is conditional, so a replay or
// an already-cleared slot is a no-op.
func (d *Dispatcher) freeShortlist(ctx context.Context, t effectTarget) error {
	return d.Jobs.ClearShortlisted(ctx, t.Job.ID, t.App.EmployeeID)
}

func notifyEmployee(title, message string) func(*Dispatcher, context.Context, effectTarget) error {
	return func(d *Dispatcher, ctx context.Context, t effectTarget) error {
		return d.notify(ctx, t.App.EmployeeID, title, message, t)
	}
}

func notifyEmployer(title, message string) func(*Dispatcher, context.Context, effectTarget) error {
	return func(d *Dispatcher, ctx context.Context, t effectTarget) error {
		return d.notify(ctx, t.Job.EmployerID, title, message, t)
	}
}

func (d *Dispatcher) notify(ctx context.Context, userID, title, message string, t effectTarget) error {
	if d.Notifier == nil {
		return nil
	}
	return d.Notifier.Notify(ctx, userID, title, message, map[string]string{
		"applicationId": t.App.ID,
		"jobId":         t.Job.ID,
		"stage":         string(t.App.Stage),
	})
}

func (d *Dispatcher) displayName(ctx context.Context, userID string) string {
	if d.Users == nil {
		return ""
	}
	return d.Users.DisplayName(ctx, userID)
}
