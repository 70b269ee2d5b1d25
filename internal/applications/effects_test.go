package applications

import (
	"context"
	"testing"
	"time"

	"placement-backend/internal/contracts"
	"placement-backend/internal/jobs"
	"placement-backend/internal/notifications"
	"placement-backend/internal/users"
)

func newDispatcherFixture(t *testing.T) (*Dispatcher, *MemoryRepo, jobs.Repo, contracts.Repo, *notifications.MemoryRepo) {
	t.Helper()
	jobRepo := jobs.NewMemoryRepo()
	contractRepo := contracts.NewMemoryRepo()
	noteRepo := notifications.NewMemoryRepo()
	appRepo := NewMemoryRepo(jobRepo, contractRepo)

	d := &Dispatcher{
		Apps:      appRepo,
		Jobs:      jobRepo,
		Contracts: contractRepo,
		Generator: contracts.StaticGenerator{},
		Users:     users.NewService(users.NewMemoryRepo()),
		Notifier:  &notifications.StoreSink{Repo: noteRepo},
	}
	return d, appRepo, jobRepo, contractRepo, noteRepo
}

func seedSignedApplication(t *testing.T, apps *MemoryRepo, jobRepo jobs.Repo) Application {
	t.Helper()
	ctx := context.Background()
	job := jobs.Job{ID: "job-1", EmployerID: "boss-1", Title: "Caregiver", Status: jobs.StatusOpen, CreatedAt: time.Now().UTC()}
	if err := jobRepo.Create(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	app := Application{
		ID:              "app-1",
		JobID:           job.ID,
		EmployeeID:      "emp-1",
		Stage:           StageContractSigned,
		StageTimestamps: map[Stage]time.Time{StageContractSigned: time.Now().UTC()},
		Attachments:     map[AttachmentKind]Attachment{},
		CreatedAt:       time.Now().UTC(),
	}
	if err := apps.Create(ctx, app); err != nil {
		t.Fatalf("create application: %v", err)
	}
	return app
}

func TestDispatchReplayIsIdempotent(t *testing.T) {
	d, apps, jobRepo, contractRepo, _ := newDispatcherFixture(t)
	app := seedSignedApplication(t, apps, jobRepo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := d.Dispatch(ctx, app.ID, StageContractSigned); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}

	contract, err := contractRepo.GetByApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("contract should exist: %v", err)
	}
	if contract.ApplicationID != app.ID {
		t.Fatalf("contract application = %q, want %q", contract.ApplicationID, app.ID)
	}

	job, err := jobRepo.GetByID(ctx, app.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != jobs.StatusClosed {
		t.Fatalf("job status = %s, want closed", job.Status)
	}
}

func TestDispatchStaleMessageIsNoop(t *testing.T) {
	d, apps, jobRepo, contractRepo, _ := newDispatcherFixture(t)
	app := seedSignedApplication(t, apps, jobRepo)
	ctx := context.Background()

	// The message names an older stage than the application currently
	// holds; the newer stage's transition already dispatched its effects.
	if err := d.Dispatch(ctx, app.ID, StageShortlisted); err != nil {
		t.Fatalf("dispatch stale: %v", err)
	}
	if _, err := contractRepo.GetByApplication(ctx, app.ID); err == nil {
		t.Fatal("stale message must not create a contract")
	}
}

func TestDispatchLateRedeliveryStillCreatesContract(t *testing.T) {
	d, apps, jobRepo, contractRepo, noteRepo := newDispatcherFixture(t)
	ctx := context.Background()

	job := jobs.Job{ID: "job-1", EmployerID: "boss-1", Title: "Caregiver", Status: jobs.StatusOpen, CreatedAt: time.Now().UTC()}
	if err := jobRepo.Create(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	// The worker crashed between the signing commit and its dispatch, and
	// the application advanced before the message came back.
	signedAt := time.Now().UTC().Add(-time.Minute)
	app := Application{
		ID:         "app-1",
		JobID:      job.ID,
		EmployeeID: "emp-1",
		Stage:      StageVisaApproved,
		StageTimestamps: map[Stage]time.Time{
			StageContractSigned: signedAt,
			StageVisaApproved:   time.Now().UTC(),
		},
		Attachments: map[AttachmentKind]Attachment{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := apps.Create(ctx, app); err != nil {
		t.Fatalf("create application: %v", err)
	}

	if err := d.Dispatch(ctx, app.ID, StageContractSigned); err != nil {
		t.Fatalf("dispatch redelivered message: %v", err)
	}

	if _, err := contractRepo.GetByApplication(ctx, app.ID); err != nil {
		t.Fatalf("contract should exist after redelivery: %v", err)
	}
	got, err := jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != jobs.StatusClosed {
		t.Fatalf("job status = %s, want closed", got.Status)
	}

	// Notifications for the overtaken stage stay skipped.
	for _, userID := range []string{"emp-1", "boss-1"} {
		notes, err := noteRepo.ListByUser(ctx, userID, 10)
		if err != nil {
			t.Fatalf("list notifications for %s: %v", userID, err)
		}
		if len(notes) != 0 {
			t.Fatalf("notifications for %s = %d, want 0", userID, len(notes))
		}
	}
}

func TestDispatchMissingApplication(t *testing.T) {
	d, _, _, _, _ := newDispatcherFixture(t)
	if err := d.Dispatch(context.Background(), "missing", StageShortlisted); err == nil {
		t.Fatal("dispatch of unknown application should fail so the message is retried")
	}
}

func TestDispatchNotifiesCounterparty(t *testing.T) {
	d, apps, jobRepo, _, noteRepo := newDispatcherFixture(t)
	ctx := context.Background()

	job := jobs.Job{ID: "job-1", EmployerID: "boss-1", Status: jobs.StatusOpen, ShortlistedEmployeeID: "emp-1", CreatedAt: time.Now().UTC()}
	if err := jobRepo.Create(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	app := Application{
		ID:              "app-1",
		JobID:           job.ID,
		EmployeeID:      "emp-1",
		Stage:           StageWithdrawn,
		StageTimestamps: map[Stage]time.Time{StageWithdrawn: time.Now().UTC()},
		Attachments:     map[AttachmentKind]Attachment{},
		CreatedAt:       time.Now().UTC(),
	}
	if err := apps.Create(ctx, app); err != nil {
		t.Fatalf("create application: %v", err)
	}

	if err := d.Dispatch(ctx, app.ID, StageWithdrawn); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// The employer was notified and the shortlist slot freed.
	notes, err := noteRepo.ListByUser(ctx, "boss-1", 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("employer notifications = %d, want 1", len(notes))
	}
	got, err := jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.ShortlistedEmployeeID != "" {
		t.Fatalf("shortlist slot = %q, want empty", got.ShortlistedEmployeeID)
	}
}
