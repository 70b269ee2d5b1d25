package applications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"placement-backend/internal/contracts"
	"placement-backend/internal/jobs"
	"placement-backend/internal/notifications"
	"placement-backend/internal/queue"
	"placement-backend/internal/users"
)

type testEngine struct {
	Svc       *Service
	Jobs      jobs.Repo
	Contracts contracts.Repo
	Notes     *notifications.MemoryRepo
	Apps      *MemoryRepo
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	jobRepo := jobs.NewMemoryRepo()
	contractRepo := contracts.NewMemoryRepo()
	noteRepo := notifications.NewMemoryRepo()
	userRepo := users.NewMemoryRepo()
	appRepo := NewMemoryRepo(jobRepo, contractRepo)

	dispatcher := &Dispatcher{
		Apps:      appRepo,
		Jobs:      jobRepo,
		Contracts: contractRepo,
		Generator: contracts.StaticGenerator{},
		Users:     users.NewService(userRepo),
		Notifier:  &notifications.StoreSink{Repo: noteRepo},
	}
	svc := &Service{
		Repo:       appRepo,
		Jobs:       jobRepo,
		Dispatcher: dispatcher,
	}
	return &testEngine{Svc: svc, Jobs: jobRepo, Contracts: contractRepo, Notes: noteRepo, Apps: appRepo}
}

func (e *testEngine) createJob(t *testing.T, employerID string) jobs.Job {
	t.Helper()
	job := jobs.Job{
		ID:         "job-" + employerID,
		EmployerID: employerID,
		Title:      "Housekeeper",
		Status:     jobs.StatusOpen,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.Jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

var (
	employer = Actor{UserID: "boss-1", Role: users.RoleEmployer}
	employee = Actor{UserID: "emp-1", Role: users.RoleEmployee}
)

func (e *testEngine) mustTransition(t *testing.T, actor Actor, appID string, target Stage, attachment *Attachment) Application {
	t.Helper()
	app, err := e.Svc.Transition(context.Background(), actor, appID, target, attachment)
	if err != nil {
		t.Fatalf("transition to %s: %v", target, err)
	}
	if app.Stage != target {
		t.Fatalf("stage = %s, want %s", app.Stage, target)
	}
	if _, ok := app.StageTimestamps[target]; !ok {
		t.Fatalf("missing stage timestamp for %s", target)
	}
	return app
}

func TestApplyCreatesSubmitted(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)

	app, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if app.Stage != StageSubmitted {
		t.Fatalf("stage = %s, want SUBMITTED", app.Stage)
	}
	if _, ok := app.StageTimestamps[StageSubmitted]; !ok {
		t.Fatal("missing SUBMITTED timestamp")
	}

	if _, err := e.Svc.Apply(context.Background(), employer, job.ID); !errors.Is(err, ErrWrongRole) {
		t.Fatalf("employer apply: got %v, want ErrWrongRole", err)
	}
	if _, err := e.Svc.Apply(context.Background(), employee, job.ID); !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("duplicate apply: got %v, want ErrAlreadyApplied", err)
	}
	if _, err := e.Svc.Apply(context.Background(), employee, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("apply to missing job: got %v, want ErrNotFound", err)
	}

	if err := e.Jobs.SetStatus(context.Background(), job.ID, jobs.StatusClosed); err != nil {
		t.Fatalf("close job: %v", err)
	}
	other := Actor{UserID: "emp-9", Role: users.RoleEmployee}
	if _, err := e.Svc.Apply(context.Background(), other, job.ID); !errors.Is(err, ErrJobClosed) {
		t.Fatalf("apply to closed job: got %v, want ErrJobClosed", err)
	}
}

func TestFullPipelineMonotonicity(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)
	app, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	doc := &Attachment{URL: "/api/v1/attachments/doc"}
	steps := []struct {
		actor      Actor
		target     Stage
		attachment *Attachment
	}{
		{employer, StageUnderReview, nil},
		{employer, StageShortlisted, nil},
		{employer, StageMedicalRequested, nil},
		{employee, StageMedicalSubmitted, doc},
		{employer, StageMedicalApproved, nil},
		{employer, StageContractSent, doc},
		{employee, StageContractSigned, nil},
		{employer, StageVisaApproved, nil},
		{employer, StageFlightTicketSent, doc},
		{employer, StageDeploymentReady, nil},
	}
	for _, step := range steps {
		app = e.mustTransition(t, step.actor, app.ID, step.target, step.attachment)
	}

	if !app.IsTerminal() {
		t.Fatal("application should be terminal at DEPLOYMENT_READY")
	}

	// Timestamps must appear in catalog order.
	prev := time.Time{}
	for _, stage := range []Stage{
		StageSubmitted, StageUnderReview, StageShortlisted, StageMedicalRequested,
		StageMedicalSubmitted, StageMedicalApproved, StageContractSent, StageContractSigned,
		StageVisaApproved, StageFlightTicketSent, StageDeploymentReady,
	} {
		at, ok := app.StageTimestamps[stage]
		if !ok {
			t.Fatalf("missing timestamp for %s", stage)
		}
		if at.Before(prev) {
			t.Fatalf("timestamp for %s precedes its predecessor", stage)
		}
		prev = at
	}

	// Attachments landed under their stage-mandated kinds.
	for _, kind := range []AttachmentKind{AttachmentMedicalDocument, AttachmentContractDocument, AttachmentFlightTicket} {
		att, ok := app.Attachments[kind]
		if !ok {
			t.Fatalf("missing attachment %s", kind)
		}
		if att.URL == "" || att.UploadedBy == "" {
			t.Fatalf("attachment %s incomplete: %+v", kind, att)
		}
	}

	// Contract creation and job closing ran as effects.
	if _, err := e.Contracts.GetByApplication(context.Background(), app.ID); err != nil {
		t.Fatalf("contract should exist: %v", err)
	}
	got, err := e.Jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != jobs.StatusClosed {
		t.Fatalf("job status = %s, want closed", got.Status)
	}

	// No further transitions from the terminal stage.
	if _, err := e.Svc.Transition(context.Background(), employee, app.ID, StageWithdrawn, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("transition from terminal: got %v, want ErrInvalidTransition", err)
	}
}

func TestShortlistConflict(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)

	first, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply first: %v", err)
	}
	rival := Actor{UserID: "emp-2", Role: users.RoleEmployee}
	second, err := e.Svc.Apply(context.Background(), rival, job.ID)
	if err != nil {
		t.Fatalf("apply second: %v", err)
	}

	e.mustTransition(t, employer, first.ID, StageUnderReview, nil)
	e.mustTransition(t, employer, second.ID, StageUnderReview, nil)
	e.mustTransition(t, employer, first.ID, StageShortlisted, nil)

	got, err := e.Jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.ShortlistedEmployeeID != employee.UserID {
		t.Fatalf("shortlisted = %q, want %q", got.ShortlistedEmployeeID, employee.UserID)
	}

	_, err = e.Svc.Transition(context.Background(), employer, second.ID, StageShortlisted, nil)
	if !errors.Is(err, ErrJobAlreadyShortlisted) {
		t.Fatalf("second shortlist: got %v, want ErrJobAlreadyShortlisted", err)
	}

	// The loser's stage is unchanged.
	unchanged, err := e.Svc.Get(context.Background(), rival, second.ID)
	if err != nil {
		t.Fatalf("get second: %v", err)
	}
	if unchanged.Stage != StageUnderReview {
		t.Fatalf("loser stage = %s, want UNDER_REVIEW", unchanged.Stage)
	}
}

func TestConcurrentShortlistSingleWinner(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)

	rival := Actor{UserID: "emp-2", Role: users.RoleEmployee}
	first, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply first: %v", err)
	}
	second, err := e.Svc.Apply(context.Background(), rival, job.ID)
	if err != nil {
		t.Fatalf("apply second: %v", err)
	}
	e.mustTransition(t, employer, first.ID, StageUnderReview, nil)
	e.mustTransition(t, employer, second.ID, StageUnderReview, nil)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = e.Svc.Transition(context.Background(), employer, id, StageShortlisted, nil)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrJobAlreadyShortlisted), errors.Is(err, ErrLockContention):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("shortlist winners = %d, want exactly 1", succeeded)
	}

	got, err := e.Jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.ShortlistedEmployeeID == "" {
		t.Fatal("shortlist slot should be held by the winner")
	}
}

func TestAttachmentGating(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)
	app, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	e.mustTransition(t, employer, app.ID, StageUnderReview, nil)
	e.mustTransition(t, employer, app.ID, StageShortlisted, nil)
	e.mustTransition(t, employer, app.ID, StageMedicalRequested, nil)

	_, err = e.Svc.Transition(context.Background(), employee, app.ID, StageMedicalSubmitted, nil)
	if !errors.Is(err, ErrAttachmentRequired) {
		t.Fatalf("no attachment: got %v, want ErrAttachmentRequired", err)
	}

	// Stage unchanged after the rejected attempt.
	current, err := e.Svc.Get(context.Background(), employee, app.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Stage != StageMedicalRequested {
		t.Fatalf("stage = %s, want MEDICAL_REQUESTED", current.Stage)
	}

	updated := e.mustTransition(t, employee, app.ID, StageMedicalSubmitted, &Attachment{URL: "/api/v1/attachments/med"})
	att, ok := updated.Attachments[AttachmentMedicalDocument]
	if !ok {
		t.Fatal("medical document not recorded")
	}
	if att.UploadedBy != employee.UserID {
		t.Fatalf("uploadedBy = %q, want %q", att.UploadedBy, employee.UserID)
	}
}

func TestContractSignedClosesJobOnce(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)
	app, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	doc := &Attachment{URL: "/api/v1/attachments/doc"}
	e.mustTransition(t, employer, app.ID, StageUnderReview, nil)
	e.mustTransition(t, employer, app.ID, StageShortlisted, nil)
	e.mustTransition(t, employer, app.ID, StageMedicalRequested, nil)
	e.mustTransition(t, employee, app.ID, StageMedicalSubmitted, doc)
	e.mustTransition(t, employer, app.ID, StageMedicalApproved, nil)
	e.mustTransition(t, employer, app.ID, StageContractSent, doc)
	e.mustTransition(t, employee, app.ID, StageContractSigned, nil)

	contract, err := e.Contracts.GetByApplication(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("contract should exist: %v", err)
	}
	if contract.EmployeeID != employee.UserID || contract.EmployerID != employer.UserID {
		t.Fatalf("contract parties wrong: %+v", contract)
	}

	got, err := e.Jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != jobs.StatusClosed {
		t.Fatalf("job status = %s, want closed", got.Status)
	}

	// Re-signing is not reachable from CONTRACT_SIGNED.
	if _, err := e.Svc.Transition(context.Background(), employee, app.ID, StageContractSigned, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("re-sign: got %v, want ErrInvalidTransition", err)
	}
}

func TestForeignEmployerCannotAct(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)
	app, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	intruder := Actor{UserID: "boss-2", Role: users.RoleEmployer}
	_, err = e.Svc.Transition(context.Background(), intruder, app.ID, StageUnderReview, nil)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign employer: got %v, want ErrNotOwner", err)
	}

	current, err := e.Svc.Get(context.Background(), employee, app.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Stage != StageSubmitted {
		t.Fatalf("stage = %s, want SUBMITTED", current.Stage)
	}
}

func TestWithdrawFreesShortlist(t *testing.T) {
	e := newTestEngine(t)
	job := e.createJob(t, employer.UserID)
	app, err := e.Svc.Apply(context.Background(), employee, job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	e.mustTransition(t, employer, app.ID, StageUnderReview, nil)
	e.mustTransition(t, employer, app.ID, StageShortlisted, nil)

	e.mustTransition(t, employee, app.ID, StageWithdrawn, nil)

	got, err := e.Jobs.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.ShortlistedEmployeeID != "" {
		t.Fatalf("shortlist slot = %q, want empty", got.ShortlistedEmployeeID)
	}

	// The freed job accepts a new shortlist.
	rival := Actor{UserID: "emp-2", Role: users.RoleEmployee}
	next, err := e.Svc.Apply(context.Background(), rival, job.ID)
	if err != nil {
		t.Fatalf("apply rival: %v", err)
	}
	e.mustTransition(t, employer, next.ID, StageUnderReview, nil)
	e.mustTransition(t, employer, next.ID, StageShortlisted, nil)
}

type failingQueue struct{}

func (failingQueue) Send(ctx context.Context, msg queue.Message) error {
	return errors.New("sqs unavailable")
}

func TestEnqueueFailureFallsBackToDispatcher(t *testing.T) {
	e := newTestEngine(t)
	e.Svc.Queue = failingQueue{}
	ctx := context.Background()

	job := e.createJob(t, employer.UserID)
	app, err := e.Svc.Apply(ctx, employee, job.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	e.mustTransition(t, employer, app.ID, StageUnderReview, nil)

	// The queue rejected the message, so the effects ran in process.
	notes, err := e.Notes.ListByUser(ctx, employee.UserID, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("employee notifications = %d, want 1", len(notes))
	}
}

func TestListMineWindow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var jobID string
	for i := 0; i < 3; i++ {
		job := jobs.Job{
			ID:         "job-" + string(rune('a'+i)),
			EmployerID: employer.UserID,
			Title:      "Housekeeper",
			Status:     jobs.StatusOpen,
			CreatedAt:  time.Now().UTC(),
		}
		if err := e.Jobs.Create(ctx, job); err != nil {
			t.Fatalf("create job: %v", err)
		}
		jobID = job.ID
		if _, err := e.Svc.Apply(ctx, employee, job.ID); err != nil {
			t.Fatalf("apply to %s: %v", job.ID, err)
		}
	}

	page, err := e.Svc.ListMine(ctx, employee, "", 2, 0)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("first page = %d entries, want 2", len(page))
	}
	rest, err := e.Svc.ListMine(ctx, employee, "", 2, 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("second page = %d entries, want 1", len(rest))
	}
	if page[0].ID == rest[0].ID || page[1].ID == rest[0].ID {
		t.Fatal("pages overlap")
	}

	got, err := e.Svc.ListMine(ctx, employer, jobID, 1, 0)
	if err != nil {
		t.Fatalf("employer page: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("employer page = %d entries, want 1", len(got))
	}
}
