package applications

import "errors"

var (
	// ErrNotFound indicates the application or a referenced record does
	// not exist.
	ErrNotFound = errors.New("application not found")

	// ErrNotOwner indicates the actor does not own the job or the
	// application it tried to act on.
	ErrNotOwner = errors.New("actor does not own this application or job")

	// ErrWrongRole indicates the actor's role cannot trigger the requested
	// transition.
	ErrWrongRole = errors.New("actor role cannot trigger this transition")

	// ErrInvalidTransition indicates the target stage is not reachable
	// from the current stage.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrStageRegression indicates the target stage precedes the current
	// stage in catalog order.
	ErrStageRegression = errors.New("stage may not regress")

	// ErrJobAlreadyShortlisted indicates the job's shortlist slot is held
	// by another application.
	ErrJobAlreadyShortlisted = errors.New("job already has a shortlisted application")

	// ErrContractAlreadyExists indicates a contract already references
	// this application.
	ErrContractAlreadyExists = errors.New("contract already exists for this application")

	// ErrAttachmentRequired indicates the target stage mandates a document
	// and none was supplied.
	ErrAttachmentRequired = errors.New("attachment required for this stage")

	// ErrLockContention indicates the row lock could not be acquired. The
	// service retries with bounded backoff before surfacing it.
	ErrLockContention = errors.New("application is locked by a concurrent transition")

	// ErrJobClosed indicates the job no longer accepts applications.
	ErrJobClosed = errors.New("job is closed")

	// ErrAlreadyApplied indicates the employee already has an application
	// for this job.
	ErrAlreadyApplied = errors.New("employee already applied to this job")
)
