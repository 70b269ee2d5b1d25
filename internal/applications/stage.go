package applications

import "placement-backend/internal/users"

// Stage is a named position in an application's ordered lifecycle.
type Stage string

const (
	StageSubmitted        Stage = "SUBMITTED"
	StageUnderReview      Stage = "UNDER_REVIEW"
	StageShortlisted      Stage = "SHORTLISTED"
	StageMedicalRequested Stage = "MEDICAL_REQUESTED"
	StageMedicalSubmitted Stage = "MEDICAL_SUBMITTED"
	StageMedicalApproved  Stage = "MEDICAL_APPROVED"
	StageContractSent     Stage = "CONTRACT_SENT"
	StageContractSigned   Stage = "CONTRACT_SIGNED"
	StageVisaApproved     Stage = "VISA_APPROVED"
	StageFlightTicketSent Stage = "FLIGHT_TICKET_SENT"
	StageDeploymentReady  Stage = "DEPLOYMENT_READY"

	// Absorbing terminals, reachable from any non-terminal stage.
	StageWithdrawn Stage = "WITHDRAWN"
	StageRejected  Stage = "REJECTED"
)

// forwardOrder lists the forward pipeline in catalog order. The two
// absorbing terminals sit outside the ordering.
var forwardOrder = []Stage{
	StageSubmitted,
	StageUnderReview,
	StageShortlisted,
	StageMedicalRequested,
	StageMedicalSubmitted,
	StageMedicalApproved,
	StageContractSent,
	StageContractSigned,
	StageVisaApproved,
	StageFlightTicketSent,
	StageDeploymentReady,
}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(forwardOrder))
	for i, s := range forwardOrder {
		m[s] = i
	}
	return m
}()

// entryRole maps each stage to the role that triggers the transition
// entering it. DEPLOYMENT_READY carries no role restriction beyond
// ownership, so it is absent here.
var entryRole = map[Stage]users.Role{
	StageUnderReview:      users.RoleEmployer,
	StageShortlisted:      users.RoleEmployer,
	StageMedicalRequested: users.RoleEmployer,
	StageMedicalSubmitted: users.RoleEmployee,
	StageMedicalApproved:  users.RoleEmployer,
	StageContractSent:     users.RoleEmployer,
	StageContractSigned:   users.RoleEmployee,
	StageVisaApproved:     users.RoleEmployer,
	StageFlightTicketSent: users.RoleEmployer,
	StageWithdrawn:        users.RoleEmployee,
	StageRejected:         users.RoleEmployer,
}

// requiredAttachment maps stages that gate on a document to the attachment
// kind that must accompany the transition.
var requiredAttachment = map[Stage]AttachmentKind{
	StageMedicalSubmitted: AttachmentMedicalDocument,
	StageContractSent:     AttachmentContractDocument,
	StageFlightTicketSent: AttachmentFlightTicket,
}

// closesJob marks stages whose entry closes the owning job.
var closesJob = map[Stage]bool{
	StageContractSigned:  true,
	StageDeploymentReady: true,
}

// ParseStage validates a raw stage string.
func ParseStage(raw string) (Stage, bool) {
	s := Stage(raw)
	if _, ok := stageIndex[s]; ok {
		return s, true
	}
	if s == StageWithdrawn || s == StageRejected {
		return s, true
	}
	return "", false
}

// Order returns the position of a forward stage in catalog order. Absorbing
// terminals return -1.
func (s Stage) Order() int {
	if i, ok := stageIndex[s]; ok {
		return i
	}
	return -1
}

// IsAbsorbing reports whether the stage is one of the two absorbing
// terminals.
func (s Stage) IsAbsorbing() bool {
	return s == StageWithdrawn || s == StageRejected
}

// IsTerminal reports whether the workflow has exited at this stage.
func (s Stage) IsTerminal() bool {
	return s == StageDeploymentReady || s.IsAbsorbing()
}

// Successor returns the next forward stage, or false when the stage has
// none.
func (s Stage) Successor() (Stage, bool) {
	i, ok := stageIndex[s]
	if !ok || i+1 >= len(forwardOrder) {
		return "", false
	}
	return forwardOrder[i+1], true
}

// ValidTarget reports whether target is reachable from s in a single
// transition: either the immediate forward successor or an absorbing
// terminal from any non-terminal stage.
func (s Stage) ValidTarget(target Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if target.IsAbsorbing() {
		return true
	}
	next, ok := s.Successor()
	return ok && next == target
}

// EntryRole returns the role required to trigger the transition entering
// target. The second return value is false when either party may act.
func EntryRole(target Stage) (users.Role, bool) {
	role, ok := entryRole[target]
	return role, ok
}

// RequiredAttachment returns the attachment kind that must accompany a
// transition into target, if any.
func RequiredAttachment(target Stage) (AttachmentKind, bool) {
	kind, ok := requiredAttachment[target]
	return kind, ok
}

// ClosesJob reports whether entering target closes the owning job.
func ClosesJob(target Stage) bool {
	return closesJob[target]
}

// AtOrPastShortlist reports whether the stage sits at SHORTLISTED or later
// in the forward pipeline.
func (s Stage) AtOrPastShortlist() bool {
	i, ok := stageIndex[s]
	return ok && i >= stageIndex[StageShortlisted]
}
