package applications

import (
	"testing"

	"placement-backend/internal/users"
)

func TestParseStage(t *testing.T) {
	for _, raw := range []string{"SUBMITTED", "CONTRACT_SIGNED", "WITHDRAWN", "REJECTED", "DEPLOYMENT_READY"} {
		if _, ok := ParseStage(raw); !ok {
			t.Errorf("ParseStage(%q) = false, want true", raw)
		}
	}
	for _, raw := range []string{"", "HIRED", "submitted", "FLIGHT_PENDING"} {
		if _, ok := ParseStage(raw); ok {
			t.Errorf("ParseStage(%q) = true, want false", raw)
		}
	}
}

func TestSuccessorChain(t *testing.T) {
	want := []Stage{
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
	current := StageSubmitted
	for i := 1; i < len(want); i++ {
		next, ok := current.Successor()
		if !ok {
			t.Fatalf("%s has no successor, want %s", current, want[i])
		}
		if next != want[i] {
			t.Fatalf("successor of %s = %s, want %s", current, next, want[i])
		}
		current = next
	}
	if _, ok := StageDeploymentReady.Successor(); ok {
		t.Error("DEPLOYMENT_READY should have no successor")
	}
	if _, ok := StageWithdrawn.Successor(); ok {
		t.Error("WITHDRAWN should have no successor")
	}
}

func TestValidTarget(t *testing.T) {
	cases := []struct {
		from   Stage
		to     Stage
		want   bool
		reason string
	}{
		{StageSubmitted, StageUnderReview, true, "immediate successor"},
		{StageSubmitted, StageShortlisted, false, "skipping a stage"},
		{StageShortlisted, StageUnderReview, false, "regression"},
		{StageSubmitted, StageWithdrawn, true, "withdraw from any non-terminal"},
		{StageFlightTicketSent, StageRejected, true, "reject from any non-terminal"},
		{StageWithdrawn, StageUnderReview, false, "absorbing terminal exits the workflow"},
		{StageWithdrawn, StageRejected, false, "terminal to terminal"},
		{StageDeploymentReady, StageWithdrawn, false, "final stage is terminal"},
		{StageContractSigned, StageContractSigned, false, "re-entering the same stage"},
	}
	for _, tc := range cases {
		if got := tc.from.ValidTarget(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v (%s)", tc.from, tc.to, got, tc.want, tc.reason)
		}
	}
}

func TestEntryRoles(t *testing.T) {
	employerEntered := []Stage{
		StageUnderReview, StageShortlisted, StageMedicalRequested, StageMedicalApproved,
		StageContractSent, StageVisaApproved, StageFlightTicketSent, StageRejected,
	}
	for _, stage := range employerEntered {
		role, restricted := EntryRole(stage)
		if !restricted || role != users.RoleEmployer {
			t.Errorf("EntryRole(%s) = %v, %v; want employer", stage, role, restricted)
		}
	}
	employeeEntered := []Stage{StageMedicalSubmitted, StageContractSigned, StageWithdrawn}
	for _, stage := range employeeEntered {
		role, restricted := EntryRole(stage)
		if !restricted || role != users.RoleEmployee {
			t.Errorf("EntryRole(%s) = %v, %v; want employee", stage, role, restricted)
		}
	}
	if _, restricted := EntryRole(StageDeploymentReady); restricted {
		t.Error("DEPLOYMENT_READY should not be role-restricted")
	}
}

func TestRequiredAttachment(t *testing.T) {
	cases := map[Stage]AttachmentKind{
		StageMedicalSubmitted: AttachmentMedicalDocument,
		StageContractSent:     AttachmentContractDocument,
		StageFlightTicketSent: AttachmentFlightTicket,
	}
	for stage, want := range cases {
		kind, required := RequiredAttachment(stage)
		if !required || kind != want {
			t.Errorf("RequiredAttachment(%s) = %v, %v; want %v", stage, kind, required, want)
		}
	}
	if _, required := RequiredAttachment(StageShortlisted); required {
		t.Error("SHORTLISTED should not require an attachment")
	}
}

func TestTerminalStages(t *testing.T) {
	for _, stage := range []Stage{StageDeploymentReady, StageWithdrawn, StageRejected} {
		if !stage.IsTerminal() {
			t.Errorf("%s should be terminal", stage)
		}
	}
	if StageWithdrawn.IsTerminal() && !StageWithdrawn.IsAbsorbing() {
		t.Error("WITHDRAWN should be absorbing")
	}
	if StageDeploymentReady.IsAbsorbing() {
		t.Error("DEPLOYMENT_READY is terminal but not absorbing")
	}
	if !ClosesJob(StageContractSigned) || !ClosesJob(StageDeploymentReady) {
		t.Error("CONTRACT_SIGNED and DEPLOYMENT_READY should close the job")
	}
	if ClosesJob(StageWithdrawn) {
		t.Error("WITHDRAWN should not close the job")
	}
}
