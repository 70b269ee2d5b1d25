package applications

// CheckInvariants enforces the cross-record constraints for a transition
// into target. It runs after authorization, under the application's row
// lock, and performs no mutation.
func CheckInvariants(snap Snapshot, target Stage) error {
	current := snap.Application.Stage
	if !target.IsAbsorbing() && current.Order() >= 0 && target.Order() < current.Order() {
		return ErrStageRegression
	}

	if target == StageShortlisted {
		held := snap.Job.ShortlistedEmployeeID
		if held != "" && held != snap.Application.EmployeeID {
			return ErrJobAlreadyShortlisted
		}
		for _, sibling := range snap.Siblings {
			if sibling.ID == snap.Application.ID {
				continue
			}
			if sibling.Stage.AtOrPastShortlist() && !sibling.IsTerminal() {
				return ErrJobAlreadyShortlisted
			}
		}
	}

	if (target == StageContractSent || target == StageContractSigned) && snap.ContractExists {
		return ErrContractAlreadyExists
	}
	return nil
}
