package recon

// Resolve is the pure status-transition function. It returns the status the
// subject should move to and whether that is an actual change.
//
// Verification: approve/reject events win from any current status, including
// a previous terminal one - the provider supports re-review and the last
// event to arrive wins. A pending event never downgrades a terminal status.
//
// Payment: SUCCEEDED is accepted unless already SUCCEEDED; FAILED only moves
// a PENDING payment. A settled payment never regresses.
func Resolve(kind Kind, current Status, proposed Outcome) (Status, bool) {
	if proposed == OutcomeNone {
		return current, false
	}

	switch kind {
	case KindVerification:
		return resolveVerification(current, proposed)
	case KindPayment:
		return resolvePayment(current, proposed)
	}
	return current, false
}

func resolveVerification(current Status, proposed Outcome) (Status, bool) {
	switch proposed {
	case OutcomeApproved:
		return StatusApproved, current != StatusApproved
	case OutcomeRejected:
		return StatusRejected, current != StatusRejected
	case OutcomePending:
		if current == StatusApproved || current == StatusRejected {
			return current, false
		}
		return StatusPending, current != StatusPending
	}
	return current, false
}

func resolvePayment(current Status, proposed Outcome) (Status, bool) {
	switch proposed {
	case OutcomeSucceeded:
		if current == StatusSucceeded {
			return current, false
		}
		return StatusSucceeded, true
	case OutcomeFailed:
		if current == StatusPending {
			return StatusFailed, true
		}
		return current, false
	}
	return current, false
}
