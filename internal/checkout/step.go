package checkout

type Step string

const (
	StepShipping Step = "shipping"
	StepReview   Step = "review"
	StepPayment  Step = "payment"
)

// IsTerminal reports whether the machine can no longer move. The page leaves the flow from here.
func (s Step) IsTerminal() bool {
	return s == StepPayment
}

// CanTransitionTo lists every allowed move. review -> shipping is the only backward one.
func (s Step) CanTransitionTo(next Step) bool {
	switch s {
	case StepShipping:
		return next == StepReview
	case StepReview:
		return next == StepShipping || next == StepPayment
	default:
		return false
	}
}

func (s Step) Valid() bool {
	return s == StepShipping || s == StepReview || s == StepPayment
}

// String representation (for logging)
func (s Step) String() string {
	return string(s)
}
