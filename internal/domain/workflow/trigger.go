package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerSubmit          Trigger = "SUBMIT"
	TriggerApprove         Trigger = "APPROVE"
	TriggerReject          Trigger = "REJECT"
	TriggerRequestRevision Trigger = "REQUEST_REVISION"
	TriggerResubmit        Trigger = "RESUBMIT"
	TriggerCancel          Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
