package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted   Type = "request.submitted"
	TypeStateChanged       Type = "request.state_changed"
	TypeRequestCompleted   Type = "request.completed"
	TypeRequestRejected    Type = "request.rejected"
	TypeRevisionRequested  Type = "request.revision_requested"
	TypeRequestResubmitted Type = "request.resubmitted"
	TypeRequestCancelled   Type = "request.cancelled"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeStateChanged,
		TypeRequestCompleted,
		TypeRequestRejected,
		TypeRevisionRequested,
		TypeRequestResubmitted,
		TypeRequestCancelled:
		return true
	default:
		return false
	}
}
