package workflow

// Stage is one role-gated checkpoint in a request's approval sequence
type Stage string

const (
	StageManager         Stage = "MANAGER"
	StageSpecialApproval Stage = "SPECIAL_APPROVAL"
	StageHR              Stage = "HR"
	StageAccounting      Stage = "ACCOUNTING"
)

var validStages = map[Stage]bool{
	StageManager:         true,
	StageSpecialApproval: true,
	StageHR:              true,
	StageAccounting:      true,
}

// IsValid returns true if the stage is a known approval stage
func (s Stage) IsValid() bool {
	return validStages[s]
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Role is a capability an actor must hold to act at a stage
type Role string

const (
	RoleManager         Role = "manager"
	RoleSpecialApprover Role = "special_approver"
	RoleHR              Role = "hr"
	RoleAccounting      Role = "accounting"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

var stageRoles = map[Stage]Role{
	StageManager:         RoleManager,
	StageSpecialApproval: RoleSpecialApprover,
	StageHR:              RoleHR,
	StageAccounting:      RoleAccounting,
}

// RequiredRole returns the role an actor must hold to decide at the given stage
func (s Stage) RequiredRole() Role {
	return stageRoles[s]
}
