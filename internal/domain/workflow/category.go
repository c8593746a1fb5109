package workflow

// Category is the kind of request, which determines the resolved stage sequence
type Category string

const (
	CategoryWelfareMedical     Category = "WELFARE_MEDICAL"
	CategoryWelfareFamily      Category = "WELFARE_FAMILY"
	CategoryInternalTraining   Category = "INTERNAL_TRAINING"
	CategoryEmploymentApproval Category = "EMPLOYMENT_APPROVAL"
	CategoryAdvance            Category = "ADVANCE"
	CategoryExpenseClearing    Category = "EXPENSE_CLEARING"
)

var validCategories = map[Category]bool{
	CategoryWelfareMedical:     true,
	CategoryWelfareFamily:      true,
	CategoryInternalTraining:   true,
	CategoryEmploymentApproval: true,
	CategoryAdvance:            true,
	CategoryExpenseClearing:    true,
}

// welfareFlowCategories use the full approval flow and are eligible for the
// high-value special approval stage
var welfareFlowCategories = map[Category]bool{
	CategoryWelfareMedical:     true,
	CategoryWelfareFamily:      true,
	CategoryInternalTraining:   true,
	CategoryEmploymentApproval: true,
}

// IsValid returns true if the category is a known request category
func (c Category) IsValid() bool {
	return validCategories[c]
}

// IsWelfareFlow returns true if the category routes through the full
// manager -> [special approval] -> HR -> accounting flow
func (c Category) IsWelfareFlow() bool {
	return welfareFlowCategories[c]
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}
