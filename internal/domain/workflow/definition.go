package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConditionFunc decides whether an optional stage applies to a request amount.
// Conditions are evaluated exactly once, at submission; the resolved sequence
// is frozen onto the request so later policy changes never reorder in-flight
// requests.
type ConditionFunc func(amount decimal.Decimal) bool

// RequiredStage is one entry in a category's declared stage sequence
type RequiredStage struct {
	Stage     Stage
	Condition ConditionFunc // nil means the stage always applies
}

// Definition declares the ordered stage sequence for one request category
type Definition struct {
	Category Category
	Stages   []RequiredStage
}

// DefinitionTable resolves a request category and amount into a concrete,
// ordered stage sequence. The set of definitions is fixed at construction.
type DefinitionTable struct {
	definitions      map[Category]Definition
	specialThreshold decimal.Decimal
}

// NeedsSpecialApproval reports whether a request must route through the extra
// high-value approval stage. Pure policy: welfare-flow category, amount above
// the configured threshold.
func NeedsSpecialApproval(category Category, amount, threshold decimal.Decimal) bool {
	return category.IsWelfareFlow() && amount.GreaterThan(threshold)
}

// NewDefinitionTable builds the definition table. specialThreshold is the
// amount above which welfare-flow requests require special approval.
func NewDefinitionTable(specialThreshold decimal.Decimal) *DefinitionTable {
	t := &DefinitionTable{
		definitions:      make(map[Category]Definition),
		specialThreshold: specialThreshold,
	}

	special := RequiredStage{
		Stage: StageSpecialApproval,
		Condition: func(amount decimal.Decimal) bool {
			return amount.GreaterThan(specialThreshold)
		},
	}

	// Full welfare flow: manager -> [special approval] -> HR -> accounting
	for category := range welfareFlowCategories {
		t.definitions[category] = Definition{
			Category: category,
			Stages: []RequiredStage{
				{Stage: StageManager},
				special,
				{Stage: StageHR},
				{Stage: StageAccounting},
			},
		}
	}

	// Accounting-only flow: manager -> accounting
	for _, category := range []Category{CategoryAdvance, CategoryExpenseClearing} {
		t.definitions[category] = Definition{
			Category: category,
			Stages: []RequiredStage{
				{Stage: StageManager},
				{Stage: StageAccounting},
			},
		}
	}

	return t
}

// Resolve evaluates the definition for category against amount and returns the
// concrete ordered stage list for this request instance
func (t *DefinitionTable) Resolve(category Category, amount decimal.Decimal) ([]Stage, error) {
	def, ok := t.definitions[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	stages := make([]Stage, 0, len(def.Stages))
	for _, rs := range def.Stages {
		if rs.Condition != nil && !rs.Condition(amount) {
			continue
		}
		stages = append(stages, rs.Stage)
	}

	return stages, nil
}

// SpecialThreshold returns the configured special approval threshold
func (t *DefinitionTable) SpecialThreshold() decimal.Decimal {
	return t.specialThreshold
}
