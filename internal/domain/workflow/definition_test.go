package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionTable_Resolve(t *testing.T) {
	threshold := decimal.NewFromInt(10000)
	table := NewDefinitionTable(threshold)

	tests := []struct {
		name     string
		category Category
		amount   decimal.Decimal
		want     []Stage
	}{
		{
			name:     "welfare medical below threshold skips special approval",
			category: CategoryWelfareMedical,
			amount:   decimal.NewFromInt(500),
			want:     []Stage{StageManager, StageHR, StageAccounting},
		},
		{
			name:     "welfare medical at threshold skips special approval",
			category: CategoryWelfareMedical,
			amount:   threshold,
			want:     []Stage{StageManager, StageHR, StageAccounting},
		},
		{
			name:     "welfare medical above threshold includes special approval",
			category: CategoryWelfareMedical,
			amount:   decimal.NewFromInt(10001),
			want:     []Stage{StageManager, StageSpecialApproval, StageHR, StageAccounting},
		},
		{
			name:     "internal training above threshold includes special approval",
			category: CategoryInternalTraining,
			amount:   decimal.NewFromInt(25000),
			want:     []Stage{StageManager, StageSpecialApproval, StageHR, StageAccounting},
		},
		{
			name:     "advance uses short flow regardless of amount",
			category: CategoryAdvance,
			amount:   decimal.NewFromInt(99999),
			want:     []Stage{StageManager, StageAccounting},
		},
		{
			name:     "expense clearing uses short flow",
			category: CategoryExpenseClearing,
			amount:   decimal.NewFromInt(100),
			want:     []Stage{StageManager, StageAccounting},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Resolve(tt.category, tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefinitionTable_ResolveUnknownCategory(t *testing.T) {
	table := NewDefinitionTable(decimal.NewFromInt(10000))

	_, err := table.Resolve(Category("PET_INSURANCE"), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestNeedsSpecialApproval(t *testing.T) {
	threshold := decimal.NewFromInt(10000)

	// Boundary: strictly greater than threshold
	assert.False(t, NeedsSpecialApproval(CategoryWelfareFamily, threshold, threshold))
	assert.True(t, NeedsSpecialApproval(CategoryWelfareFamily, threshold.Add(decimal.NewFromFloat(0.01)), threshold))

	// Short-flow categories never need it
	assert.False(t, NeedsSpecialApproval(CategoryAdvance, decimal.NewFromInt(1000000), threshold))
}

func TestResolvedSequenceIsByValue(t *testing.T) {
	table := NewDefinitionTable(decimal.NewFromInt(10000))

	first, err := table.Resolve(CategoryWelfareMedical, decimal.NewFromInt(500))
	require.NoError(t, err)
	first[0] = StageAccounting

	second, err := table.Resolve(CategoryWelfareMedical, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, StageManager, second[0], "mutating a resolved sequence must not affect the table")
}
