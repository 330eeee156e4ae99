package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

func TestClassifyNumericTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  []domain.QuantityInterpretation
	}{
		{
			name:  "measure with attached unit",
			title: "Hantelscheibe 5kg",
			want: []domain.QuantityInterpretation{
				{RawNumber: 5, Unit: "kg", Kind: domain.NumericMeasure, Confidence: 0.9},
			},
		},
		{
			name:  "measure with spaced unit",
			title: "Proteinpulver 500 g",
			want: []domain.QuantityInterpretation{
				{RawNumber: 500, Unit: "g", Kind: domain.NumericMeasure, Confidence: 0.9},
			},
		},
		{
			name:  "explicit breakdown yields quantity then measure",
			title: "Hantelscheiben 4x5kg",
			want: []domain.QuantityInterpretation{
				{RawNumber: 4, Unit: "x", Kind: domain.NumericQuantity, Confidence: 0.9},
				{RawNumber: 5, Unit: "kg", Kind: domain.NumericMeasure, Confidence: 0.9},
			},
		},
		{
			name:  "multiplication sign",
			title: "Matten 2× 10kg",
			want: []domain.QuantityInterpretation{
				{RawNumber: 2, Unit: "x", Kind: domain.NumericQuantity, Confidence: 0.9},
				{RawNumber: 10, Unit: "kg", Kind: domain.NumericMeasure, Confidence: 0.9},
			},
		},
		{
			name:  "stueck counts pieces",
			title: "6 Stück Gläser",
			want: []domain.QuantityInterpretation{
				{RawNumber: 6, Unit: "stk", Kind: domain.NumericQuantity, Confidence: 0.9},
			},
		},
		{
			name:  "bare number is unknown",
			title: "iPhone 13",
			want: []domain.QuantityInterpretation{
				{RawNumber: 13, Kind: domain.NumericUnknown, Confidence: 0.4},
			},
		},
		{
			name:  "decimal comma",
			title: "Kurzhantel 7,5 kg",
			want: []domain.QuantityInterpretation{
				{RawNumber: 7.5, Unit: "kg", Kind: domain.NumericMeasure, Confidence: 0.9},
			},
		},
		{
			name:  "no numbers",
			title: "Tommy Hilfiger Hemd",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyNumericTokens(tt.title))
		})
	}
}

func TestClassifyNumericTokens_MeasureNeverBecomesQuantity(t *testing.T) {
	t.Parallel()

	for _, title := range []string{"30kg Hantelset", "500ml Trinkflasche", "1.5l Thermoskanne"} {
		for _, in := range ClassifyNumericTokens(title) {
			assert.NotEqual(t, domain.NumericQuantity, in.Kind, "title %q", title)
		}
	}
}

func TestComposePairs(t *testing.T) {
	t.Parallel()

	interps := ClassifyNumericTokens("Hantelscheiben 4x 15kg")
	pairs := ComposePairs(interps)

	require.Len(t, pairs, 1)
	assert.Equal(t, 4, pairs[0].Quantity)
	assert.Equal(t, 15.0, pairs[0].MeasureValue)
	assert.Equal(t, "kg", pairs[0].MeasureUnit)
	assert.Equal(t, 60.0, pairs[0].TotalMeasure())
	assert.Equal(t, "15kg", pairs[0].UnitSpec())
}

func TestComposePairs_QuantityWithoutMeasure(t *testing.T) {
	t.Parallel()

	pairs := ComposePairs(ClassifyNumericTokens("3x Stativ"))

	require.Len(t, pairs, 1)
	assert.Equal(t, 3, pairs[0].Quantity)
	assert.Empty(t, pairs[0].MeasureUnit)
}

func TestBareMeasures(t *testing.T) {
	t.Parallel()

	t.Run("paired measure is not bare", func(t *testing.T) {
		t.Parallel()
		bare := BareMeasures(ClassifyNumericTokens("4x 5kg Hantelscheiben"))
		assert.Empty(t, bare)
	})

	t.Run("unpaired measure is bare", func(t *testing.T) {
		t.Parallel()
		bare := BareMeasures(ClassifyNumericTokens("30kg Hantelset"))
		require.Len(t, bare, 1)
		assert.Equal(t, 30.0, bare[0].RawNumber)
		assert.Equal(t, "kg", bare[0].Unit)
	})
}
