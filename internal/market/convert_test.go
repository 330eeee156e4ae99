package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"CHF 45.–", 45, false},
		{"45.00", 45, false},
		{"CHF 1'250.00", 1250, false},
		{"Fr. 45", 45, false},
		{"7,50", 7.5, false},
		{"Gratis", 0, false},
		{"", 0, true},
		{"Preis auf Anfrage", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if tt.wantErr {
			require.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseRating(t *testing.T) {
	t.Parallel()

	got, err := parseRating("98%")
	require.NoError(t, err)
	assert.Equal(t, 98.0, got)

	_, err = parseRating("")
	assert.Error(t, err)
}
