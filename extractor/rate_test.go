package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"indian grouping with rupee symbol", "₹ 1,23,456.50", "123456.5"},
		{"western grouping with unit", "9,351 CNY/kg", "9351"},
		{"bare number", "9351", "9351"},
		{"decimal with unit", "9351.25 CNY/kg", "9351.25"},
		{"yen symbol", "¥9,351", "9351"},
		{"fullwidth yen", "￥9,351", "9351"},
		{"unit without slash", "9351 CNY", "9351"},
		{"nbsp separator", "9,351 CNY/kg", "9351"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeRate(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestNormalizeRateRejectsNonNumeric(t *testing.T) {
	for _, in := range []string{"", "   ", "CNY/kg", "N/A", "price pending", "1.2.3", "12a34"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeRate(in)
			assert.Error(t, err)
		})
	}
}
