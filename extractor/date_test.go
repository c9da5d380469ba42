package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDateKnownLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Jul 24, 2025", "2025-07-24"},
		{"January 2, 2025", "2025-01-02"},
		{"2025-07-24", "2025-07-24"},
		{"24/07/2025", "2025-07-24"},
		{"2025-07-24T09:30:00Z", "2025-07-24"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizeDate(tc.in)
			require.True(t, ok)
			assert.Equal(t, tc.want, got.Format("2006-01-02"))
		})
	}
}

func TestNormalizeDateFailureIsReported(t *testing.T) {
	for _, in := range []string{"", "not a date", "soon"} {
		got, ok := NormalizeDate(in)
		assert.False(t, ok, "input %q", in)
		assert.Nil(t, got)
	}
}
