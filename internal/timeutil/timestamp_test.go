package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	testCases := []struct {
		Duration time.Duration
		Expected string
	}{
		{
			Duration: 0,
			Expected: "00:00.000",
		},
		{
			Duration: 1500 * time.Millisecond,
			Expected: "00:01.500",
		},
		{
			Duration: 3*time.Minute + 7*time.Second,
			Expected: "03:07.000",
		},
		{
			Duration: 2*time.Hour + time.Minute,
			Expected: "2:01:00.000",
		},
		{
			Duration: -250 * time.Millisecond,
			Expected: "-00:00.250",
		},
		{
			Duration: 999600 * time.Microsecond,
			Expected: "00:01.000",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Duration.String(), func(t *testing.T) {
			assert.Equal(t, testCase.Expected, FormatTimestamp(testCase.Duration))
		})
	}
}
