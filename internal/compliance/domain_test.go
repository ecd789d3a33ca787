package compliance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeriodStateCanTransition(t *testing.T) {
	cases := []struct {
		from, to PeriodState
		want     bool
	}{
		{PeriodOpenForUpload, PeriodInReview, true},
		{PeriodOpenForUpload, PeriodClosed, true},
		{PeriodInReview, PeriodClosed, true},
		{PeriodInReview, PeriodOpenForUpload, false},
		{PeriodClosed, PeriodInReview, false},
		{PeriodClosed, PeriodOpenForUpload, false},
		{PeriodOpenForUpload, PeriodOpenForUpload, false},
		{PeriodInReview, PeriodInReview, false},
		{PeriodClosed, PeriodClosed, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}
