package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_EvaluatesAllCandidatesInOrder(t *testing.T) {
	candidates := []int{1, 2, 3, 4, 5}
	results, err := Run(context.Background(), candidates, 2, func(ctx context.Context, p int) (int, error) {
		return p * p, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25}, results)
}

func TestRun_PropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), []int{1, 2, 3}, 1, func(ctx context.Context, p int) (int, error) {
		if p == 2 {
			return 0, boom
		}
		return p, nil
	})
	require.ErrorIs(t, err, boom)
}
