package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessKeepsInputOrder(t *testing.T) {
	inputs := []string{"1", "2", "x", "4", "5"}
	var calls atomic.Int32

	results, err := Process(context.Background(), 3, inputs, func(_ context.Context, in string) (int, error) {
		calls.Add(1)
		return strconv.Atoi(in)
	})
	require.NoError(t, err)
	require.Len(t, results, len(inputs))
	assert.EqualValues(t, len(inputs), calls.Load())

	assert.Equal(t, 1, results[0].Output)
	assert.Error(t, results[2].Err, "a failing input is reported, not fatal")
	assert.Equal(t, 5, results[4].Output)
}

func TestProcessEmptyAndCancelled(t *testing.T) {
	results, err := Process(context.Background(), 4, []int(nil), func(context.Context, int) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.Empty(t, results)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Process(ctx, 2, []int{1, 2, 3}, func(context.Context, int) (int, error) { return 0, nil })
	assert.True(t, errors.Is(err, context.Canceled))
}
