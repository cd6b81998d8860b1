package util

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorf(t *testing.T) {
	orig := errors.New("disk full")
	err := WrapErrorf(orig, ErrInvalidPreparation, "writing weighting %s", "fastest")

	assert.ErrorIs(t, err, ErrInvalidPreparation)
	assert.ErrorIs(t, err, orig)
	assert.NotErrorIs(t, err, ErrRouteNotFound)
	assert.Equal(t, "writing weighting fastest: disk full", err.Error())

	wrapped := fmt.Errorf("prepare: %w", WrapErrorf(nil, ErrSearchBudgetExceeded, "budget"))
	assert.ErrorIs(t, wrapped, ErrSearchBudgetExceeded)

	var coded *Error
	require.True(t, errors.As(wrapped, &coded))
	assert.Equal(t, ErrSearchBudgetExceeded, coded.Code())
}

func TestReverseG(t *testing.T) {
	arr := []int{1, 2, 3, 4}
	assert.Equal(t, []int{4, 3, 2, 1}, ReverseG(arr))
	assert.Equal(t, []int{1, 2, 3, 4}, arr)
	assert.Empty(t, ReverseG([]int{}))
}

func TestReadLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("3 4  5\nlast"))
	line, err := ReadLine(br)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "5"}, Fields(line))

	line, err = ReadLine(br)
	require.NoError(t, err)
	assert.Equal(t, "last", line)
}
