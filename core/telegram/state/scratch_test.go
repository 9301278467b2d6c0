package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pick struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func TestTempJSONRoundTrip(t *testing.T) {
	m := NewMemoryManager(0)
	require.NoError(t, SetTempJSON(m, 1, "selection", pick{ID: 438631, Title: "Dune"}))

	got, err := TempJSON[pick](m, 1, "selection")
	require.NoError(t, err)
	assert.Equal(t, pick{ID: 438631, Title: "Dune"}, got)
}

func TestTempJSONMissingIsExpired(t *testing.T) {
	m := NewMemoryManager(0)
	_, err := TempJSON[pick](m, 1, "selection")
	assert.ErrorIs(t, err, ErrExpiredSelection)
}

func TestTempJSONCorruptIsError(t *testing.T) {
	m := NewMemoryManager(0)
	m.SetTemp(1, "selection", "{")
	_, err := TempJSON[pick](m, 1, "selection")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpiredSelection)
}

func TestTempInt64(t *testing.T) {
	m := NewMemoryManager(0)
	m.SetTemp(1, "request_id", "17")
	v, err := TempInt64(m, 1, "request_id")
	require.NoError(t, err)
	assert.Equal(t, int64(17), v)

	m.SetTemp(1, "request_id", "abc")
	_, err = TempInt64(m, 1, "request_id")
	assert.ErrorIs(t, err, ErrExpiredSelection)
}
