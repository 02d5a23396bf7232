package firebasestore

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core/registration"
)

// memNodes keeps JSON values in memory; missing keys read as null.
type memNodes struct {
	values map[string][]byte
	err    error
}

func (n *memNodes) set(_ context.Context, key string, v interface{}) error {
	if n.err != nil {
		return n.err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	n.values[key] = data
	return nil
}

func (n *memNodes) get(_ context.Context, key string, v interface{}) error {
	if n.err != nil {
		return n.err
	}
	data, ok := n.values[key]
	if !ok {
		data = []byte("null")
	}
	return json.Unmarshal(data, v)
}

func (n *memNodes) delete(_ context.Context, key string) error {
	if n.err != nil {
		return n.err
	}
	delete(n.values, key)
	return nil
}

func TestProgressStore(t *testing.T) {
	ctx := context.Background()
	nodes := &memNodes{values: make(map[string][]byte)}
	store := &progressStore{nodes: nodes}
	answers := registration.AnswerSet{
		"program": registration.TextAnswer("Philosophy"),
		"year":    registration.NumberAnswer(3),
		"topics":  registration.RankedAnswer(registration.Ranked{Option: 1, Rank: 1}, registration.Ranked{Option: 0, Rank: 2}),
	}

	_, found, err := store.LoadProgress(ctx, "ada@test.test")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SaveProgress(ctx, "ada@test.test", answers))
	got, found, err := store.LoadProgress(ctx, "ada@test.test")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, answers, got)

	// saving twice keeps the same answers
	require.NoError(t, store.SaveProgress(ctx, "ada@test.test", answers))
	again, _, err := store.LoadProgress(ctx, "ada@test.test")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	require.NoError(t, store.SaveProgress(ctx, "u1", nil))
	empty, found, err := store.LoadProgress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, empty)

	require.NoError(t, store.ClearProgress(ctx, "ada@test.test"))
	_, found, err = store.LoadProgress(ctx, "ada@test.test")
	require.NoError(t, err)
	assert.False(t, found)

	nodes.values["broken"] = []byte(`{"answers":"{","updated_at":1}`)
	_, _, err = store.LoadProgress(ctx, "broken")
	assert.Error(t, err)

	nodes.err = errors.New("unavailable")
	assert.EqualError(t, store.SaveProgress(ctx, "u1", answers), "saving progress: unavailable")
	_, _, err = store.LoadProgress(ctx, "u1")
	assert.EqualError(t, err, "loading progress: unavailable")
	assert.EqualError(t, store.ClearProgress(ctx, "u1"), "clearing progress: unavailable")
}
