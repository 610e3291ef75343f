package kv_test

import (
	"testing"

	"skitgen/pkg/kv"

	"github.com/stretchr/testify/require"
)

type record struct {
	Data       []byte `msgpack:"data"`
	DurationMS int64  `msgpack:"duration_ms"`
}

func openStore(t *testing.T) *kv.Store {
	t.Helper()

	store, err := kv.Open(&kv.Config{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStoreRoundTrip(t *testing.T) {
	assert := require.New(t)

	store := openStore(t)
	key := kv.Key("tts", "Emily.wav", "standard_narration", "wav", "Hello")

	var got record
	found, err := store.Get(key, &got)
	assert.NoError(err)
	assert.False(found)

	assert.NoError(store.Set(key, &record{Data: []byte("RIFF"), DurationMS: 1500}))

	found, err = store.Get(key, &got)
	assert.NoError(err)
	assert.True(found)
	assert.Equal(record{Data: []byte("RIFF"), DurationMS: 1500}, got)

	assert.NoError(store.Delete(key))
	found, err = store.Get(key, &got)
	assert.NoError(err)
	assert.False(found)
}

func TestStoreOnDisk(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()

	store, err := kv.Open(&kv.Config{Dir: dir, TTL: 24}, nil)
	assert.NoError(err)
	assert.NoError(store.Set("k", "v"))
	assert.NoError(store.Close())

	store, err = kv.Open(&kv.Config{Dir: dir}, nil)
	assert.NoError(err)
	defer store.Close()

	var v string
	found, err := store.Get("k", &v)
	assert.NoError(err)
	assert.True(found)
	assert.Equal("v", v)
}

func TestKey(t *testing.T) {
	assert := require.New(t)

	a := kv.Key("tts", "a", "bc")
	assert.Equal(a, kv.Key("tts", "a", "bc"))
	assert.NotEqual(a, kv.Key("tts", "ab", "c"))
	assert.Contains(a, "tts:")

	_, err := kv.Open(&kv.Config{}, nil)
	assert.Error(err)
}
