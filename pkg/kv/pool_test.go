package kv_test

import (
	"testing"

	"skitgen/pkg/kv"

	"github.com/stretchr/testify/require"
)

func TestPoolSharesStorePerDir(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	pool := kv.NewPool(nil)

	first, err := pool.Get(&kv.Config{Dir: dir})
	assert.NoError(err)

	second, err := pool.Get(&kv.Config{Dir: dir + "/"})
	assert.NoError(err)
	assert.Same(first, second)

	assert.NoError(first.Set("k", "v"))

	var got string
	found, err := second.Get("k", &got)
	assert.NoError(err)
	assert.True(found)
	assert.Equal("v", got)

	other, err := pool.Get(&kv.Config{Dir: t.TempDir()})
	assert.NoError(err)
	assert.NotSame(first, other)

	assert.NoError(pool.Close())

	_, err = pool.Get(&kv.Config{Dir: dir})
	assert.ErrorIs(err, kv.ErrPoolClosed)
}

func TestPoolReleasesDirLockOnClose(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	pool := kv.NewPool(nil)

	_, err := pool.Get(&kv.Config{Dir: dir})
	assert.NoError(err)

	_, err = kv.Open(&kv.Config{Dir: dir}, nil)
	assert.Error(err)

	assert.NoError(pool.Close())

	store, err := kv.Open(&kv.Config{Dir: dir}, nil)
	assert.NoError(err)
	assert.NoError(store.Close())
}
