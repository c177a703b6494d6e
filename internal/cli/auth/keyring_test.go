package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	key := CookiesKey("http://localhost:8080/api")

	_, err := Default.LoadToken(key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Default.SaveToken(key, `[{"name":"pc_access"}]`))
	value, err := Default.LoadToken(key)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"pc_access"}]`, value)

	require.NoError(t, Default.DeleteToken(key))
	require.NoError(t, Default.DeleteToken(key), "deleting twice is fine")
	_, err = Default.LoadToken(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeysAreScopedPerURL(t *testing.T) {
	assert.NotEqual(t, CookiesKey("https://a.example/api"), CookiesKey("https://b.example/api"))
	assert.NotEqual(t, CookiesKey("https://a.example/api"), SessionKey("https://a.example/api"))
}

func TestMemoryStore(t *testing.T) {
	store := MemoryStore{}
	require.NoError(t, store.SaveToken("k", "v"))
	v, err := store.LoadToken("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	require.NoError(t, store.DeleteToken("k"))
	_, err = store.LoadToken("k")
	assert.ErrorIs(t, err, ErrNotFound)
}
