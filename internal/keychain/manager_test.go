// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistbridge/cli/internal/errors"
)

func TestCatalogTokenLifecycle(t *testing.T) {
	m := NewWithKeyring(keyring.NewArrayKeyring(nil))

	tok, err := m.CatalogToken()
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.False(t, m.HasCatalogToken())

	require.NoError(t, m.SaveCatalogToken("  ms-1234  "))
	tok, err = m.CatalogToken()
	require.NoError(t, err)
	assert.Equal(t, "ms-1234", tok)
	assert.True(t, m.HasCatalogToken())

	require.NoError(t, m.ClearCatalogToken())
	assert.False(t, m.HasCatalogToken())
	require.NoError(t, m.ClearCatalogToken(), "clearing twice is fine")
}

func TestSaveEmptyTokenRejected(t *testing.T) {
	m := NewWithKeyring(keyring.NewArrayKeyring(nil))

	err := m.SaveCatalogToken(" ")
	assert.Equal(t, errors.InvalidInput, errors.KindOf(err))
}

func TestTokenStoredUnderCatalogKey(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	m := NewWithKeyring(ring)
	require.NoError(t, m.SaveCatalogToken("abc"))

	it, err := ring.Get(KeyCatalogToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(it.Data))
}
