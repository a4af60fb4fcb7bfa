// ABOUTME: Tests for the hashed secrets store
// ABOUTME: Covers set, verify, replace, and unknown-name behavior

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecrets_SetAndVerify(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSecret(ctx, "bootstrap_recovery", "hunter2-but-longer"))

	ok, err := store.VerifySecret(ctx, "bootstrap_recovery", "hunter2-but-longer")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.VerifySecret(ctx, "bootstrap_recovery", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecrets_UnknownName(t *testing.T) {
	store := setupTestStore(t)

	ok, err := store.VerifySecret(context.Background(), "nope", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecrets_Replace(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSecret(ctx, "bootstrap_recovery", "first"))
	require.NoError(t, store.SetSecret(ctx, "bootstrap_recovery", "second"))

	ok, err := store.VerifySecret(ctx, "bootstrap_recovery", "first")
	require.NoError(t, err)
	assert.False(t, ok, "replaced secret must no longer verify")

	ok, err = store.VerifySecret(ctx, "bootstrap_recovery", "second")
	require.NoError(t, err)
	assert.True(t, ok)
}
