package password_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Abdullah628/workspace-notes/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	ctx := context.Background()
	hasher := password.NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash(ctx, "correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	ok, err := hasher.Verify(ctx, "correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = hasher.Verify(ctx, "wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	ctx := context.Background()
	hasher := password.NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash(ctx, "password123")
	require.NoError(t, err)
	second, err := hasher.Hash(ctx, "password123")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := password.NewHasher(bcrypt.MinCost)

	_, err := hasher.Verify(context.Background(), "anything", "not-a-bcrypt-hash")
	require.Error(t, err)
}

func TestConcurrentHashing(t *testing.T) {
	ctx := context.Background()
	hasher := password.NewHasher(bcrypt.MinCost)

	const workers = 16
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := hasher.Hash(ctx, "password123")
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}
}
