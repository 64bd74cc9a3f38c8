package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, middleware.NewPIIMiddleware([]string{"password"})(memory.NewStore()))
}

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlying)
	ctx := context.Background()

	fc := snapshot(map[string]any{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
	})
	require.NoError(t, secure.Save(ctx, "pii", fc))
	assert.Equal(t, "secret123", fc.Features[0].Properties["user_password"], "input must not be modified")

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	props := stored.Features[0].Properties
	assert.Equal(t, "jdoe", props["username"])
	assert.Equal(t, middleware.Mask, props["user_password"])
	details := props["details"].(map[string]any)
	assert.Equal(t, middleware.Mask, details["ssn_number"])
	assert.Equal(t, "123 St", details["address"])
}

func TestChain_MaskThenEncrypt(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"email"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "k", snapshot(map[string]any{"email": "a@b.c"})))

	stored, err := underlying.Load(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, stored.Features)

	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Features[0].Properties["email"])
}
