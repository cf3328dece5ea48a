// ABOUTME: Unit tests for authentication context functions
// ABOUTME: Tests claims propagation through context.Context

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimsContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	c := &Claims{Subject: "connector-1"}
	ctx := WithClaims(context.Background(), c)
	assert.Same(t, c, FromContext(ctx))

	// A nested context keeps the value.
	inner, cancel := context.WithCancel(ctx)
	defer cancel()
	assert.Equal(t, "connector-1", FromContext(inner).Subject)
}
