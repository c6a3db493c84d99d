package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("connection refused")
	err := New(base).
		Component("llm").
		Category(CategoryNetwork).
		Context("endpoint", "https://api.test/v1").
		Build()

	assert.Equal(t, "connection refused", err.Error())
	assert.Equal(t, "llm", err.Component)
	assert.Equal(t, string(CategoryNetwork), err.GetCategory())
	assert.Equal(t, "https://api.test/v1", err.GetContext()["endpoint"])
	assert.False(t, err.Timestamp.IsZero())
	assert.ErrorIs(t, err, base)
}

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("something %s", "broke").Build()
	assert.Equal(t, "something broke", err.Error())
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestHasCategory(t *testing.T) {
	t.Parallel()

	err := Newf("no such item").Category(CategoryNotFound).Build()
	assert.True(t, HasCategory(err, CategoryNotFound))
	assert.False(t, HasCategory(err, CategoryDatabase))

	wrapped := fmt.Errorf("lookup failed: %w", err)
	assert.True(t, HasCategory(wrapped, CategoryNotFound),
		"category survives wrapping")

	assert.False(t, HasCategory(fmt.Errorf("plain"), CategoryNotFound))
	assert.False(t, HasCategory(nil, CategoryNotFound))
}

func TestIsMatchesCategory(t *testing.T) {
	t.Parallel()

	first := Newf("a").Category(CategoryTimeout).Build()
	second := Newf("b").Category(CategoryTimeout).Build()
	other := Newf("c").Category(CategoryDatabase).Build()

	assert.True(t, stderrors.Is(first, second),
		"enhanced errors of the same category match")
	assert.False(t, stderrors.Is(first, other))
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	err := Newf("x").Context("k", "v").Build()
	ctx := err.GetContext()
	ctx["k"] = "mutated"

	require.Equal(t, "v", err.GetContext()["k"])
}

func TestReExports(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("base")
	wrapped := fmt.Errorf("outer: %w", base)

	assert.True(t, Is(wrapped, base))
	assert.Equal(t, base, Unwrap(wrapped))

	enhanced := New(base).Category(CategoryGeneric).Build()
	var target *EnhancedError
	assert.True(t, As(enhanced, &target))
}
