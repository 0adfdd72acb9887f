package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMasksShare(t *testing.T) {
	c := New(0b1010, 0b1111)
	assert.Equal(t, uint64(0b1010), c.Ops)
	assert.Equal(t, uint64(0b1010), c.Share)
	assert.True(t, c.IsValid())
}

func TestEmptyIsValid(t *testing.T) {
	assert.True(t, Empty.IsValid())
	assert.Equal(t, Capability{}, Empty)
}

func TestIsAllowedIsShareable(t *testing.T) {
	c := New(0b1110, 0b0110)
	assert.True(t, c.IsAllowed(0b1000))
	assert.False(t, c.IsAllowed(0b0001))
	assert.True(t, c.IsShareable(0b0100))
	assert.False(t, c.IsShareable(0b1000))
}

func TestIntersectIsSubsetOfBoth(t *testing.T) {
	a := New(0xFF, 0x0F)
	b := New(0x0F, 0xFF)
	got := a.Intersect(b)
	require.True(t, got.IsValid())
	assert.True(t, got.IsSubset(a))
	assert.True(t, got.IsSubset(b))
}

func TestSubsetReflexiveOnlyWhenFullyShareable(t *testing.T) {
	fullyShareable := New(0xFF, 0xFF)
	assert.True(t, fullyShareable.IsSubset(fullyShareable))

	notFullyShareable := New(0xFF, 0x0F)
	assert.False(t, notFullyShareable.IsSubset(notFullyShareable))
}

func TestSubsetOfEmptySucceedsOnlyForEmpty(t *testing.T) {
	assert.True(t, Empty.IsSubset(Empty))

	nonEmpty := New(0x01, 0x01)
	assert.False(t, nonEmpty.IsSubset(Empty))
}

func TestSubsetHelper(t *testing.T) {
	parent := New(0xFF, 0x0F)
	child := parent.Subset(0xFF, 0xFF)
	assert.Equal(t, uint64(0x0F), child.Ops)
	assert.Equal(t, uint64(0x0F), child.Share)
	assert.True(t, child.IsSubset(parent))
}

func TestNotSubsetWhenOpsExceedsShare(t *testing.T) {
	parent := New(0xFF, 0x0F)
	child := New(0xF0, 0x00)
	assert.False(t, child.IsSubset(parent))
}
