package reference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkfox/rpccaps-go/capability"
	"github.com/bkfox/rpccaps-go/sig"
)

func TestBearerIssueResolve(t *testing.T) {
	signers := genSigners(t, 2)
	cap := capability.New(0xFF, 0xFF)
	r, err := New(sig.Ed25519, NewObjectID(), signers[0], 8, Authorization{
		Capability: cap, Subject: signers[1].Public(),
	})
	require.NoError(t, err)

	mgr := NewBearerManager([]byte("test-secret-0123456789abcdef01"), time.Minute)
	token, err := mgr.Issue(r)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	resolved, err := mgr.Resolve(token)
	require.NoError(t, err)
	assert.True(t, resolved.ID.Equal(r.ID))
}

func TestBearerRevoke(t *testing.T) {
	signers := genSigners(t, 2)
	cap := capability.New(0xFF, 0xFF)
	r, err := New(sig.Ed25519, NewObjectID(), signers[0], 8, Authorization{
		Capability: cap, Subject: signers[1].Public(),
	})
	require.NoError(t, err)

	mgr := NewBearerManager([]byte("test-secret-0123456789abcdef01"), time.Minute)
	token, err := mgr.Issue(r)
	require.NoError(t, err)

	mgr.Revoke(r)
	_, err = mgr.Resolve(token)
	assert.ErrorIs(t, err, ErrBearerNotFound)
}

func TestBearerRejectsWrongSecret(t *testing.T) {
	signers := genSigners(t, 2)
	cap := capability.New(0xFF, 0xFF)
	r, err := New(sig.Ed25519, NewObjectID(), signers[0], 8, Authorization{
		Capability: cap, Subject: signers[1].Public(),
	})
	require.NoError(t, err)

	mgr := NewBearerManager([]byte("secret-a-0123456789abcdef012345"), time.Minute)
	token, err := mgr.Issue(r)
	require.NoError(t, err)

	other := NewBearerManager([]byte("secret-b-0123456789abcdef012345"), time.Minute)
	_, err = other.Resolve(token)
	assert.Error(t, err)
}

func TestBearerRejectsExpired(t *testing.T) {
	signers := genSigners(t, 2)
	cap := capability.New(0xFF, 0xFF)
	r, err := New(sig.Ed25519, NewObjectID(), signers[0], 8, Authorization{
		Capability: cap, Subject: signers[1].Public(),
	})
	require.NoError(t, err)

	mgr := NewBearerManager([]byte("test-secret-0123456789abcdef01"), -time.Minute)
	token, err := mgr.Issue(r)
	require.NoError(t, err)

	_, err = mgr.Resolve(token)
	assert.Error(t, err)
}
