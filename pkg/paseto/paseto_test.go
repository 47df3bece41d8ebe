package pasetotoken

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, keys Keys) *Manager {
	t.Helper()
	m, err := New(Config{Mode: keys.Mode, Issuer: "tutorly", Audience: "tutorly-api", AccessTTL: time.Minute}, keys)
	require.NoError(t, err)
	return m
}

func TestIssueVerify_BothModes(t *testing.T) {
	for name, keys := range map[string]Keys{"local": NewLocalKeys(), "public": NewPublicKeys()} {
		t.Run(name, func(t *testing.T) {
			m := newManager(t, keys)
			user, session := uuid.New(), uuid.New()

			tok, err := m.IssueAccess(user, session)
			require.NoError(t, err)

			claims, err := m.Verify(tok)
			require.NoError(t, err)
			assert.Equal(t, user, claims.UserID)
			assert.Equal(t, session, claims.SessionID)
			assert.NotEmpty(t, claims.TokenID)
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	m := newManager(t, NewLocalKeys())
	tok, err := m.IssueAccess(uuid.New(), uuid.New())
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Verify(tok)
	require.Error(t, err)
	var invalid ErrInvalidToken
	assert.True(t, errors.As(err, &invalid))
}

func TestVerify_WrongKeyOrAudience(t *testing.T) {
	issuer := newManager(t, NewLocalKeys())
	tok, err := issuer.IssueAccess(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = newManager(t, NewLocalKeys()).Verify(tok)
	assert.Error(t, err)

	other, err := New(Config{Mode: ModeLocal, Issuer: "tutorly", Audience: "elsewhere"}, issuer.keys)
	require.NoError(t, err)
	_, err = other.Verify(tok)
	assert.Error(t, err)
}

func TestLoadKeys(t *testing.T) {
	local := NewLocalKeys()
	k, err := LoadKeys(KeyStrings{Mode: ModeLocal, SymmetricHex: local.Symmetric.ExportHex()})
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, k.Mode)

	pub := NewPublicKeys()
	k, err = LoadKeys(KeyStrings{Mode: ModePublic, PublicHex: pub.Public.ExportHex()})
	require.NoError(t, err)
	assert.Nil(t, k.Secret)
	assert.NotNil(t, k.Public)

	_, err = LoadKeys(KeyStrings{Mode: ModeLocal})
	assert.Error(t, err)
	_, err = LoadKeys(KeyStrings{Mode: ModeLocal, SymmetricHex: "zz"})
	assert.Error(t, err)
	_, err = LoadKeys(KeyStrings{Mode: ModePublic})
	assert.Error(t, err)
	_, err = LoadKeys(KeyStrings{Mode: "jwt"})
	assert.Error(t, err)
}

func TestVerifyOnlyManagerCannotIssue(t *testing.T) {
	pub := NewPublicKeys()
	m := newManager(t, Keys{Mode: ModePublic, Public: pub.Public})
	_, err := m.IssueAccess(uuid.New(), uuid.New())
	assert.Error(t, err)
}
