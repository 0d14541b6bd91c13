package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubjectKind(t *testing.T) {
	for in, want := range map[string]SubjectKind{
		"articles": KindArticle,
		"article":  KindArticle,
		"comments": KindComment,
		"comment":  KindComment,
	} {
		got, err := ParseSubjectKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseSubjectKind("users")
	assert.Error(t, err)
}

func TestSubjectKindTable(t *testing.T) {
	assert.Equal(t, "articles", KindArticle.Table())
	assert.Equal(t, "comments", KindComment.Table())
	assert.False(t, SubjectKind("users").Valid())
	assert.True(t, KindComment.Valid())
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateNone, StateOf(nil))
	assert.Equal(t, StateLiked, StateOf(&Reaction{IsLike: true}))
	assert.Equal(t, StateDisliked, StateOf(&Reaction{IsLike: false}))
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&User{Group: GroupAdmin}).IsAdmin())
	assert.False(t, (&User{Group: GroupClient}).IsAdmin())
	assert.True(t, ValidGroup(GroupClient))
	assert.False(t, ValidGroup("root"))
	assert.False(t, (&User{}).IsAdmin())
}

func TestPasswordResetTokenExpiry(t *testing.T) {
	now := time.Now()
	tok := &PasswordResetToken{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, tok.IsExpired(now))
	assert.True(t, tok.IsExpired(now.Add(time.Hour)))
	assert.True(t, tok.IsExpired(now.Add(2*time.Hour)))
}
