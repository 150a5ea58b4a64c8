package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1}, {199, 1}, {200, 2}, {500, 2}, {600, 3}, {1500, 4}, {9999, 6},
	}
	for _, c := range cases {
		level, _ := LevelForXP(c.xp)
		assert.Equal(t, c.level, level, "xp=%d", c.xp)
	}
	assert.Equal(t, 200, NextLevelXP(0))
	assert.Equal(t, 0, NextLevelXP(8000))
}

func TestRenderMarkdown_Sanitizes(t *testing.T) {
	out := RenderMarkdown("**bold** <script>alert(1)</script>\n\n![x](https://img.example/a.png)")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `loading="lazy"`)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "hello world", PlainText("<p>hello <b>world</b></p>", 0))
	assert.True(t, strings.HasSuffix(PlainText("<p>abcdef</p>", 3), "…"))
}

func TestTTLCache(t *testing.T) {
	c, err := NewTTLCache(8)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("contest:1", "a", time.Minute)
	c.Set("contest:1:entries", "b", time.Minute)
	c.Set("contests:list", "c", time.Minute)

	v, ok := c.Get("contest:1")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	c.DeletePrefix("contest:1")
	_, ok = c.Get("contest:1:entries")
	assert.False(t, ok)
	_, ok = c.Get("contests:list")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("contests:list")
	assert.False(t, ok)
}

func TestJWTRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	now := time.Now()
	tok, err := GenerateToken(secret, 7, "admin", time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseToken([]byte("other"), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken(secret, 7, "admin", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
	_, ok = ParseID("0")
	assert.False(t, ok)
	_, ok = ParseID("x")
	assert.False(t, ok)
}
