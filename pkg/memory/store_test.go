package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendToday(t *testing.T) {
	s := NewStore(t.TempDir())

	today, err := s.ReadToday()
	require.NoError(t, err)
	assert.Empty(t, today)

	require.NoError(t, s.AppendToday("first note"))
	require.NoError(t, s.AppendToday("second note"))

	today, err = s.ReadToday()
	require.NoError(t, err)
	assert.Contains(t, today, "first note")
	assert.Contains(t, today, "second note")
}

func TestLongTerm(t *testing.T) {
	s := NewStore(t.TempDir())

	longTerm, err := s.ReadLongTerm()
	require.NoError(t, err)
	assert.Empty(t, longTerm)

	require.NoError(t, s.WriteLongTerm("prefers short reports"))
	longTerm, err = s.ReadLongTerm()
	require.NoError(t, err)
	assert.Equal(t, "prefers short reports", longTerm)
}

func TestContext(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.Empty(t, s.Context())

	require.NoError(t, s.WriteLongTerm("fact"))
	require.NoError(t, s.AppendToday("note"))

	out := s.Context()
	assert.Contains(t, out, "## Long-term Memory")
	assert.Contains(t, out, "fact")
	assert.Contains(t, out, "## Today's Notes")
	assert.Contains(t, out, "note")
}
