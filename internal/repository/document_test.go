package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	collection, group, err := splitPath("user/u1")
	require.NoError(t, err)
	assert.Equal(t, "user", collection)
	assert.Equal(t, "user", group)

	collection, group, err = splitPath("user/u1/data/geodata")
	require.NoError(t, err)
	assert.Equal(t, "user/u1/data", collection)
	assert.Equal(t, "data", group)
}

func TestSplitPathInvalid(t *testing.T) {
	for _, path := range []string{"", "user", "user/u1/data", "user//geodata/x", "/u1"} {
		_, _, err := splitPath(path)
		assert.Error(t, err, "path %q", path)
	}
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "u1", lastSegment("user/u1"))
	assert.Equal(t, "geodata", lastSegment("user/u1/data/geodata"))
}

func TestSQLOperator(t *testing.T) {
	op, err := sqlOperator("==")
	require.NoError(t, err)
	assert.Equal(t, "=", op)

	op, err = sqlOperator("!=")
	require.NoError(t, err)
	assert.Equal(t, "<>", op)

	for _, pass := range []string{"<", "<=", ">", ">="} {
		op, err = sqlOperator(pass)
		require.NoError(t, err)
		assert.Equal(t, pass, op)
	}

	_, err = sqlOperator("in")
	assert.Error(t, err)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'enabled'", quoteLiteral("enabled"))
	assert.Equal(t, "'o''brien'", quoteLiteral("o'brien"))
}

func TestDocumentDataTo(t *testing.T) {
	type match struct {
		Enabled   bool      `json:"enabled"`
		State     string    `json:"state"`
		Requested time.Time `json:"requested"`
	}
	requested := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &Document{
		Path: "tandemMatches/m1",
		ID:   "m1",
		Data: map[string]any{
			"enabled":   true,
			"state":     "requested",
			"requested": requested.Format(time.RFC3339),
		},
	}

	var m match
	require.NoError(t, doc.DataTo(&m))
	assert.True(t, m.Enabled)
	assert.Equal(t, "requested", m.State)
	assert.True(t, requested.Equal(m.Requested))
}

func TestWriteResultEqual(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := WriteResult{WriteTime: at}
	b := WriteResult{WriteTime: at.In(time.FixedZone("X", 3600))}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(WriteResult{WriteTime: at.Add(time.Second)}))
}
