package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFieldsPlainValues(t *testing.T) {
	data := ApplyFields(map[string]any{"state": "requested"}, map[string]any{
		"state":   "confirmed",
		"enabled": true,
	})

	assert.Equal(t, "confirmed", data["state"])
	assert.Equal(t, true, data["enabled"])
}

func TestApplyFieldsNormalizesValues(t *testing.T) {
	type entry struct {
		Token string `json:"token"`
	}
	data := ApplyFields(map[string]any{}, map[string]any{
		"entry": entry{Token: "abc"},
		"count": 3,
	})

	// Structs and numbers come out in their canonical JSON form.
	assert.Equal(t, map[string]any{"token": "abc"}, data["entry"])
	assert.Equal(t, float64(3), data["count"])
}

func TestApplyFieldsArrayUnion(t *testing.T) {
	data := map[string]any{"newcomerMatches": []any{"u1"}}

	data = ApplyFields(data, map[string]any{"newcomerMatches": ArrayUnion("u2")})
	assert.Equal(t, []any{"u1", "u2"}, data["newcomerMatches"])

	// Union is idempotent for deep-equal elements.
	data = ApplyFields(data, map[string]any{"newcomerMatches": ArrayUnion("u2")})
	assert.Equal(t, []any{"u1", "u2"}, data["newcomerMatches"])
}

func TestApplyFieldsArrayUnionOnMissingField(t *testing.T) {
	data := ApplyFields(map[string]any{}, map[string]any{"tokens": ArrayUnion("t1")})
	assert.Equal(t, []any{"t1"}, data["tokens"])
}

func TestApplyFieldsArrayUnionStructElements(t *testing.T) {
	registered := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	type deviceToken struct {
		Token        string    `json:"token"`
		RegisteredAt time.Time `json:"registeredAt"`
	}
	entry := deviceToken{Token: "t1", RegisteredAt: registered}

	data := ApplyFields(map[string]any{}, map[string]any{"tokens": ArrayUnion(entry)})
	data = ApplyFields(data, map[string]any{"tokens": ArrayUnion(entry)})

	tokens, ok := data["tokens"].([]any)
	require.True(t, ok)
	assert.Len(t, tokens, 1)
}

func TestApplyFieldsArrayRemove(t *testing.T) {
	data := map[string]any{"newcomerMatches": []any{"u1", "u2", "u3"}}

	data = ApplyFields(data, map[string]any{"newcomerMatches": ArrayRemove("u2")})
	assert.Equal(t, []any{"u1", "u3"}, data["newcomerMatches"])

	// Removing an absent element changes nothing.
	data = ApplyFields(data, map[string]any{"newcomerMatches": ArrayRemove("u9")})
	assert.Equal(t, []any{"u1", "u3"}, data["newcomerMatches"])
}

func TestApplyFieldsDeleteField(t *testing.T) {
	data := map[string]any{"error": "boom", "state": "requested"}

	data = ApplyFields(data, map[string]any{"error": DeleteField()})
	_, present := data["error"]
	assert.False(t, present)
	assert.Equal(t, "requested", data["state"])
}

func TestApplyFieldsNilValue(t *testing.T) {
	data := ApplyFields(map[string]any{"localMatch": "u1"}, map[string]any{"localMatch": nil})

	value, present := data["localMatch"]
	assert.True(t, present)
	assert.Nil(t, value)
}
