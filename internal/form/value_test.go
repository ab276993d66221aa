package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConstructors(t *testing.T) {
	assert.True(t, EmptyValue().IsEmpty())
	assert.Equal(t, "", EmptyValue().Text())
	assert.False(t, EmptyValue().True())

	v := TextValue("")
	assert.False(t, v.IsEmpty(), "empty string is a value, not absence")
	assert.Equal(t, ValueText, v.Kind())

	assert.Equal(t, "true", BoolValue(true).Text())
	assert.Equal(t, "false", BoolValue(false).Text())
	assert.True(t, BoolValue(true).True())

	tok := TokenValue("Accepted")
	assert.Equal(t, ValueToken, tok.Kind())
	assert.Equal(t, "Accepted", tok.Text())
	assert.False(t, tok.True())
	assert.True(t, TokenValue("/Yes").True())
}

func TestValueJSON(t *testing.T) {
	raw := []byte(`{"agree": true, "state": "/Off", "name": "Alice", "note": null}`)

	var m ValueMapping
	require.NoError(t, json.Unmarshal(raw, &m))

	assert.Equal(t, ValueBool, m["agree"].Kind())
	assert.True(t, m["agree"].True())
	assert.Equal(t, ValueToken, m["state"].Kind())
	assert.Equal(t, ValueText, m["name"].Kind())
	assert.Equal(t, "Alice", m["name"].Text())
	assert.True(t, m["note"].IsEmpty())

	out, err := json.Marshal(m["agree"])
	require.NoError(t, err)
	assert.Equal(t, "true", string(out))
}

func TestValueMappingClone(t *testing.T) {
	orig := ValueMapping{"a": TextValue("1")}
	clone := orig.Clone()
	clone["a"] = TextValue("2")
	clone["b"] = TextValue("3")

	assert.Equal(t, "1", orig["a"].Text())
	assert.Len(t, orig, 1)
}
