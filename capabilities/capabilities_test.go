package capabilities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertisedIsStable(t *testing.T) {
	first, err := Advertised()
	require.NoError(t, err)
	second, err := Advertised()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	again, err := json.Marshal(Server())
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(again))
}

func TestAdvertisedShape(t *testing.T) {
	raw, err := Advertised()
	require.NoError(t, err)

	var caps map[string]any
	require.NoError(t, json.Unmarshal(raw, &caps))

	assert.Equal(t, true, caps["hoverProvider"])
	assert.Equal(t, true, caps["definitionProvider"])

	sync, ok := caps["textDocumentSync"].(map[string]any)
	require.True(t, ok, "textDocumentSync should be an options object")
	assert.Equal(t, true, sync["openClose"])
	assert.EqualValues(t, 1, sync["change"])

	completion, ok := caps["completionProvider"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{":", "."}, completion["triggerCharacters"])

	rename, ok := caps["renameProvider"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, rename["prepareProvider"])
}
