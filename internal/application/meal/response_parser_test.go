package meal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVisionResponse_DirectJSON_Parses(t *testing.T) {
	raw := `{"dish_name":"Rice Bowl","items":[{"name":"rice","quantity":150,"unit":"g","calories":200,"protein":4,"carbs":44,"fat":1}]}`

	dishName, items, err := ParseVisionResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Rice Bowl", dishName)
	require.Len(t, items, 1)
	assert.Equal(t, "rice", items[0].Name)
	assert.Equal(t, 200.0, items[0].Calories)
}

func TestParseVisionResponse_RefusalDetectedBeforeParsing(t *testing.T) {
	raw := "I'm sorry, I can't help with this image."

	_, _, err := ParseVisionResponse(raw)
	assert.ErrorIs(t, err, ErrVisionRefused)
}

func TestParseVisionResponse_MarkdownFence_Stripped(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"dish_name\":\"Egg\",\"items\":[{\"name\":\"egg\",\"quantity\":50,\"unit\":\"g\",\"calories\":70,\"protein\":6,\"carbs\":1,\"fat\":5}]}\n```"

	dishName, items, err := ParseVisionResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Egg", dishName)
	require.Len(t, items, 1)
	assert.Equal(t, "egg", items[0].Name)
}

func TestParseVisionResponse_UnparsableGarbage_ReturnsErrUnparsableResponse(t *testing.T) {
	raw := "The assistant cannot produce a response."

	_, _, err := ParseVisionResponse(raw)
	assert.ErrorIs(t, err, ErrUnparsableResponse)
}

func TestExtractOutermostObject_BalancedNested(t *testing.T) {
	s := `noise before {"a":{"b":1}} trailing noise`

	extracted, ok := extractOutermostObject(s)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}}`, extracted)
}

func TestExtractOutermostObject_Unbalanced_ReturnsFalse(t *testing.T) {
	s := `{"a":[1,2`

	_, ok := extractOutermostObject(s)
	assert.False(t, ok)
}

func TestExtractOutermostObject_IgnoresBracesInsideStrings(t *testing.T) {
	s := `{"note":"contains a } brace"}`

	extracted, ok := extractOutermostObject(s)
	require.True(t, ok)
	assert.Equal(t, s, extracted)
}

func TestRepairUnbalanced_AppendsMissingClosersInReverseOrder(t *testing.T) {
	s := `{"a":[1,2`

	repaired, ok := repairUnbalanced(s)
	require.True(t, ok)
	assert.Equal(t, `{"a":[1,2]}`, repaired)
}

func TestRepairUnbalanced_AlreadyBalanced_ReportsFalse(t *testing.T) {
	s := `{"a":1}`

	_, ok := repairUnbalanced(s)
	assert.False(t, ok)
}

func TestDropTrailingIncompleteItem_RemovesTruncatedLastElement(t *testing.T) {
	s := `{"items":[{"name":"a"},{"name":"b"`

	trimmed, ok := dropTrailingIncompleteItem(s)
	require.True(t, ok)
	assert.Equal(t, `{"items":[{"name":"a"}]}`, trimmed)
}

func TestDropTrailingIncompleteItem_NoItemBoundary_ReportsFalse(t *testing.T) {
	s := `{"items":[{"name":"a"`

	_, ok := dropTrailingIncompleteItem(s)
	assert.False(t, ok)
}
