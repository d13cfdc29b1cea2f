package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExprExists(t *testing.T) {
	e, err := ParseExpr("desc.exists")
	require.NoError(t, err)
	assert.Equal(t, True, e.Eval(Facts{Present: map[string]bool{"desc": true}}))
	assert.Equal(t, False, e.Eval(Facts{Present: map[string]bool{}}))
}

func TestParseExprMissing(t *testing.T) {
	e, err := ParseExpr("desc.missing")
	require.NoError(t, err)
	assert.Equal(t, True, e.Eval(Facts{Present: map[string]bool{}}))
	assert.Equal(t, False, e.Eval(Facts{Present: map[string]bool{"desc": true}}))
}

func TestParseExprValueEqUnknownWhenAbsent(t *testing.T) {
	e, err := ParseExpr("type.value == character_event")
	require.NoError(t, err)
	assert.Equal(t, Unknown, e.Eval(Facts{Present: map[string]bool{}}))
	assert.Equal(t, True, e.Eval(Facts{
		Present: map[string]bool{"type": true},
		Value:   map[string]string{"type": "character_event"},
	}))
	assert.Equal(t, False, e.Eval(Facts{
		Present: map[string]bool{"type": true},
		Value:   map[string]string{"type": "letter_event"},
	}))
}

func TestParseExprCountCmp(t *testing.T) {
	e, err := ParseExpr("option.count >= 1")
	require.NoError(t, err)
	assert.Equal(t, True, e.Eval(Facts{Count: map[string]int{"option": 2}}))
	assert.Equal(t, False, e.Eval(Facts{Count: map[string]int{"option": 0}}))
	assert.Equal(t, Unknown, e.Eval(Facts{Count: map[string]int{}}))
}

func TestParseExprAndThreeValued(t *testing.T) {
	e, err := ParseExpr("a.exists AND b.exists")
	require.NoError(t, err)
	assert.Equal(t, False, e.Eval(Facts{Present: map[string]bool{"a": false, "b": true}}))
	assert.Equal(t, True, e.Eval(Facts{Present: map[string]bool{"a": true, "b": true}}))
}

func TestParseExprOrThreeValued(t *testing.T) {
	e, err := ParseExpr("a.exists OR b.exists")
	require.NoError(t, err)
	assert.Equal(t, True, e.Eval(Facts{Present: map[string]bool{"a": true, "b": false}}))
	assert.Equal(t, False, e.Eval(Facts{Present: map[string]bool{"a": false, "b": false}}))
}

func TestParseExprNot(t *testing.T) {
	e, err := ParseExpr("NOT desc.exists")
	require.NoError(t, err)
	assert.Equal(t, True, e.Eval(Facts{Present: map[string]bool{}}))
	assert.Equal(t, False, e.Eval(Facts{Present: map[string]bool{"desc": true}}))
}

func TestParseExprParensAndPrecedence(t *testing.T) {
	e, err := ParseExpr("a.exists AND (b.exists OR c.exists)")
	require.NoError(t, err)
	assert.Equal(t, True, e.Eval(Facts{Present: map[string]bool{"a": true, "b": false, "c": true}}))
	assert.Equal(t, False, e.Eval(Facts{Present: map[string]bool{"a": true, "b": false, "c": false}}))
}

func TestParseExprRejectsMalformedPredicate(t *testing.T) {
	_, err := ParseExpr("desc")
	assert.Error(t, err)
}

func TestParseExprRejectsUnknownSuffix(t *testing.T) {
	_, err := ParseExpr("desc.frobnicate")
	assert.Error(t, err)
}

func TestParseExprRejectsTrailingTokens(t *testing.T) {
	_, err := ParseExpr("desc.exists extra")
	assert.Error(t, err)
}
