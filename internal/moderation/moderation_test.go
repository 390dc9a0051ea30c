package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatchesWholeWords(t *testing.T) {
	f := NewFilter("damn", "hell")

	assert.True(t, f.IsProfane("damn"))
	assert.True(t, f.IsProfane("what the HELL"))
	assert.True(t, f.IsProfane("well, damn."))
	assert.False(t, f.IsProfane("hello there"))
	assert.False(t, f.IsProfane("shell scripting"))
	assert.False(t, f.IsProfane(""))
}

func TestFilterNormalizesWordList(t *testing.T) {
	f := NewFilter(" Damn ", "", "HELL")

	assert.True(t, f.IsProfane("damn"))
	assert.True(t, f.IsProfane("hell"))
}

func TestNoneAllowsEverything(t *testing.T) {
	assert.False(t, None{}.IsProfane("damn hell anything"))
}
