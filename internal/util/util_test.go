package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MakeTextList(t *testing.T) {
	testCases := []struct {
		name   string
		items  []string
		conj   string
		expect string
	}{
		{name: "empty", items: nil, conj: "and", expect: ""},
		{name: "one", items: []string{"NUMBER"}, conj: "or", expect: "NUMBER"},
		{name: "two", items: []string{`"+"`, `"*"`}, conj: "or", expect: `"+" or "*"`},
		{name: "three", items: []string{"a", "b", "c"}, conj: "and", expect: "a, b, and c"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// execute
			actual := MakeTextList(tc.items, tc.conj)

			// assert
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_ArticleFor(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		definite bool
		expect   string
	}{
		{name: "empty", input: "", expect: ""},
		{name: "consonant", input: "block", expect: "a"},
		{name: "vowel", input: "expr", expect: "an"},
		{name: "capitalized vowel", input: "Identifier", expect: "An"},
		{name: "all caps vowel", input: "EOF", expect: "AN"},
		{name: "all caps consonant", input: "NUMBER", expect: "A"},
		{name: "definite", input: "block", definite: true, expect: "the"},
		{name: "definite all caps", input: "NUMBER", definite: true, expect: "THE"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// execute
			actual := ArticleFor(tc.input, tc.definite)

			// assert
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_OrderedKeys(t *testing.T) {
	assert := assert.New(t)

	// setup
	m := map[string]int{"bolt": 1, "arith": 2, "json": 3}

	// execute
	actual := OrderedKeys(m)

	// assert
	assert.Equal([]string{"arith", "bolt", "json"}, actual)
}

func Test_Truncate(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("abc", Truncate("abc", 3))
	assert.Equal("ab...", Truncate("abc", 2))
	assert.Equal("é...", Truncate("éé", 1))
}
