package input

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DirectReader_ReadCommand(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		allowBlank bool
		expect     []string
	}{
		{
			name:   "skips blank lines",
			input:  "tree\n\n   \nquit\n",
			expect: []string{"tree", "quit"},
		},
		{
			name:       "blank lines allowed",
			input:      "tree\n\nquit",
			allowBlank: true,
			expect:     []string{"tree", "", "quit"},
		},
		{
			name:   "last line without newline",
			input:  "  edit 1 2 x  ",
			expect: []string{"edit 1 2 x"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			r := NewDirectReader(strings.NewReader(tc.input))
			r.AllowBlank(tc.allowBlank)

			// execute
			var actual []string
			for {
				line, err := r.ReadCommand()
				if err == io.EOF {
					break
				}
				if !assert.NoError(err) {
					return
				}
				actual = append(actual, line)
			}

			// assert
			assert.Equal(tc.expect, actual)
			assert.NoError(r.Close())
		})
	}
}
