package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSassLocation(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   Location
	}{
		{
			name:   "go-libsass summary",
			output: "Error > stdin:3\ninvalid property name",
			want:   Location{File: "stdin", Line: 3, Message: "invalid property name"},
		},
		{
			name: "libsass formatted",
			output: "Error: Invalid CSS after \"a {\": expected \"}\", was \"\"\n" +
				"        on line 2:5 of stdin\n" +
				">> a {\n" +
				"   ----^\n",
			want: Location{
				File:    "stdin",
				Line:    2,
				Column:  5,
				Message: `Invalid CSS after "a {": expected "}", was ""`,
			},
		},
		{
			name:   "file position prefix",
			output: "src/theme.scss:12:4: undefined variable",
			want:   Location{File: "src/theme.scss", Line: 12, Column: 4, Message: "undefined variable"},
		},
		{
			name:   "no position",
			output: "file to import not found or unreadable: missing",
			want:   Location{Message: "file to import not found or unreadable: missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSassLocation(tt.output))
		})
	}
}
