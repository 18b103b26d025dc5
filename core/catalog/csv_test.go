package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academy/core"
)

func Test_closestMatch(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{word: "titel", want: "title"},
		{word: "dificulty", want: "difficulty"},
		{word: "mandatory", want: "is_mandatory"},
		{word: "lol", want: ""},
		{word: "xyz", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, closestMatch(tt.word, CourseCSVHeader))
		})
	}
}

func Test_readCSV(t *testing.T) {
	headerErr := func(t *testing.T, err error) string {
		require.Error(t, err)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "got %T", err)
		require.Len(t, vErr.Fields, 1)
		return vErr.Fields[0].Field + ": " + vErr.Fields[0].Error
	}

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty", data: "", wantErr: "file: file is empty"},
		{name: "unknown column", data: "titel\nlol\n", wantErr: `header: unknown column "titel" (did you mean "title"?)`},
		{name: "duplicate column", data: "title,Title\nlol,lol\n", wantErr: `header: duplicate column "title"`},
		{name: "missing column", data: "description\nlol\n", wantErr: `header: missing column "title"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCSV(strings.NewReader(tt.data), CourseCSVHeader, courseRequiredCols)
			assert.Equal(t, tt.wantErr, headerErr(t, err))
		})
	}

	t.Run("rows", func(t *testing.T) {
		data := "\ufeffTitle, Order\nSafety,1\nHandling\n"
		rows, err := readCSV(strings.NewReader(data), CourseCSVHeader, courseRequiredCols)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Safety", rows[0]["title"])
		assert.Equal(t, "1", rows[0]["order"])
		assert.Equal(t, "", rows[1]["order"])
	})
}
