package sources

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantInt int
		isTrue  bool
	}{
		{name: "string", input: `"1024"`, want: "1024", wantInt: 1024, isTrue: true},
		{name: "number", input: `42`, want: "42", wantInt: 42, isTrue: true},
		{name: "zero", input: `0`, want: "0", wantInt: 0},
		{name: "bool", input: `true`, want: "true", isTrue: true},
		{name: "null", input: `null`, want: ""},
		{name: "text with number", input: `"共592章"`, want: "共592章", wantInt: 592},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flexString
			require.NoError(t, json.Unmarshal([]byte(tt.input), &f))
			assert.Equal(t, tt.want, f.String())
			assert.Equal(t, tt.wantInt, f.Int())
			assert.Equal(t, tt.isTrue, f.Bool())
		})
	}
}

func TestAbsURL(t *testing.T) {
	assert.Equal(t, "https://img.example.com/a.jpg", absURL("https://www.example.com/", "//img.example.com/a.jpg"))
	assert.Equal(t, "https://www.example.com/book/1", absURL("https://www.example.com/", "/book/1"))
	assert.Equal(t, "https://other.example.com/x", absURL("https://www.example.com/", "https://other.example.com/x"))
	assert.Empty(t, absURL("https://www.example.com/", "  "))
}

func TestCleanAndDedupe(t *testing.T) {
	assert.Equal(t, "a b c", clean("  a\n b\t\tc "))
	assert.Equal(t, []string{"x", "y"}, dedupe([]string{"x", "y", "x"}))
	assert.Equal(t, []string{"a", "b"}, nonEmpty([]string{" a ", "", "  ", "b"}))
	assert.Nil(t, nonEmpty([]string{""}))
}

func TestWanWordsAndUnixTime(t *testing.T) {
	assert.Equal(t, "123.5万字", wanWords(1234567))
	assert.Empty(t, wanWords(0))
	assert.Empty(t, unixTime(0))
	assert.NotEmpty(t, unixTime(1700000000))
}
