package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii with spaces", in: "Yua  Mikami", want: "yua-mikami"},
		{name: "japanese keeps letters", in: "三上 悠亜", want: "三上-悠亜"},
		{name: "full width folded", in: "ＡＢＣ１２３", want: "abc123"},
		{name: "trims punctuation", in: "  --Hello, World!--  ", want: "hello-world"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestLimitText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", LimitText("abc", 5))
	assert.Equal(t, "abcd…", LimitText("abcdefgh", 5))
	assert.Equal(t, "あいう…", LimitText("あいうえおか", 4))
	assert.Equal(t, "", LimitText("abc", 0))
}

func TestUniqueStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c"}, UniqueStrings([]string{"a", "", "b", "a", "c", "b"}))
	assert.Empty(t, UniqueStrings(nil))
}
