package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "newcomer debut", text: "話題の新人デビュー作", want: []string{"newcomer"}},
		{name: "unrelated", text: "unrelated text", want: []string{}},
		{name: "empty", text: "", want: []string{}},
		{name: "vocabulary order", text: "独占配信の4K新作、新人女優", want: []string{"newcomer", "exclusive", "highres", "actress", "release"}},
		{name: "shared keyword hits both tags", text: "キャンペーン", want: []string{"sale", "event"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractTags(tt.text))
		})
	}
}

func TestExtractMetaTags(t *testing.T) {
	t.Parallel()

	body := "作品番号: ABC-123\nメーカー: S1\nジャンル: A / B\n概要: x"
	assert.Equal(t, []string{"maker:S1", "genre:A", "genre:B"}, ExtractMetaTags(body))
	assert.Empty(t, ExtractMetaTags("メーカー:   \nジャンル: / "))

	makers, genres := SplitMeta(ExtractMetaTags(body))
	assert.Equal(t, []string{"S1"}, makers)
	assert.Equal(t, []string{"A", "B"}, genres)
}

func TestLookups(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "newcomer", NormalizeTag(" #newcomer "))
	assert.Equal(t, "genre:巨乳", NormalizeTag("genre%3A%E5%B7%A8%E4%B9%B3"))
	assert.Equal(t, "%zz", NormalizeTag("%zz"))

	assert.Equal(t, "新人", Label("newcomer"))
	assert.Equal(t, "S1", Label("maker:S1"))
	assert.Equal(t, "unknown", Label("unknown"))
	assert.Equal(t, "タグ", Label(""))

	assert.Equal(t, "新人・デビュー作の動きが活発なタグです。", Summary("#newcomer"))
	assert.Equal(t, "関連作品やトピックをまとめたタグです。", Summary("nope"))

	assert.Equal(t, []string{"コスプレ", "制服", "コスチューム"}, Keywords("cosplay"))
	assert.Equal(t, []string{"A"}, Keywords("genre:A"))
	assert.Empty(t, Keywords("nope"))
	assert.Len(t, Vocabulary(), 14)
}
