package tagging

type tagDef struct {
	id       string
	label    string
	summary  string
	keywords []string
}

// vocabulary is ordered; ExtractTags reports tags in this order.
var vocabulary = []tagDef{
	{"newcomer", "新人", "新人・デビュー作の動きが活発なタグです。", []string{"新人", "デビュー", "初登場", "初作品"}},
	{"exclusive", "独占", "独占配信・限定販売に関連する話題をまとめています。", []string{"独占", "独占配信", "限定", "独占販売"}},
	{"highres", "高画質", "高画質・4K関連の注目作が集まるタグです。", []string{"4K", "高画質", "HD", "FHD"}},
	{"sale", "セール", "セールや期間限定のキャンペーン情報に関するタグです。", []string{"セール", "キャンペーン", "期間限定", "割引", "特価"}},
	{"ranking", "ランキング", "ランキング上位や話題作の動きを追跡しています。", []string{"ランキング", "人気", "上位", "注目"}},
	{"actress", "女優", "注目女優や話題の出演情報をまとめるタグです。", []string{"女優", "注目女優", "新人女優", "人気女優"}},
	{"release", "配信", "本日配信や新作リリースに関するタグです。", []string{"本日配信", "先行配信", "本日発売", "新作"}},
	{"drama", "ドラマ", "ドラマ性の高い作品やストーリー重視の作品が集まります。", []string{"ドラマ", "ストーリー", "恋愛", "シナリオ"}},
	{"fetish", "フェチ", "フェチ志向の作品やテーマ性の強い作品を集めています。", []string{"フェチ", "マニア", "こだわり"}},
	{"cosplay", "コスプレ", "コスプレや制服系の作品にフォーカスしたタグです。", []string{"コスプレ", "制服", "コスチューム"}},
	{"genre", "ジャンル", "ジャンル別の動向をまとめるタグです。", []string{"ジャンル", "カテゴリ", "テーマ"}},
	{"compilation", "総集編", "総集編やベスト盤などまとめ作品が中心です。", []string{"総集編", "ベスト", "まとめ"}},
	{"feature", "特集", "特集記事やピックアップ企画の動向をまとめています。", []string{"特集", "ピックアップ", "特別企画"}},
	{"event", "イベント", "イベントやフェア、短期企画に関するタグです。", []string{"イベント", "フェア", "キャンペーン"}},
}

var byID = func() map[string]*tagDef {
	m := make(map[string]*tagDef, len(vocabulary))
	for i := range vocabulary {
		m[vocabulary[i].id] = &vocabulary[i]
	}
	return m
}()
