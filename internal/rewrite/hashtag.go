package rewrite

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// DisclosureTag дописывается после тематического хэштега.
const DisclosureTag = "#PR"

var hashtagPool = []string{
	"#官能",
	"#ファンタジー",
	"#背徳感",
	"#ドキドキ",
	"#興奮",
	"#ハーレム",
	"#アダルト",
	"#エロマンガ",
	"#成人向け",
	"#エロ漫画",
	"#おすすめ",
	"#人気",
	"#新刊",
	"#BL",
	"#GL",
	"#TL",
	"#マンガ",
	"#漫画",
	"#コミック",
	"#妄想",
	"#大人の時間",
	"#フェチ",
	"#ギャル",
	"#美少女",
	"#エッチ",
	"#読書",
	"#電子書籍",
	"#濡れる",
	"#おうち時間",
	"#熱い",
}

type titleRule struct {
	keyword string
	tag     string
}

// Правила проверяются по порядку, срабатывает первое.
var titleRules = []titleRule{
	{"ハーレム", "#ハーレム"},
	{"孕ませ", "#大人の時間"},
	{"絶頂", "#エッチ"},
	{"搾", "#フェチ"},
	{"魔物", "#ファンタジー"},
	{"触手", "#フェチ"},
	{"女子校生", "#美少女"},
	{"JK", "#美少女"},
	{"妹", "#背徳感"},
	{"姉", "#背徳感"},
	{"先生", "#背徳感"},
	{"義理", "#背徳感"},
	{"学園", "#青春"},
	{"ファンタジー", "#ファンタジー"},
	{"ダンジョン", "#ファンタジー"},
	{"メイド", "#美少女"},
	{"巨乳", "#おっぱい"},
	{"爆乳", "#おっぱい"},
	{"BL", "#BL"},
	{"GL", "#GL"},
	{"TL", "#TL"},
}

var titlePattern = regexp.MustCompile(`『(.+?)』`)

// TitleOf достаёт название из шаблонного текста (первое 『…』).
func TitleOf(original string) string {
	m := titlePattern.FindStringSubmatch(original)
	if m == nil {
		return ""
	}
	return m[1]
}

// PickHashtag выбирает тематический хэштег: по названию, затем по тексту ответа,
// затем случайно из общего набора.
func PickHashtag(title, content string, rng *rand.Rand) string {
	if title != "" {
		folded := width.Fold.String(title)
		for _, rule := range titleRules {
			if strings.Contains(folded, rule.keyword) {
				return rule.tag
			}
		}
	}

	switch {
	case strings.Contains(content, "BL"):
		return "#BL"
	case strings.Contains(content, "百合"), strings.Contains(content, "GL"):
		return "#GL"
	case strings.Contains(content, "TL"):
		return "#TL"
	}
	return hashtagPool[rng.IntN(len(hashtagPool))]
}
