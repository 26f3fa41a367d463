package rewrite

import (
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxSentenceRunes = 60
	maxPrefixedRunes = 50
	minContentRunes  = 5

	insufficientFallback = "これヤバすぎる内容…興奮が止まらない😳"
)

var (
	markdownHeading = regexp.MustCompile(`(?m)^#+ .*$`)
	markdownBold    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	markdownItalic  = regexp.MustCompile(`\*(.*?)\*`)
	numberedList    = regexp.MustCompile(`(?m)^\d+\.\s.*$`)
	bulletList      = regexp.MustCompile(`(?m)^[•*\-]\s.*$`)
	fencedCode      = regexp.MustCompile("(?s)```.*?```")

	casualPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([^。\n]*?(羨ましすぎ|背徳感|ヤバい|ヤバすぎ|たまんない|興奮する|止まらない|最高|激アツ)[^。\n]*?)[。！？\n]`),
		regexp.MustCompile(`([^。\n]*?(俺|私|自分)[^。\n]*?(興奮|ドキドキ|ゾクゾク|たまらない|好き|最高)[^。\n]*?)[。！？\n]`),
		regexp.MustCompile(`([^。\n]*?[😍😳🔥💦❤️][^。\n]*?)[。！？\n]`),
	}

	explanationLine   = regexp.MustCompile(`^(例:|例：|こんな感じ|以下のような|ツイート例|投稿例)`)
	japaneseChar      = regexp.MustCompile(`[ぁ-んァ-ン一-龥]`)
	japaneseCharAtEnd = regexp.MustCompile(`[ぁ-んァ-ン一-龥]$`)
	sentenceBoundary  = regexp.MustCompile(`[。！？]`)
	firstPerson       = regexp.MustCompile(`(俺|私|自分)`)
	excitement        = regexp.MustCompile(`(ヤバい|すごい|最高|興奮|羨ましい|背徳感)`)
	exclamation       = regexp.MustCompile(`[…！？]`)
	targetEmoji       = regexp.MustCompile(`[😍😳🔥💦❤️]`)
	emotiveEnding     = regexp.MustCompile(`[！？…w]$`)
	emojiOrSpace      = regexp.MustCompile(`[😍😳🔥💦❤️\s]`)
	inlineHashtag     = regexp.MustCompile(`[#＃]\S+`)
)

var fallbackTexts = []string{
	"これマジでヤバい内容…見た瞬間興奮が止まらない😳",
	"背徳感すごいのに目が離せない…こんなの反則だろ🔥",
	"見てるだけで羨ましすぎる…最高かよ😍",
	"こんな展開待ってた！超興奮する内容でヤバい😳",
	"私の理性が崩壊しそう…こんな濃厚な展開ヤバすぎ💦",
	"これ見た瞬間に我慢できなくなって即買いしたわw🔥",
	"急にこんなシチュエーションになるとか反則すぎる…💦",
}

var (
	firstPersonPrefixes = []string{"私これ", "俺これ", "自分的には", "私的に", "俺的に"}
	emojiOptions        = []string{"😳", "😍", "🔥", "💦", "❤️"}
)

// Extract превращает сырой ответ модели в короткий пост: одна живая фраза,
// эмодзи, тематический хэштег и #PR. original - шаблонный текст, из которого
// берётся название для выбора хэштега. Пустой raw даёт одну из заготовок.
func Extract(raw, original string, rng *rand.Rand) string {
	text := stripMarkdown(raw)
	hashtag := PickHashtag(TitleOf(original), text, rng)

	final := pickSentence(text)
	if final == "" {
		final = fallbackTexts[rng.IntN(len(fallbackTexts))]
	}
	final = strings.TrimSpace(inlineHashtag.ReplaceAllString(final, ""))

	if !firstPerson.MatchString(final) {
		if utf8.RuneCountInString(final) <= maxPrefixedRunes && !strings.HasPrefix(final, "これ") {
			final = firstPersonPrefixes[rng.IntN(len(firstPersonPrefixes))] + final
		}
	}
	if !emotiveEnding.MatchString(final) {
		final += "…！"
	}
	if !targetEmoji.MatchString(final) {
		final += emojiOptions[rng.IntN(len(emojiOptions))]
	}

	final = strings.TrimSpace(final) + "\n\n" + hashtag + " " + DisclosureTag

	if utf8.RuneCountInString(emojiOrSpace.ReplaceAllString(final, "")) < minContentRunes {
		return insufficientFallback + "\n\n" + hashtag + " " + DisclosureTag
	}
	return final
}

func stripMarkdown(text string) string {
	text = markdownHeading.ReplaceAllString(text, "")
	text = markdownBold.ReplaceAllString(text, "$1")
	text = markdownItalic.ReplaceAllString(text, "$1")
	text = numberedList.ReplaceAllString(text, "")
	text = bulletList.ReplaceAllString(text, "")
	text = fencedCode.ReplaceAllString(text, "")
	return text
}

// pickSentence сначала ищет эмоциональные фрагменты, затем короткие фразы с
// наибольшим весом. Пустая строка означает, что подходящего нет.
func pickSentence(text string) string {
	if casual := casualFragments(text); len(casual) > 0 {
		return shortestCasual(casual)
	}

	scored := scoredSentences(text)
	if len(scored) == 0 {
		return ""
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored[0].text
}

func casualFragments(text string) []string {
	var fragments []string
	for _, pattern := range casualPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			fragments = append(fragments, m[1])
		}
	}
	return fragments
}

func shortestCasual(fragments []string) string {
	best, bestLen := "", -1
	for _, f := range fragments {
		n := utf8.RuneCountInString(f)
		if n > maxSentenceRunes {
			continue
		}
		if bestLen < 0 || n < bestLen {
			best, bestLen = f, n
		}
	}
	if bestLen >= 0 {
		return best
	}
	return truncateRunes(fragments[0], maxSentenceRunes)
}

// truncateRunes обрезает строку до limit рун и не рвёт японское слово посередине.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := runes[:limit]
	if japaneseCharAtEnd.MatchString(string(cut)) {
		for i := len(cut) - 1; i > 0; i-- {
			if !japaneseChar.MatchString(string(cut[i-1])) {
				cut = cut[:i]
				break
			}
		}
	}
	return string(cut) + "…"
}

type scoredSentence struct {
	text  string
	score int
}

func scoredSentences(text string) []scoredSentence {
	var result []scoredSentence
	for _, line := range strings.Split(text, "\n") {
		if explanationLine.MatchString(line) || !japaneseChar.MatchString(line) {
			continue
		}
		for _, sentence := range sentenceBoundary.Split(line, -1) {
			if strings.TrimSpace(sentence) == "" || utf8.RuneCountInString(sentence) > maxSentenceRunes {
				continue
			}
			score := 0
			if firstPerson.MatchString(sentence) {
				score += 5
			}
			if excitement.MatchString(sentence) {
				score += 4
			}
			if exclamation.MatchString(sentence) {
				score += 2
			}
			if targetEmoji.MatchString(sentence) {
				score += 2
			}
			if score >= 2 {
				result = append(result, scoredSentence{text: strings.TrimSpace(sentence), score: score})
			}
		}
	}
	return result
}
