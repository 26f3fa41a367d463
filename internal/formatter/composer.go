package formatter

import (
	"regexp"
	"strings"

	"github.com/maine/manga_affiliate_bot/internal/manga"
)

const (
	// DisclosureTag завершает каждый пост.
	DisclosureTag = "#PR"

	badgeNew       = "🆕新着"
	badgeExclusive = "🔒FANZA限定"
	badgeSeparator = "・"
)

// Compose собирает шаблонный текст поста. Функция детерминирована:
// один и тот же товар всегда даёт один и тот же текст.
func Compose(item manga.EligibleItem) string {
	lines := make([]string, 0, 6)

	lines = append(lines, "『"+item.Title+"』")

	if author := item.AuthorName(); author != "" {
		lines = append(lines, "作者: "+author)
	}

	var badges []string
	if item.IsNew {
		badges = append(badges, badgeNew)
	}
	if item.IsExclusive {
		badges = append(badges, badgeExclusive)
	}
	if len(badges) > 0 {
		lines = append(lines, "【"+strings.Join(badges, badgeSeparator)+"】")
	}

	if item.RankingSummary != "" {
		lines = append(lines, "📊ランキング: "+item.RankingSummary)
	}

	// Цена выводится в исходном виде, как её отдал источник.
	if item.Prices != nil && item.Prices.Price != "" {
		lines = append(lines, "💴価格: "+string(item.Prices.Price)+"円")
	}

	lines = append(lines, DisclosureTag)
	return strings.Join(lines, "\n")
}

var (
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	newlineRunsRegex = regexp.MustCompile(`\n{3,}`)
)

// BuildTransmission готовит итоговый текст для отправки: убирает ссылки из тела,
// схлопывает лишние переводы строк и дописывает партнёрскую ссылку в конец.
func BuildTransmission(postText, affiliateURL string) string {
	text := strings.TrimSpace(urlPattern.ReplaceAllString(postText, ""))
	text = newlineRunsRegex.ReplaceAllString(text, "\n\n")

	if affiliateURL == "" {
		return text
	}
	if strings.HasSuffix(text, DisclosureTag) {
		return text + "\n" + affiliateURL
	}
	return text + "\n\n" + affiliateURL
}
