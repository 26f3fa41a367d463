// Package affiliate переписывает партнёрские ссылки под каналы отбора и публикации.
package affiliate

import (
	"fmt"
	"strings"

	"github.com/maine/manga_affiliate_bot/internal/config"
)

// Linker строит ссылки с учётом идентификатора партнёра и каналов.
type Linker struct {
	ID            string
	Site          string
	Channel       string
	PostSite      string
	PostChannel   string
	PostChannelID string
}

// NewLinker берёт параметры из окружения.
func NewLinker(env *config.EnvConfig) *Linker {
	return &Linker{
		ID:            env.AffiliateID,
		Site:          env.AffiliateSite,
		Channel:       env.AffiliateChannel,
		PostSite:      env.AffiliatePostSite,
		PostChannel:   env.AffiliatePostChannel,
		PostChannelID: env.AffiliatePostChannelID,
	}
}

// Build пересобирает ссылку товара: сохраняет параметр lurl (или заворачивает в него
// исходный query) и добавляет af_id и ch канала отбора.
// Без идентификатора партнёра ссылка возвращается как есть.
func (l *Linker) Build(rawURL string) string {
	if rawURL == "" || l.ID == "" {
		return rawURL
	}

	base, query, hasQuery := strings.Cut(rawURL, "?")
	if !hasQuery {
		return base + "?" + l.selectionTag()
	}

	for _, part := range strings.Split(query, "&") {
		if strings.HasPrefix(part, "lurl=") {
			return base + "?" + part + "&" + l.selectionTag()
		}
	}
	return base + "?lurl=" + escapeQuery(query) + "&" + l.selectionTag()
}

// ForPosting заменяет метку канала отбора на метку канала публикации.
func (l *Linker) ForPosting(link string) string {
	if link == "" || l.ID == "" {
		return link
	}
	from := l.tag(l.Site, l.Channel)
	if !strings.Contains(link, from) {
		return link
	}
	to := l.tag(l.PostSite, l.PostChannel) + "&ch_id=" + l.PostChannelID
	return strings.Replace(link, from, to, 1)
}

func (l *Linker) selectionTag() string {
	return "af_id=" + l.tag(l.Site, l.Channel)
}

func (l *Linker) tag(site, channel string) string {
	return fmt.Sprintf("%s-%s&ch=%s", l.ID, site, channel)
}

const upperHex = "0123456789ABCDEF"

// escapeQuery кодирует строку для параметра lurl: сохраняются латиница, цифры,
// "-_.~" и "/", пробел становится %20, остальные байты процентным кодом.
func escapeQuery(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~', c == '/':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&15])
		}
	}
	return b.String()
}
