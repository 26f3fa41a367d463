package posting

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

var variationBadges = []string{
	"速報",
	"注目",
	"話題",
	"再掲",
	"人気",
	"必見",
	"おすすめ",
}

var leadingBadge = regexp.MustCompile(`^【[^】]*】\s*`)

// Vary делает текст уникальным для сервиса: ставит в начало метку вида
// 【注目 10/19 21:05】 вместо уже существующей метки в скобках.
func Vary(text string, now time.Time, rng *rand.Rand) string {
	badge := fmt.Sprintf("【%s %s】", variationBadges[rng.IntN(len(variationBadges))], now.Format("1/2 15:04:05"))
	body := leadingBadge.ReplaceAllString(strings.TrimLeft(text, " \t\n"), "")
	return badge + body
}
