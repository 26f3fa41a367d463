package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/maine/manga_affiliate_bot/internal/config"
	"github.com/maine/manga_affiliate_bot/internal/manga"
)

const dateLayout = "2006-01-02"

// Filter реализует бизнес-правила отбора товаров для публикации.
type Filter struct {
	cfg config.Pipeline
}

// New создаёт экземпляр фильтра. Нулевые значения заменяются дефолтами.
func New(cfg config.Pipeline) *Filter {
	def := config.Default().Pipeline
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = def.MinPrice
	}
	if cfg.MaxDailyRank <= 0 {
		cfg.MaxDailyRank = def.MaxDailyRank
	}
	if cfg.MaxWeeklyRank <= 0 {
		cfg.MaxWeeklyRank = def.MaxWeeklyRank
	}
	if cfg.MaxMonthlyRank <= 0 {
		cfg.MaxMonthlyRank = def.MaxMonthlyRank
	}
	if cfg.SingleChapterMark == "" {
		cfg.SingleChapterMark = def.SingleChapterMark
	}
	if cfg.NovelMark == "" {
		cfg.NovelMark = def.NovelMark
	}
	return &Filter{cfg: cfg}
}

// Apply оставляет только товары, проходящие все правила. Порядок сохраняется.
// Функция чистая: повторное применение к результату ничего не меняет.
func (f *Filter) Apply(items []manga.MergedItem, today time.Time) []manga.MergedItem {
	filtered := make([]manga.MergedItem, 0, len(items))
	for _, item := range items {
		if f.Eligible(item, today) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Eligible проверяет один товар.
func (f *Filter) Eligible(item manga.MergedItem, today time.Time) bool {
	if IsReservation(item.Date, today) {
		return false
	}
	if !item.IsNew {
		return false
	}
	if price, ok := listingPrice(item.RawListing); ok && price < f.cfg.MinPrice {
		return false
	}
	if strings.Contains(item.Title, f.cfg.SingleChapterMark) {
		return false
	}
	if strings.Contains(item.Title, f.cfg.NovelMark) {
		return false
	}
	return true
}

// Qualify дополняет отобранные товары производными полями: сводкой рейтинга, скидкой, эксклюзивностью.
func (f *Filter) Qualify(items []manga.MergedItem) []manga.EligibleItem {
	result := make([]manga.EligibleItem, 0, len(items))
	for _, item := range items {
		eligible := manga.EligibleItem{
			MergedItem:     item,
			RankingSummary: f.RankingSummary(item.Ranking),
			IsExclusive:    IsExclusive(item.URL),
		}
		if d, ok := Discount(item.RawListing); ok {
			eligible.Discount = &d
		}
		result = append(result, eligible)
	}
	return result
}

// RankingSummary возвращает "日間10位・週間5位" только по проходным местам.
func (f *Filter) RankingSummary(r manga.Ranking) string {
	var parts []string
	if r.Daily > 0 && r.Daily <= f.cfg.MaxDailyRank {
		parts = append(parts, fmt.Sprintf("日間%d位", r.Daily))
	}
	if r.Weekly > 0 && r.Weekly <= f.cfg.MaxWeeklyRank {
		parts = append(parts, fmt.Sprintf("週間%d位", r.Weekly))
	}
	if r.Monthly > 0 && r.Monthly <= f.cfg.MaxMonthlyRank {
		parts = append(parts, fmt.Sprintf("月間%d位", r.Monthly))
	}
	return strings.Join(parts, "・")
}

// IsReservation сообщает, что дата выхода (без времени) позже today.
// Пустая или нераспознанная дата предзаказом не считается.
func IsReservation(date string, today time.Time) bool {
	datePart, _, _ := strings.Cut(strings.TrimSpace(date), " ")
	if datePart == "" {
		return false
	}
	release, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return false
	}
	return release.Format(dateLayout) > today.Format(dateLayout)
}

// ParsePrice извлекает из строки только цифры ("1,100円~" -> 1100).
// Полноширинные цифры приводятся к ASCII.
func ParsePrice(raw string) (int, bool) {
	var digits strings.Builder
	for _, r := range width.Fold.String(raw) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// Discount считает скидку, если текущая цена ниже базовой.
func Discount(l manga.RawListing) (manga.DiscountInfo, bool) {
	if l.Prices == nil {
		return manga.DiscountInfo{}, false
	}
	price, ok := ParsePrice(string(l.Prices.Price))
	if !ok {
		return manga.DiscountInfo{}, false
	}
	listPrice, ok := ParsePrice(string(l.Prices.ListPrice))
	if !ok || listPrice <= 0 || price >= listPrice {
		return manga.DiscountInfo{}, false
	}
	rate := int(math.RoundToEven((1 - float64(price)/float64(listPrice)) * 100))
	return manga.DiscountInfo{Rate: rate, ListPrice: listPrice, Price: price}, true
}

// IsExclusive определяет эксклюзив площадки по URL товара.
func IsExclusive(url string) bool {
	return strings.Contains(url, "exclusive") || strings.Contains(url, "独占")
}

func listingPrice(l manga.RawListing) (int, bool) {
	if l.Prices == nil {
		return 0, false
	}
	return ParsePrice(string(l.Prices.Price))
}
