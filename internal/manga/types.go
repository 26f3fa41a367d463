package manga

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Source обозначает один из запросов к партнёрскому API.
type Source string

const (
	SourceDaily   Source = "daily"
	SourceWeekly  Source = "weekly"
	SourceMonthly Source = "monthly"
	SourceNewest  Source = "newest"
	SourcePrice   Source = "price"
)

// SourceOrder фиксирует порядок слияния: более ранний источник владеет общими полями записи.
var SourceOrder = []Source{SourceDaily, SourceWeekly, SourceMonthly, SourceNewest, SourcePrice}

// FlexString принимает в JSON как строку, так и число (API отдаёт цены по-разному).
type FlexString string

// UnmarshalJSON реализует json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

// Prices содержит цены в том виде, в каком их вернул источник.
type Prices struct {
	Price     FlexString `json:"price,omitempty"`
	ListPrice FlexString `json:"list_price,omitempty"`
}

// Person - автор или художник из блока iteminfo.
type Person struct {
	ID   FlexString `json:"id,omitempty"`
	Name string     `json:"name"`
}

// ItemInfo - вложенные справочные данные товара.
type ItemInfo struct {
	Author []Person `json:"author,omitempty"`
	Genre  []Person `json:"genre,omitempty"`
}

// RawListing описывает один товар сразу после получения из API.
type RawListing struct {
	ContentID    string     `json:"content_id,omitempty"`
	ProductID    string     `json:"product_id,omitempty"`
	Title        string     `json:"title"`
	URL          string     `json:"URL,omitempty"`
	AffiliateURL string     `json:"affiliateURL,omitempty"`
	Date         string     `json:"date,omitempty"`
	Author       string     `json:"author,omitempty"`
	ArtistName   string     `json:"artistName,omitempty"`
	Rank         int        `json:"rank,omitempty"`
	Volume       FlexString `json:"volume,omitempty"`
	Prices       *Prices    `json:"prices,omitempty"`
	ItemInfo     *ItemInfo  `json:"iteminfo,omitempty"`
}

// AuthorName возвращает имя автора: author, затем artistName, затем iteminfo.author.
func (l RawListing) AuthorName() string {
	if name := strings.TrimSpace(l.Author); name != "" {
		return name
	}
	if name := strings.TrimSpace(l.ArtistName); name != "" {
		return name
	}
	if l.ItemInfo == nil {
		return ""
	}
	names := make([]string, 0, len(l.ItemInfo.Author))
	for _, p := range l.ItemInfo.Author {
		if n := strings.TrimSpace(p.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, "、")
}

// Ranking хранит места в рейтингах. Ноль означает, что товара нет в этом рейтинге.
type Ranking struct {
	Daily   int `json:"daily_rank,omitempty"`
	Weekly  int `json:"weekly_rank,omitempty"`
	Monthly int `json:"monthly_rank,omitempty"`
}

// MergedItem - товар после слияния всех источников.
type MergedItem struct {
	RawListing
	Ranking Ranking `json:"ranking_info"`
	IsNew   bool    `json:"is_new"`
}

// DiscountInfo описывает скидку, если текущая цена ниже базовой.
type DiscountInfo struct {
	Rate      int `json:"rate"`
	ListPrice int `json:"list_price"`
	Price     int `json:"price"`
}

// String возвращает запись вида "50%OFF (1000円 → 500円)".
func (d DiscountInfo) String() string {
	return fmt.Sprintf("%d%%OFF (%d円 → %d円)", d.Rate, d.ListPrice, d.Price)
}

// EligibleItem - товар, прошедший все фильтры и готовый к публикации.
type EligibleItem struct {
	MergedItem
	RankingSummary string        `json:"ranking_text,omitempty"`
	Discount       *DiscountInfo `json:"discount,omitempty"`
	IsExclusive    bool          `json:"is_exclusive"`
}

// SaleItem - запись списка скидок (sale_manga_data.json).
type SaleItem struct {
	MergedItem
	DiscountRate int    `json:"discount_rate"`
	DiscountInfo string `json:"discount_info"`
}

// SelectionRecord - публичная форма отобранного товара, которая сохраняется на диск.
type SelectionRecord struct {
	Title        string `json:"title"`
	AffiliateURL string `json:"affiliateURL"`
	PostText     string `json:"post_text"`
	Author       string `json:"author,omitempty"`
}

// PostHistoryEntry - запись журнала отправленных постов.
type PostHistoryEntry struct {
	Title     string    `json:"title"`
	PostText  string    `json:"post_text"`
	TweetID   string    `json:"tweet_id"`
	Timestamp Timestamp `json:"timestamp"`
}

// TimestampLayout совпадает с форматом старых файлов истории.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp сериализуется как "YYYY-MM-DD HH:MM:SS" и читает также RFC3339.
type Timestamp struct {
	time.Time
}

// MarshalJSON реализует json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Local().Format(TimestampLayout))
}

// UnmarshalJSON реализует json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.ParseInLocation(TimestampLayout, raw, time.Local); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}
