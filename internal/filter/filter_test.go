package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/config"
	"github.com/maine/manga_affiliate_bot/internal/manga"
)

var today = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func item(id, title, price, date string, isNew bool) manga.MergedItem {
	l := manga.RawListing{ContentID: id, Title: title, Date: date}
	if price != "" {
		l.Prices = &manga.Prices{Price: manga.FlexString(price)}
	}
	return manga.MergedItem{RawListing: l, IsNew: isNew}
}

func TestFilter_Apply(t *testing.T) {
	f := New(config.Default().Pipeline)

	tests := []struct {
		name  string
		items []manga.MergedItem
		want  []string
	}{
		{
			name:  "empty input",
			items: nil,
			want:  []string{},
		},
		{
			name: "reservation is excluded",
			items: []manga.MergedItem{
				item("future", "Future", "500", "2026-10-20 00:00:00", true),
				item("today", "Today", "500", "2026-10-19 23:59:59", true),
				item("past", "Past", "500", "2026-10-18", true),
			},
			want: []string{"today", "past"},
		},
		{
			name: "missing or broken date passes",
			items: []manga.MergedItem{
				item("nodate", "No date", "500", "", true),
				item("broken", "Broken", "500", "someday", true),
			},
			want: []string{"nodate", "broken"},
		},
		{
			name: "new flag is required",
			items: []manga.MergedItem{
				item("old", "Old", "500", "2026-10-01", false),
				item("new", "New", "500", "2026-10-01", true),
			},
			want: []string{"new"},
		},
		{
			name: "cheap items are excluded, unknown price passes",
			items: []manga.MergedItem{
				item("cheap", "Cheap", "300", "2026-10-18", true),
				item("edge", "Edge", "400", "2026-10-18", true),
				item("range", "Range", "1,100~", "2026-10-18", true),
				item("noprice", "No price", "", "2026-10-18", true),
				item("garbage", "Garbage", "free", "2026-10-18", true),
			},
			want: []string{"edge", "range", "noprice", "garbage"},
		},
		{
			name: "single chapter and novel markers",
			items: []manga.MergedItem{
				item("chapter", "ある物語【単話】", "500", "2026-10-18", true),
				item("novel", "ある物語（ノベル）", "500", "2026-10-18", true),
				item("comic", "ある物語 1巻", "500", "2026-10-18", true),
			},
			want: []string{"comic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Apply(tt.items, today)
			ids := make([]string, 0, len(got))
			for _, g := range got {
				ids = append(ids, g.ContentID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("Apply() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestFilter_ApplyIdempotent(t *testing.T) {
	f := New(config.Pipeline{})
	items := []manga.MergedItem{
		item("a", "A", "500", "2026-10-18", true),
		item("b", "B", "100", "2026-10-18", true),
		item("c", "C【単話】", "500", "2026-10-18", true),
		item("d", "D", "", "2026-12-01", true),
		item("e", "E", "900", "", true),
	}

	once := f.Apply(items, today)
	twice := f.Apply(once, today)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Apply() is not idempotent: %v vs %v", once, twice)
	}
	if len(once) > len(items) {
		t.Errorf("Apply() increased cardinality")
	}
}

func TestFilter_Qualify(t *testing.T) {
	f := New(config.Default().Pipeline)
	it := item("abc1", "Sample『Title』", "500", "2026-10-18", true)
	it.Prices.ListPrice = "1000"
	it.URL = "https://book.example.com/exclusive/abc1/"
	it.Ranking = manga.Ranking{Daily: 10, Weekly: 150, Monthly: 200}

	got := f.Qualify([]manga.MergedItem{it})
	if len(got) != 1 {
		t.Fatalf("Qualify() len = %d", len(got))
	}
	if got[0].RankingSummary != "日間10位・月間200位" {
		t.Errorf("RankingSummary = %q", got[0].RankingSummary)
	}
	if got[0].Discount == nil || got[0].Discount.Rate != 50 {
		t.Errorf("Discount = %+v, want 50%%", got[0].Discount)
	}
	if got[0].Discount.String() != "50%OFF (1000円 → 500円)" {
		t.Errorf("Discount.String() = %q", got[0].Discount.String())
	}
	if !got[0].IsExclusive {
		t.Error("IsExclusive should be true")
	}
}

func TestRankingSummary(t *testing.T) {
	f := New(config.Pipeline{})
	tests := []struct {
		name string
		r    manga.Ranking
		want string
	}{
		{"none", manga.Ranking{}, ""},
		{"all qualify", manga.Ranking{Daily: 50, Weekly: 100, Monthly: 200}, "日間50位・週間100位・月間200位"},
		{"none qualify", manga.Ranking{Daily: 51, Weekly: 101, Monthly: 201}, ""},
		{"weekly only", manga.Ranking{Daily: 80, Weekly: 3}, "週間3位"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.RankingSummary(tt.r); got != tt.want {
				t.Errorf("RankingSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"500", 500, true},
		{"1,100", 1100, true},
		{"¥880~", 880, true},
		{"-300", 300, true},
		{"４５０", 450, true},
		{"", 0, false},
		{"無料", 0, false},
		{"99999999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParsePrice(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		prices   *manga.Prices
		wantOK   bool
		wantRate int
	}{
		{"no prices", nil, false, 0},
		{"no discount", &manga.Prices{Price: "500", ListPrice: "500"}, false, 0},
		{"half", &manga.Prices{Price: "500", ListPrice: "1000"}, true, 50},
		{"round half to even", &manga.Prices{Price: "875", ListPrice: "1000"}, true, 12},
		{"missing list price", &manga.Prices{Price: "500"}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Discount(manga.RawListing{Prices: tt.prices})
			if ok != tt.wantOK || d.Rate != tt.wantRate {
				t.Errorf("Discount() = %+v, %v; want rate %d, %v", d, ok, tt.wantRate, tt.wantOK)
			}
		})
	}
}

func TestSaleList(t *testing.T) {
	mk := func(id, price, list string) manga.MergedItem {
		return manga.MergedItem{RawListing: manga.RawListing{
			ContentID: id,
			Prices:    &manga.Prices{Price: manga.FlexString(price), ListPrice: manga.FlexString(list)},
		}}
	}
	items := []manga.MergedItem{
		mk("a", "800", "1000"),
		mk("b", "300", "1000"),
		mk("c", "500", "500"),
		mk("d", "100", "400"),
	}

	sale := SaleList(items)
	var ids []string
	for _, s := range sale {
		ids = append(ids, s.ContentID)
	}
	if !reflect.DeepEqual(ids, []string{"d", "b", "a"}) {
		t.Errorf("SaleList() order = %v", ids)
	}
	if sale[0].DiscountInfo != "75%OFF (400円 → 100円)" {
		t.Errorf("DiscountInfo = %q", sale[0].DiscountInfo)
	}

	top := TopDiscounts(sale, 50, 5)
	if len(top) != 2 || top[0].ContentID != "d" || top[1].ContentID != "b" {
		t.Errorf("TopDiscounts() = %+v", top)
	}
}

func TestIsExclusive(t *testing.T) {
	if !IsExclusive("https://x/独占/") || !IsExclusive("https://x/exclusive/") {
		t.Error("IsExclusive() should detect markers")
	}
	if IsExclusive("https://x/detail/") {
		t.Error("IsExclusive() false positive")
	}
}
