package filter

import (
	"sort"

	"github.com/maine/manga_affiliate_bot/internal/manga"
)

// SaleList выбирает товары со скидкой и сортирует их по возрастанию текущей цены.
func SaleList(items []manga.MergedItem) []manga.SaleItem {
	type priced struct {
		item  manga.SaleItem
		price int
	}

	var sale []priced
	for _, item := range items {
		d, ok := Discount(item.RawListing)
		if !ok {
			continue
		}
		sale = append(sale, priced{
			item: manga.SaleItem{
				MergedItem:   item,
				DiscountRate: d.Rate,
				DiscountInfo: d.String(),
			},
			price: d.Price,
		})
	}

	sort.SliceStable(sale, func(i, j int) bool {
		return sale[i].price < sale[j].price
	})

	result := make([]manga.SaleItem, 0, len(sale))
	for _, p := range sale {
		result = append(result, p.item)
	}
	return result
}

// TopDiscounts возвращает до limit товаров со скидкой не меньше minRate, по убыванию скидки.
func TopDiscounts(sale []manga.SaleItem, minRate, limit int) []manga.SaleItem {
	var top []manga.SaleItem
	for _, item := range sale {
		if item.DiscountRate >= minRate {
			top = append(top, item)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].DiscountRate > top[j].DiscountRate
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top
}
