package merge

import "github.com/maine/manga_affiliate_bot/internal/manga"

// Merge объединяет результаты всех запросов в одну коллекцию без дублей.
//
// Источники обрабатываются строго в порядке manga.SourceOrder: первая запись с данным
// content_id задаёт общие поля, последующие только добавляют факты рейтинга или флаг новинки.
// Товары без content_id ключа слияния не имеют и всегда добавляются как новые.
// Источник manga.SourcePrice только заполняет пробелы и ничего не меняет у существующих записей.
func Merge(batches map[manga.Source][]manga.RawListing) []manga.MergedItem {
	var items []manga.MergedItem
	index := make(map[string]int)

	for _, source := range manga.SourceOrder {
		for pos, listing := range batches[source] {
			id := listing.ContentID
			if i, ok := index[id]; ok && id != "" {
				applyFact(&items[i], source, rankOf(listing, pos))
				continue
			}

			item := manga.MergedItem{RawListing: listing}
			applyFact(&item, source, rankOf(listing, pos))
			items = append(items, item)
			if id != "" {
				index[id] = len(items) - 1
			}
		}
	}
	return items
}

func applyFact(item *manga.MergedItem, source manga.Source, rank int) {
	switch source {
	case manga.SourceDaily:
		item.Ranking.Daily = best(item.Ranking.Daily, rank)
	case manga.SourceWeekly:
		item.Ranking.Weekly = best(item.Ranking.Weekly, rank)
	case manga.SourceMonthly:
		item.Ranking.Monthly = best(item.Ranking.Monthly, rank)
	case manga.SourceNewest:
		item.IsNew = true
	}
}

// best оставляет лучшее место, если товар встретился в одном рейтинге дважды.
func best(current, rank int) int {
	if current == 0 || rank < current {
		return rank
	}
	return current
}

// rankOf берёт явное место из ответа, иначе позицию в выдаче (с единицы).
func rankOf(listing manga.RawListing, pos int) int {
	if listing.Rank > 0 {
		return listing.Rank
	}
	return pos + 1
}
