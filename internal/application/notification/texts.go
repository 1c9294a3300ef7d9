package notification

import "github.com/erp/fulfillment/internal/domain/fulfillment"

const summaryRule = "━━━━━━━━━━━━━━━━━━━━━━"

type summaryTexts struct {
	header      string
	subheader   string
	itemsAndSum string
	totalItems  string
	totalSum    string
}

type readyTexts struct {
	greeting string
	order    string
	ready    string
	items    string
	sum      string
}

var summaryByLocale = map[fulfillment.Locale]summaryTexts{
	fulfillment.LocaleRU: {
		header:      "📦 Заказ №%s",
		subheader:   "📊 Статус по категориям:",
		itemsAndSum: "Товаров: %d | Сумма: %s",
		totalItems:  "📦 Всего товаров: %d",
		totalSum:    "💰 Общая сумма: %s",
	},
	fulfillment.LocaleUZ: {
		header:      "📦 Buyurtma №%s",
		subheader:   "📊 Kategoriyalar bo'yicha holat:",
		itemsAndSum: "Mahsulotlar: %d | Summa: %s",
		totalItems:  "📦 Jami mahsulotlar: %d",
		totalSum:    "💰 Umumiy summa: %s",
	},
}

var readyByLocale = map[fulfillment.Locale]readyTexts{
	fulfillment.LocaleRU: {
		greeting: "✅ Отличные новости!",
		order:    "Заказ №%s",
		ready:    "🎉 Полностью готов и ожидает на складе!",
		items:    "📦 Товаров: %d",
		sum:      "💰 Сумма: %s",
	},
	fulfillment.LocaleUZ: {
		greeting: "✅ Ajoyib yangilik!",
		order:    "Buyurtma №%s",
		ready:    "🎉 To'liq tayyor va omborda kutmoqda!",
		items:    "📦 Mahsulotlar: %d",
		sum:      "💰 Summa: %s",
	},
}
