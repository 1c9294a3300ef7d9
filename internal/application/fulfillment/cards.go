package fulfillment

import (
	"fmt"
	"strings"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

const cardRule = "━━━━━━━━━━━━━━━━━━━━━━"

var cardStatus = map[fulfillment.Status]string{
	fulfillment.StatusPending:            "⏳ Ожидает одобрения",
	fulfillment.StatusApproved:           "✅ Одобрен",
	fulfillment.StatusProductionReceived: "📋 Получен производством",
	fulfillment.StatusProductionStarted:  "🏭 Производство начато",
	fulfillment.StatusSentToWarehouse:    "📦 Передано на склад",
	fulfillment.StatusWarehouseReceived:  "✅ Получено складом (ГОТОВО)",
	fulfillment.StatusRejected:           "❌ Отклонён",
}

func orNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Не указан"
	}
	return s
}

// AdminCard renders the department card of a sub-order. siblings are all
// sub-orders of the same base order, the order itself included. The audit
// trail is rendered from the recorded history every time.
func AdminCard(o *fulfillment.SubOrder, siblings []fulfillment.SubOrder, u *fulfillment.User) string {
	part, parts := 1, len(siblings)
	baseTotal := decimal.Zero
	baseItems := 0
	for i := range siblings {
		if siblings[i].ID == o.ID {
			part = i + 1
		}
		baseTotal = baseTotal.Add(siblings[i].Total)
		baseItems += siblings[i].ItemCount()
	}
	if parts == 0 {
		parts = 1
		baseTotal = o.Total
		baseItems = o.ItemCount()
	}

	var phone, city string
	if u != nil {
		phone, city = u.Phone, u.City
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🆕 Новый заказ №%s\n", o.ID)
	fmt.Fprintf(&b, "📋 Часть %d из %d (Базовый номер: %s)\n\n", part, parts, o.BaseOrderID)
	fmt.Fprintf(&b, "👤 Клиент: %s\n", o.ClientName)
	fmt.Fprintf(&b, "👤 User ID: %d\n", o.UserID)
	fmt.Fprintf(&b, "📱 Телефон: %s\n", orNotSet(phone))
	fmt.Fprintf(&b, "🏙 Город: %s\n", orNotSet(city))
	if u != nil && u.Latitude != nil && u.Longitude != nil {
		fmt.Fprintf(&b, "📍 Координаты: %.6f, %.6f\n", *u.Latitude, *u.Longitude)
	}
	fmt.Fprintf(&b, "🏭 Категория: %s\n", o.Category.Name(fulfillment.LocaleRU))
	fmt.Fprintf(&b, "💰 Сумма (этой категории): %s\n", fulfillment.FormatCurrency(o.Total))
	fmt.Fprintf(&b, "💰 Общая сумма заказа: %s\n", fulfillment.FormatCurrency(baseTotal))
	fmt.Fprintf(&b, "📦 Товаров (в этой категории): %d\n", o.ItemCount())
	fmt.Fprintf(&b, "📦 Товаров (всего в заказе): %d\n\n", baseItems)
	fmt.Fprintf(&b, "📊 Статус: %s\n", cardStatus[o.Status])
	b.WriteString(cardRule)
	if trail := o.AuditTrail(); trail != "" {
		b.WriteString("\n" + trail)
	}
	if o.Status == fulfillment.StatusWarehouseReceived {
		b.WriteString("\n\n🎉 Заказ полностью выполнен!")
	}
	return b.String()
}

// ProductionNotice is sent to every member of a category's production pool
// once an order is approved
func ProductionNotice(o *fulfillment.SubOrder) string {
	return fmt.Sprintf(
		"🔔 Новый одобренный заказ для вашего цеха!\n\n"+
			"📋 Номер заказа: #%s\n"+
			"🏭 Категория: %s\n"+
			"👤 Клиент: %s\n"+
			"💰 Сумма: %s\n\n"+
			"⏰ Заказ ожидает получения производством",
		o.ID, o.Category.Name(fulfillment.LocaleRU), o.ClientName, fulfillment.FormatCurrency(o.Total))
}
