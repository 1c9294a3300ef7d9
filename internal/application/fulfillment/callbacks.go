package fulfillment

import (
	"strings"

	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

// CallbackKind tells the chat adapter what a button press asks for
type CallbackKind int

const (
	// CallbackAdvance applies a transition
	CallbackAdvance CallbackKind = iota + 1
	// CallbackAsk asks the sales actor to confirm an approval or rejection
	CallbackAsk
	// CallbackRestore re-renders the card after a cancelled confirmation
	CallbackRestore
)

const (
	askPrefix     = "ask:"
	restorePrefix = "card:"
)

// Callback is a decoded button press. Transition callbacks have the form
// stage:orderID.
type Callback struct {
	Kind    CallbackKind
	Target  fulfillment.Status
	OrderID string
}

// CallbackData encodes a transition button
func CallbackData(target fulfillment.Status, orderID string) string {
	return string(target) + ":" + orderID
}

// ParseCallback decodes button data. ok is false for anything that is not
// an order action.
func ParseCallback(data string) (Callback, bool) {
	switch {
	case strings.HasPrefix(data, restorePrefix):
		id := strings.TrimPrefix(data, restorePrefix)
		return Callback{Kind: CallbackRestore, OrderID: id}, id != ""
	case strings.HasPrefix(data, askPrefix):
		cb, ok := parseStage(strings.TrimPrefix(data, askPrefix))
		if !ok || (cb.Target != fulfillment.StatusApproved && cb.Target != fulfillment.StatusRejected) {
			return Callback{}, false
		}
		cb.Kind = CallbackAsk
		return cb, true
	default:
		return parseStage(data)
	}
}

func parseStage(data string) (Callback, bool) {
	stage, id, found := strings.Cut(data, ":")
	if !found || id == "" {
		return Callback{}, false
	}
	target := fulfillment.Status(stage)
	if !target.IsValid() || target == fulfillment.StatusPending {
		return Callback{}, false
	}
	return Callback{Kind: CallbackAdvance, Target: target, OrderID: id}, true
}

var actionTexts = map[fulfillment.Status]string{
	fulfillment.StatusApproved:           "✅ Одобрить",
	fulfillment.StatusRejected:           "❌ Отклонить",
	fulfillment.StatusProductionReceived: "📋 Получено производством",
	fulfillment.StatusProductionStarted:  "🏭 Начать производство",
	fulfillment.StatusSentToWarehouse:    "📦 Передать на склад",
	fulfillment.StatusWarehouseReceived:  "✅ Получено складом",
}

// ActionKeyboard returns the buttons of the next stage of an order, or nil
// once the order is terminal
func ActionKeyboard(o *fulfillment.SubOrder) notification.Keyboard {
	if o.Status == fulfillment.StatusPending {
		return notification.Keyboard{{
			{Text: actionTexts[fulfillment.StatusApproved], CallbackData: askPrefix + CallbackData(fulfillment.StatusApproved, o.ID)},
			{Text: actionTexts[fulfillment.StatusRejected], CallbackData: askPrefix + CallbackData(fulfillment.StatusRejected, o.ID)},
		}}
	}
	next, ok := o.Status.Next()
	if !ok {
		return nil
	}
	return notification.Keyboard{{
		{Text: actionTexts[next], CallbackData: CallbackData(next, o.ID)},
	}}
}

// ConfirmKeyboard asks the sales actor to confirm target
func ConfirmKeyboard(target fulfillment.Status, orderID string) notification.Keyboard {
	yes := "✅ Да, одобрить"
	if target == fulfillment.StatusRejected {
		yes = "✅ Да, отклонить"
	}
	return notification.Keyboard{{
		{Text: yes, CallbackData: CallbackData(target, orderID)},
		{Text: "❌ Нет, отмена", CallbackData: restorePrefix + orderID},
	}}
}

// ConfirmPrompt is appended to the card while a confirmation is pending
func ConfirmPrompt(target fulfillment.Status) string {
	if target == fulfillment.StatusRejected {
		return "⚠️ Вы уверены, что хотите ОТКЛОНИТЬ этот заказ?"
	}
	return "⚠️ Вы уверены, что хотите ОДОБРИТЬ этот заказ?"
}
