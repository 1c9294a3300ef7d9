package fulfillment

// Status represents the lifecycle stage of a sub-order
type Status string

const (
	StatusPending            Status = "pending"
	StatusApproved           Status = "approved"
	StatusProductionReceived Status = "production_received"
	StatusProductionStarted  Status = "production_started"
	StatusSentToWarehouse    Status = "sent_to_warehouse"
	StatusWarehouseReceived  Status = "warehouse_received"
	StatusRejected           Status = "rejected"
)

// forward lists the single legal successor on the success path
var forward = map[Status]Status{
	StatusPending:            StatusApproved,
	StatusApproved:           StatusProductionReceived,
	StatusProductionReceived: StatusProductionStarted,
	StatusProductionStarted:  StatusSentToWarehouse,
	StatusSentToWarehouse:    StatusWarehouseReceived,
}

var statusLabels = map[Status][2]string{
	StatusPending:            {"⏳ Ожидает", "⏳ Kutilmoqda"},
	StatusApproved:           {"✅ Одобрено", "✅ Tasdiqlandi"},
	StatusProductionReceived: {"📋 Получено производством", "📋 Ishlab chiqarish qabul qildi"},
	StatusProductionStarted:  {"🏭 В производстве", "🏭 Ishlab chiqarilmoqda"},
	StatusSentToWarehouse:    {"📦 На складе", "📦 Omborga yuborildi"},
	StatusWarehouseReceived:  {"✅ Готово", "✅ Tayyor"},
	StatusRejected:           {"❌ Отклонено", "❌ Rad etildi"},
}

var stageLabels = map[Status]string{
	StatusApproved:           "✅ Одобрен",
	StatusProductionReceived: "📋 Принят производством",
	StatusProductionStarted:  "🏭 Запущен в производство",
	StatusSentToWarehouse:    "📦 Отправлен на склад",
	StatusWarehouseReceived:  "✅ Принят складом",
	StatusRejected:           "❌ Отклонен",
}

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is accepted
func (s Status) IsTerminal() bool {
	return s == StatusWarehouseReceived || s == StatusRejected
}

// CanTransitionTo checks the explicit state machine. REJECTED is reachable
// only from PENDING; everything else moves one step forward.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusRejected {
		return s == StatusPending
	}
	next, ok := forward[s]
	return ok && next == target
}

// Next returns the successor on the success path
func (s Status) Next() (Status, bool) {
	next, ok := forward[s]
	return next, ok
}

// Label returns the customer-facing status text
func (s Status) Label(locale Locale) string {
	labels, ok := statusLabels[s]
	if !ok {
		return string(s)
	}
	if locale == LocaleUZ {
		return labels[1]
	}
	return labels[0]
}

// StageLabel returns the audit line prefix used on admin cards
func (s Status) StageLabel() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}
