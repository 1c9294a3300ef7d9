package handler

import (
	"fmt"
	"html"
	"strings"

	"github.com/erp/fulfillment/internal/application/checkout"
	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

// chatTexts holds the customer-facing strings of one locale
type chatTexts struct {
	welcome          string
	registerButton   string
	langButton       string
	greeting         string
	inactiveDealer   string
	unlistedDealer   string
	orderButton      string
	myOrdersButton   string
	settingsButton   string
	mainMenuButton   string
	menuRefresh      string
	sessionExpired   string
	askPhone         string
	phoneButton      string
	usePhoneButton   string
	askCity          string
	cityRequired     string
	askLocation      string
	locationButton   string
	useLocationBtn   string
	askFullName      string
	nameTooShort     string
	registrationDone string
	langChanged      string
	noOrders         string
	myOrdersHeader   string
	settings         string
	notSet           string
	editProfile      string
	previewCaption   string
	confirmed        string
	getPDFUsage      string
	orderNotFound    string
	pdfUnavailable   string
	pdfCaption       string
	tooManyMessages  string
	profileMissing   string
	noAccess         string
	cooldown         string
	catalogDown      string
	unknownProduct   string
	noPending        string
	emptySignature   string
	signatureMissing string
	nothingToOrder   string
	invalidPayload   string
	genericError     string
}

var textsRU = chatTexts{
	welcome:          "👋 Добро пожаловать!\n\nДля начала работы необходимо зарегистрироваться.",
	registerButton:   "📝 Регистрация",
	langButton:       "🇺🇿 O'zbekcha",
	greeting:         "Привет %s!\n\nДля оформления заказа\nНажмите «🛒 Сделать заказ»",
	inactiveDealer:   "\n\n⚠️ ВНИМАНИЕ!\nВаш статус: %s\nФункция создания заказов временно недоступна.",
	unlistedDealer:   "\n\n⚠️ ВНИМАНИЕ!\nВы не найдены в списке дилеров.\nФункция создания заказов недоступна.",
	orderButton:      "🛒 Сделать заказ",
	myOrdersButton:   "📋 Мои заказы",
	settingsButton:   "⚙️ Настройки",
	mainMenuButton:   "🏠 Главный меню",
	menuRefresh:      "Пожалуйста, вернитесь в главное меню\n\nНажмите кнопку «🏠 Главный меню»",
	sessionExpired:   "⏰ Время для создания заказа истекло.\nНажмите /start.",
	askPhone:         "📱 Поделитесь своим номером телефона:",
	phoneButton:      "📱 Отправить номер",
	usePhoneButton:   "Пожалуйста, используйте кнопку для отправки номера.",
	askCity:          "🏙 Введите ваш город:",
	cityRequired:     "Пожалуйста, введите город.",
	askLocation:      "📍 Теперь поделитесь своей геолокацией:",
	locationButton:   "📍 Отправить локацию",
	useLocationBtn:   "Пожалуйста, используйте кнопку для отправки локации.",
	askFullName:      "👤 Введите ваше полное имя:",
	nameTooShort:     "Пожалуйста, введите корректное имя (минимум 2 символа).",
	registrationDone: "✅ Регистрация завершена!\n\n👤 %s\n📱 %s\n🏙 %s",
	langChanged:      "🇷🇺 Язык изменён на русский",
	noOrders:         "У вас пока нет заказов.",
	myOrdersHeader:   "📋 Ваши заказы:\n\n",
	settings:         "⚙️ Настройки\n\n👤 %s\n📱 %s\n🏙 %s",
	notSet:           "Не указано",
	editProfile:      "📝 Изменить профиль",
	previewCaption: "📋 Предпросмотр вашего заказа\n\n💰 Сумма: %s\n📦 Товаров: %d\n\n⚠️ ВНИМАНИЕ!\n" +
		"Внимательно проверьте заказ выше.\nВы несете ответственность за корректность данных.\n\n" +
		"❌ Если есть ошибки - вернитесь в меню и создайте заказ заново.\n" +
		"✅ Если все верно - введите ваше полное имя для подтверждения:",
	confirmed: "✅ Ваш заказ №%s успешно подтвержден и отправлен!\n\n💰 Сумма: %s\n📦 Товаров: %d\n" +
		"🏭 Категорий: %d\n✍️ Подпись: %s\n\n📋 Отдел продаж скоро обработает ваш заказ.\nМы уведомим вас о статусе заказа.",
	getPDFUsage:      "Использование: /get_pdf <номер_заказа>",
	orderNotFound:    "Заказ не найден.",
	pdfUnavailable:   "PDF не доступен.",
	pdfCaption:       "PDF заказа №%s",
	tooManyMessages:  "⚠️ Слишком много запросов. Пожалуйста, подождите немного.",
	profileMissing:   "❌ Ошибка профиля. Пожалуйста, пройдите регистрацию заново.",
	noAccess:         "❌ У вас нет доступа к созданию заказов.\n\nСтатус: %s\nДля получения доступа свяжитесь с администратором.",
	cooldown:         "⏱ Подождите %d сек перед созданием нового заказа.",
	catalogDown:      "❌ Не удалось загрузить каталог товаров. Попробуйте позже.",
	unknownProduct:   "❌ Товар с ID %d не найден в каталоге.",
	noPending:        "Ошибка: данные заказа не найдены. Начните заново с /start",
	emptySignature:   "Пожалуйста, введите имя для подписи.",
	signatureMissing: "Имя для подписи должно совпадать с именем при регистрации.\nВаше имя: <b>%s</b>\n\nВведите его <b>точно так же</b>.",
	nothingToOrder:   "❌ Ни один товар не относится к известной категории.",
	invalidPayload:   "❌ Ошибка валидации: %s",
	genericError:     "❌ Произошла ошибка при обработке заказа. Попробуйте позже.",
}

var textsUZ = chatTexts{
	welcome:          "👋 Xush kelibsiz!\n\nIshni boshlash uchun ro'yxatdan o'tish kerak.",
	registerButton:   "📝 Ro'yxatdan o'tish",
	langButton:       "🇷🇺 Русский",
	greeting:         "Salom %s!\n\nBuyurtma berish uchun\n«🛒 Buyurtma berish» tugmasini bosing",
	inactiveDealer:   "\n\n⚠️ DIQQAT!\nSizning holatingiz: %s\nBuyurtma yaratish funksiyasi vaqtincha mavjud emas.",
	unlistedDealer:   "\n\n⚠️ DIQQAT!\nSiz dilerlar ro'yxatida topilmadingiz.\nBuyurtma yaratish funksiyasi mavjud emas.",
	orderButton:      "🛒 Buyurtma berish",
	myOrdersButton:   "📋 Mening buyurtmalarim",
	settingsButton:   "⚙️ Sozlamalar",
	mainMenuButton:   "🏠 Bosh menyu",
	menuRefresh:      "Iltimos, bosh menyuga qayting.\n\n«🏠 Bosh menyu» tugmasini bosing",
	sessionExpired:   "⏰ Buyurtma yaratish vaqti tugadi.\n/start ni bosing.",
	askPhone:         "📱 Telefon raqamingizni yuboring:",
	phoneButton:      "📱 Raqamni yuborish",
	usePhoneButton:   "Iltimos, raqamni yuborish uchun tugmadan foydalaning.",
	askCity:          "🏙 Shaharingizni kiriting:",
	cityRequired:     "Iltimos, shaharni kiriting.",
	askLocation:      "📍 Endi joylashuvingizni yuboring:",
	locationButton:   "📍 Joylashuvni yuborish",
	useLocationBtn:   "Iltimos, joylashuvni yuborish uchun tugmadan foydalaning.",
	askFullName:      "👤 To'liq ismingizni kiriting:",
	nameTooShort:     "Iltimos, to'g'ri ismni kiriting (kamida 2 ta belgi).",
	registrationDone: "✅ Ro'yxatdan o'tish yakunlandi!\n\n👤 %s\n📱 %s\n🏙 %s",
	langChanged:      "🇺🇿 Til o'zbek tiliga o'zgartirildi",
	noOrders:         "Sizda hali buyurtmalar yo'q.",
	myOrdersHeader:   "📋 Sizning buyurtmalaringiz:\n\n",
	settings:         "⚙️ Sozlamalar\n\n👤 %s\n📱 %s\n🏙 %s",
	notSet:           "Kiritilmagan",
	editProfile:      "📝 Profilni o'zgartirish",
	previewCaption: "📋 Buyurtmangizni ko'rib chiqing\n\n💰 Summa: %s\n📦 Mahsulotlar: %d\n\n⚠️ DIQQAT!\n" +
		"Yuqoridagi buyurtmani diqqat bilan tekshiring.\nSiz ma'lumotlarning to'g'riligiga javobgarsiz.\n\n" +
		"❌ Agar xato bo'lsa - menyuga qaytib, buyurtmani qayta yarating.\n" +
		"✅ Agar hammasi to'g'ri bo'lsa - tasdiqlash uchun to'liq ismingizni kiriting:",
	confirmed: "✅ Sizning buyurtmangiz №%s muvaffaqiyatli tasdiqlandi va yuborildi!\n\n💰 Summa: %s\n📦 Mahsulotlar: %d\n" +
		"🏭 Kategoriyalar: %d\n✍️ Imzo: %s\n\n📋 Savdo bo'limi tez orada buyurtmangizni ko'rib chiqadi.\nBuyurtma holati haqida sizga xabar beramiz.",
	getPDFUsage:      "Foydalanish: /get_pdf <buyurtma_raqami>",
	orderNotFound:    "Buyurtma topilmadi.",
	pdfUnavailable:   "PDF mavjud emas.",
	pdfCaption:       "Buyurtma №%s PDF",
	tooManyMessages:  "⚠️ Juda ko'p so'rovlar. Iltimos, biroz kuting.",
	profileMissing:   "❌ Profil xatosi. Iltimos, qayta ro'yxatdan o'ting.",
	noAccess:         "❌ Sizda buyurtma yaratish huquqi yo'q.\n\nHolat: %s\nAdministrator bilan bogʻlaning.",
	cooldown:         "⏱ Yangi buyurtma yaratishdan oldin %d soniya kuting.",
	catalogDown:      "❌ Mahsulotlar katalogini yuklashda xatolik. Keyinroq urinib ko'ring.",
	unknownProduct:   "❌ %d ID li mahsulot katalogda topilmadi.",
	noPending:        "Xato: buyurtma ma'lumotlari topilmadi. /start dan qayta boshlang",
	emptySignature:   "Iltimos, imzo uchun ismingizni kiriting.",
	signatureMissing: "Imzo uchun ism ro'yxatdan o'tishda yozilgan ism bilan bir xil bo'lishi kerak.\nIsmingiz: <b>%s</b>\n\nXuddi shunday kiriting.",
	nothingToOrder:   "❌ Hech bir mahsulot ma'lum kategoriyaga tegishli emas.",
	invalidPayload:   "❌ Tekshirish xatosi: %s",
	genericError:     "❌ Buyurtmani qayta ishlashda xatolik yuz berdi. Keyinroq urinib ko'ring.",
}

func textsFor(locale fulfillment.Locale) *chatTexts {
	if locale == fulfillment.LocaleUZ {
		return &textsUZ
	}
	return &textsRU
}

// rejection renders a refused checkout step
func (t *chatTexts) rejection(r *checkout.Rejection) string {
	switch r.Reason {
	case checkout.ReasonSessionExpired:
		return t.sessionExpired
	case checkout.ReasonProfileIncomplete:
		return t.profileMissing
	case checkout.ReasonNotDealer:
		return fmt.Sprintf(t.noAccess, html.EscapeString(r.Status))
	case checkout.ReasonCooldown:
		return fmt.Sprintf(t.cooldown, r.Seconds)
	case checkout.ReasonCatalogUnavailable:
		return t.catalogDown
	case checkout.ReasonUnknownProduct:
		return fmt.Sprintf(t.unknownProduct, r.ProductID)
	case checkout.ReasonNoPendingOrder:
		return t.noPending
	case checkout.ReasonEmptySignature:
		return t.emptySignature
	case checkout.ReasonSignatureMismatch:
		return fmt.Sprintf(t.signatureMissing, html.EscapeString(r.Expected))
	case checkout.ReasonNothingToOrder:
		return t.nothingToOrder
	}
	return t.genericError
}

// dealerWarning is appended to the greeting of a customer who may not order
func (t *chatTexts) dealerWarning(v fulfillment.DealerVerdict) string {
	switch {
	case v.IsActive:
		return ""
	case v.IsDealer:
		return fmt.Sprintf(t.inactiveDealer, html.EscapeString(v.Status))
	default:
		return t.unlistedDealer
	}
}

func (t *chatTexts) orderList(orders []fulfillment.SubOrder, locale fulfillment.Locale) string {
	var b strings.Builder
	b.WriteString(t.myOrdersHeader)
	for _, o := range orders {
		fmt.Fprintf(&b, "№%s\n💰 %s\n📅 %s\n📊 %s\n\n",
			o.ID,
			fulfillment.FormatCurrency(o.Total),
			o.CreatedAt.Format("2006-01-02"),
			o.Status.Label(locale))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t *chatTexts) profile(u *fulfillment.User) string {
	or := func(s string) string {
		if s == "" {
			return t.notSet
		}
		return html.EscapeString(s)
	}
	text := fmt.Sprintf(t.settings, or(u.FullName), or(u.Phone), or(u.City))
	if u.Latitude != nil && u.Longitude != nil {
		text += fmt.Sprintf("\n📍 %.6f, %.6f", *u.Latitude, *u.Longitude)
	}
	return text
}

func (t *chatTexts) preview(total decimal.Decimal, items int) string {
	return fmt.Sprintf(t.previewCaption, fulfillment.FormatCurrency(total), items)
}

func (t *chatTexts) confirmation(c *checkout.Confirmation) string {
	return fmt.Sprintf(t.confirmed,
		c.BaseOrderID,
		fulfillment.FormatCurrency(c.Total),
		c.ItemCount,
		len(c.Orders),
		html.EscapeString(c.SignedAs))
}

// Staff-facing texts are Russian only, like the admin cards
const (
	adminStats        = "📊 Статистика пользователей:\n\n👥 Всего пользователей: %d\n🟢 Активных (30 дней): %d\n✨ Новых (7 дней): %d"
	adminSendAllUsage = "Использование: /sendall текст"
	adminBroadcast    = "✅ Отправлено: %d\n❌ Не доставлено: %d"
	adminExport       = "Экспорт заказов (CSV)"
	adminNoOrders     = "В базе нет заказов."
	adminLangUsage    = "Использование: /lang ru|uz"
	adminDenied       = "У вас нет доступа к админ-панели."
	adminSendUsage    = "Использование: /send USER_ID текст"
	adminSendBadID    = "❌ USER_ID должен быть числом."
	adminSent         = "✅ Сообщение отправлено пользователю %d"
	adminSendFailed   = "❌ Не удалось отправить сообщение пользователю %d"
	toastForbidden    = "⛔ У вас нет прав для этого действия"
	toastStale        = "⚠️ Заказ уже обработан или действие недоступно"
	toastNotFound     = "Заказ не найден"
	toastFailed       = "❌ Ошибка. Попробуйте позже"
	toastDone         = "✅ Готово"
	toastPartial      = "✅ Статус обновлён, но не выполнено: %s"
	toastUnchanged    = "Статус уже установлен"
)

// adminPanel lists the role of a staff member and what they may do. The
// production line uses the coarse "any pool" check.
func adminPanel(r *fulfillment.Roster, actorID int64) string {
	var b strings.Builder
	b.WriteString("👨‍💼 Админ-панель\n")
	fmt.Fprintf(&b, "Роль: %s\n\n", r.ActorLabel(actorID))
	b.WriteString("Доступные команды:\n")
	if r.IsSuperAdmin(actorID) {
		b.WriteString("• /orders_export - экспорт заказов\n")
		b.WriteString("• /users_stats - статистика пользователей\n")
		b.WriteString("• /sendall - массовая рассылка\n")
		b.WriteString("• /send - отправить сообщение пользователю\n")
		b.WriteString("• /get_pdf - получить PDF заказа\n")
	}
	if r.HasPermission(actorID, fulfillment.RoleSales, nil) {
		b.WriteString("• Одобрение/отклонение заказов\n")
	}
	if r.HasPermission(actorID, fulfillment.RoleProduction, nil) {
		b.WriteString("• Управление производством\n")
	}
	if r.HasPermission(actorID, fulfillment.RoleWarehouse, nil) {
		b.WriteString("• Управление складом\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// warningLabels names the follow-up steps of a transition that may fail
var warningLabels = map[string]string{
	appfulfillment.WarningDocument:         "документ PDF",
	appfulfillment.WarningProductionNotice: "уведомление производства",
	appfulfillment.WarningCategoryReady:    "сообщение клиенту о готовности",
	appfulfillment.WarningClientSummary:    "обновление статуса у клиента",
	appfulfillment.WarningEvents:           "публикация событий",
}

// partialToast lists failed follow-up steps for the acting admin
func partialToast(warnings []string) string {
	names := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if label, ok := warningLabels[w]; ok {
			names = append(names, label)
		} else {
			names = append(names, w)
		}
	}
	return fmt.Sprintf(toastPartial, strings.Join(names, ", "))
}
