package notification

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/region23/bookingbot/internal/storage/models"
)

// TimeLayout формат времени в уведомлениях
const TimeLayout = "02-01-2006, 15:04"

// cityNames русские названия городов для часовых поясов
var cityNames = map[string]string{
	"UTC":                            "UTC",
	"Etc/UTC":                        "UTC",
	"Europe/Moscow":                  "Москва",
	"Europe/Kaliningrad":             "Калининград",
	"Europe/Samara":                  "Самара",
	"Europe/Volgograd":               "Волгоград",
	"Europe/Saratov":                 "Саратов",
	"Europe/Ulyanovsk":               "Ульяновск",
	"Europe/Astrakhan":               "Астрахань",
	"Europe/Kirov":                   "Киров",
	"Europe/Simferopol":              "Симферополь",
	"Asia/Yekaterinburg":             "Екатеринбург",
	"Asia/Omsk":                      "Омск",
	"Asia/Novosibirsk":               "Новосибирск",
	"Asia/Barnaul":                   "Барнаул",
	"Asia/Tomsk":                     "Томск",
	"Asia/Novokuznetsk":              "Новокузнецк",
	"Asia/Krasnoyarsk":               "Красноярск",
	"Asia/Irkutsk":                   "Иркутск",
	"Asia/Chita":                     "Чита",
	"Asia/Yakutsk":                   "Якутск",
	"Asia/Khandyga":                  "Хандыга",
	"Asia/Vladivostok":               "Владивосток",
	"Asia/Ust-Nera":                  "Усть-Нера",
	"Asia/Magadan":                   "Магадан",
	"Asia/Sakhalin":                  "Сахалин",
	"Asia/Srednekolymsk":             "Среднеколымск",
	"Asia/Kamchatka":                 "Петропавловск-Камчатский",
	"Asia/Anadyr":                    "Анадырь",
	"Europe/Minsk":                   "Минск",
	"Europe/Kiev":                    "Киев",
	"Europe/Kyiv":                    "Киев",
	"Europe/Chisinau":                "Кишинев",
	"Europe/Riga":                    "Рига",
	"Europe/Vilnius":                 "Вильнюс",
	"Europe/Tallinn":                 "Таллин",
	"Europe/Helsinki":                "Хельсинки",
	"Europe/Warsaw":                  "Варшава",
	"Europe/Berlin":                  "Берлин",
	"Europe/Prague":                  "Прага",
	"Europe/Vienna":                  "Вена",
	"Europe/Budapest":                "Будапешт",
	"Europe/Bucharest":               "Бухарест",
	"Europe/Sofia":                   "София",
	"Europe/Belgrade":                "Белград",
	"Europe/Athens":                  "Афины",
	"Europe/Istanbul":                "Стамбул",
	"Europe/Rome":                    "Рим",
	"Europe/Madrid":                  "Мадрид",
	"Europe/Lisbon":                  "Лиссабон",
	"Europe/Paris":                   "Париж",
	"Europe/Brussels":                "Брюссель",
	"Europe/Amsterdam":               "Амстердам",
	"Europe/Zurich":                  "Цюрих",
	"Europe/London":                  "Лондон",
	"Europe/Dublin":                  "Дублин",
	"Europe/Stockholm":               "Стокгольм",
	"Europe/Oslo":                    "Осло",
	"Europe/Copenhagen":              "Копенгаген",
	"Asia/Tbilisi":                   "Тбилиси",
	"Asia/Yerevan":                   "Ереван",
	"Asia/Baku":                      "Баку",
	"Asia/Almaty":                    "Алматы",
	"Asia/Qostanay":                  "Костанай",
	"Asia/Aqtobe":                    "Актобе",
	"Asia/Aqtau":                     "Актау",
	"Asia/Oral":                      "Уральск",
	"Asia/Tashkent":                  "Ташкент",
	"Asia/Samarkand":                 "Самарканд",
	"Asia/Bishkek":                   "Бишкек",
	"Asia/Dushanbe":                  "Душанбе",
	"Asia/Ashgabat":                  "Ашхабад",
	"Asia/Ulaanbaatar":               "Улан-Батор",
	"Asia/Jerusalem":                 "Иерусалим",
	"Asia/Tel_Aviv":                  "Тель-Авив",
	"Asia/Dubai":                     "Дубай",
	"Asia/Bangkok":                   "Бангкок",
	"Asia/Ho_Chi_Minh":               "Хошимин",
	"Asia/Kolkata":                   "Калькутта",
	"Asia/Shanghai":                  "Шанхай",
	"Asia/Hong_Kong":                 "Гонконг",
	"Asia/Singapore":                 "Сингапур",
	"Asia/Tokyo":                     "Токио",
	"Asia/Seoul":                     "Сеул",
	"Asia/Makassar":                  "Макасар",
	"Asia/Jakarta":                   "Джакарта",
	"Australia/Sydney":               "Сидней",
	"America/New_York":               "Нью-Йорк",
	"America/Chicago":                "Чикаго",
	"America/Denver":                 "Денвер",
	"America/Los_Angeles":            "Лос-Анджелес",
	"America/Toronto":                "Торонто",
	"America/Vancouver":              "Ванкувер",
	"America/Mexico_City":            "Мехико",
	"America/Sao_Paulo":              "Сан-Паулу",
	"America/Argentina/Buenos_Aires": "Буэнос-Айрес",
	"Africa/Cairo":                   "Каир",
}

// CityName возвращает название города для часового пояса
func CityName(tz string) string {
	if name, ok := cityNames[tz]; ok {
		return name
	}
	if tz == "" {
		return "UTC"
	}
	segment := tz[strings.LastIndex(tz, "/")+1:]
	return strings.ReplaceAll(segment, "_", " ")
}

// loadLocation возвращает часовой пояс, при ошибке UTC
func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// FormatTime форматирует момент времени в часовом поясе участника
func FormatTime(t time.Time, tz string) string {
	loc, _ := loadLocation(tz)
	return t.In(loc).Format(TimeLayout)
}

// FormatDuration возвращает длительность встречи без служебного запаса
func FormatDuration(b *models.Booking) string {
	d := b.Duration() - models.LeadWindow
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d мин", int(d.Minutes()))
}
