package tax

import "net/url"

// Canned api-fns.ru payloads. An identifier of 12 or 15 digits selects the individual
// entrepreneur variant so both item kinds are reachable.

var mockCompany = map[string]any{
	"ИНН":        "7707083893",
	"КПП":        "773601001",
	"ОГРН":       "1027700132195",
	"НаимСокрЮЛ": "ПАО СБЕРБАНК",
	"НаимПолнЮЛ": "ПУБЛИЧНОЕ АКЦИОНЕРНОЕ ОБЩЕСТВО \"СБЕРБАНК РОССИИ\"",
	"ДатаРег":    "1991-06-20",
	"Статус":     "Действующее",
}

var mockEntrepreneur = map[string]any{
	"ИНН":     "772912345678",
	"ИННФЛ":   "772912345678",
	"ОГРН":    "304770000123456",
	"ОГРНИП":  "304770000123456",
	"ФИОПолн": "Иванов Иван Иванович",
	"ДатаРег": "2004-02-11",
	"Статус":  "Действующий",
}

func with(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func isEntrepreneur(req string) bool {
	return len(req) == 12 || len(req) == 15
}

func subject(req string, extra map[string]any) map[string]any {
	if isEntrepreneur(req) {
		return map[string]any{"ИП": with(mockEntrepreneur, extra)}
	}
	return map[string]any{"ЮЛ": with(mockCompany, extra)}
}

func itemList(v ...any) map[string]any {
	return map[string]any{"items": v}
}

// mockPayload returns the test-mode response of a JSON endpoint. Numbers are float64 so
// the shape matches a decoded upstream response.
func mockPayload(endpoint string, q url.Values) map[string]any {
	switch endpoint {
	case "search":
		return map[string]any{
			"Count": 2.0,
			"items": []any{map[string]any{"ЮЛ": mockCompany}, map[string]any{"ИП": mockEntrepreneur}},
		}
	case "ac":
		return itemList(map[string]any{"ЮЛ": mockCompany}, map[string]any{"ИП": mockEntrepreneur})
	case "egr":
		return itemList(subject(q.Get("req"), nil))
	case "multinfo":
		return itemList(
			map[string]any{"ЮЛ": with(mockCompany, map[string]any{"Контакты": "+7 495 500-55-50"})},
			map[string]any{"ИП": mockEntrepreneur},
		)
	case "multcheck":
		return itemList(map[string]any{"ЮЛ": with(mockCompany, map[string]any{
			"НаимСокрЮЛ": "ООО РОМАШКА",
			"Статус":     "Ликвидировано",
			"ДатаПрекр":  "2023-05-15",
		})})
	case "check":
		return itemList(subject(q.Get("req"), map[string]any{
			"Позитив": map[string]any{
				"КапБолее50тыс": "Уставный капитал более 50 тыс. руб.",
				"Лицензии":      "Есть действующие лицензии",
			},
			"Негатив": map[string]any{
				"МассАдрес": "Адрес массовой регистрации",
			},
		}))
	case "nalogbi":
		return itemList(subject(q.Get("inn"), map[string]any{
			"Негатив": map[string]any{
				"БлокировкиСчетов": []any{"Решение № 1234 от 2024-01-15, БИК 044525225"},
			},
		}))
	case "changes":
		if isEntrepreneur(q.Get("req")) {
			return itemList(subject(q.Get("req"), map[string]any{
				"Изменения": map[string]any{
					"2024-02-01": "Изменен вид деятельности",
					"2024-04-10": "Изменен адрес электронной почты",
				},
			}))
		}
		return itemList(subject(q.Get("req"), map[string]any{
			"Изменения": []any{
				map[string]any{"Дата": "2024-03-01", "Тип": "Адрес", "Текст": "Изменен юридический адрес"},
				map[string]any{"Дата": "2024-05-20", "Тип": "Руководитель", "Текст": "Сменился генеральный директор"},
			},
		}))
	case "mon":
		switch q.Get("cmd") {
		case "list":
			return itemList(
				map[string]any{"ОГРН": "1027700132195", "ИНН": "7707083893"},
				map[string]any{"ОГРН": "1027739609391", "ИНН": "7702070139"},
			)
		case "add":
			return itemList(map[string]any{"ОГРН": "1027700132195", "Результат": "Добавлено"})
		case "chd":
			return itemList(map[string]any{"ОГРН": "1027700132195", "Тип": "Адрес", "Текст": "Изменен юридический адрес"})
		}
		return itemList()
	case "bo":
		return map[string]any{
			"7707083893": map[string]any{
				"2023": map[string]any{
					"1100": 1000.0,
					"1150": 2500.0,
					"1600": 3500.0,
					"1700": 3500.0,
					"2110": 5000.0,
					"2400": 600.0,
				},
			},
		}
	case "innfl":
		return itemList(map[string]any{"ИНН": "772912345678"})
	case "mvdpass", "mvdinfo":
		return map[string]any{"result": "Cреди недействительных не значится"}
	case "fl_status":
		return map[string]any{
			"Корректность":  map[string]any{"КонтрСумма": "Верна", "Недействительный": "Нет"},
			"Самозанятость": map[string]any{"Статус": "Да", "Текст": "Является плательщиком НПД"},
			"ИП":            map[string]any{"Статус": "Нет", "Текст": "Не зарегистрирован в качестве ИП"},
		}
	case "fsrar":
		return itemList(map[string]any{
			"Номер лицензии":  "77РПА0012345",
			"Вид лицензии":    "Розничная продажа алкогольной продукции",
			"Дата выдачи":     "2022-01-10",
			"Дата окончания":  "2027-01-10",
			"Статус лицензии": "Действующая",
		})
	case "stat":
		return map[string]any{
			"ДатаНач":   "2025-01-01",
			"ДатаОконч": "2025-12-31",
			"Статус":    "Активен",
			"Методы": map[string]any{
				"egr":    map[string]any{"Лимит": 100.0, "Истрачено": 5.0},
				"search": map[string]any{"Лимит": 100.0, "Истрачено": 12.0},
			},
		}
	}
	return map[string]any{}
}

var (
	mockPDF = []byte("%PDF-1.4\n1 0 obj<</Type/Catalog>>endobj\ntrailer<</Root 1 0 R>>\n%%EOF\n")
	// An empty ZIP archive: only the end-of-central-directory record.
	mockZIP = append([]byte("PK\x05\x06"), make([]byte, 18)...)
)

func mockFile(fileType string) []byte {
	if fileType == "zip" {
		return mockZIP
	}
	return mockPDF
}
