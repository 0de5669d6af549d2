package tax

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const na = "N/A"

// formatFunc renders a JSON payload as text plus _meta entries.
type formatFunc func(p map[string]any, q url.Values) (string, map[string]any)

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// scalar renders a JSON value without float exponents.
func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return na
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// field returns m[key] or N/A.
func field(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return na
	}
	return scalar(v)
}

// sortedKeys gives map payloads a stable order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// entity unwraps {"ЮЛ": {...}} or {"ИП": {...}}.
func entity(item any) (string, map[string]any) {
	m := obj(item)
	if ul, ok := m["ЮЛ"]; ok {
		return "ЮЛ", obj(ul)
	}
	if ip, ok := m["ИП"]; ok {
		return "ИП", obj(ip)
	}
	return "", nil
}

// ids renders "ИНН: x, ОГРН: y". Individual entrepreneurs use ИННФЛ/ОГРНИП unless plain is set.
func ids(kind string, e map[string]any, plain bool) string {
	if kind == "ИП" && !plain {
		return fmt.Sprintf("ИНН: %s, ОГРН: %s", field(e, "ИННФЛ"), field(e, "ОГРНИП"))
	}
	return fmt.Sprintf("ИНН: %s, ОГРН: %s", field(e, "ИНН"), field(e, "ОГРН"))
}

func name(kind string, e map[string]any) string {
	if kind == "ИП" {
		return field(e, "ФИОПолн")
	}
	return field(e, "НаимСокрЮЛ")
}

func firstN(items []any, n int) []any {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func finish(b *strings.Builder) string {
	return strings.TrimSpace(b.String())
}

func formatSearch(p map[string]any, q url.Values) (string, map[string]any) {
	items := list(p["items"])
	count := any(len(items))
	if c, ok := p["Count"]; ok {
		count = c
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Найдено компаний: %s\n\n", scalar(count))
	for _, item := range firstN(items, 5) {
		kind, e := entity(item)
		if kind == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n%s\nСтатус: %s\n\n", kind, name(kind, e), ids(kind, e, true), field(e, "Статус"))
	}
	return finish(&b), map[string]any{"query": q.Get("q"), "count": count, "page": q.Get("page")}
}

func formatAutocomplete(p map[string]any, q url.Values) (string, map[string]any) {
	items := list(p["items"])
	var b strings.Builder
	fmt.Fprintf(&b, "Найдено вариантов: %d\n\n", len(items))
	for _, item := range firstN(items, 10) {
		kind, e := entity(item)
		if kind == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n%s\n\n", kind, name(kind, e), ids(kind, e, false))
	}
	return finish(&b), map[string]any{"query": q.Get("q"), "count": len(items)}
}

func formatCompany(p map[string]any, q url.Values) (string, map[string]any) {
	meta := map[string]any{"req": q.Get("req")}
	items := list(p["items"])
	if len(items) == 0 {
		return "Данные не найдены", meta
	}
	kind, e := entity(items[0])
	switch kind {
	case "ЮЛ":
		return fmt.Sprintf("Данные о компании:\n\nНаименование: %s\nКраткое: %s\nИНН: %s, КПП: %s\nОГРН: %s\nДата регистрации: %s\nСтатус: %s",
			field(e, "НаимПолнЮЛ"), field(e, "НаимСокрЮЛ"), field(e, "ИНН"), field(e, "КПП"),
			field(e, "ОГРН"), field(e, "ДатаРег"), field(e, "Статус")), meta
	case "ИП":
		return fmt.Sprintf("Данные об ИП:\n\nФИО: %s\nИНН: %s\nОГРН: %s\nДата регистрации: %s\nСтатус: %s",
			field(e, "ФИОПолн"), field(e, "ИННФЛ"), field(e, "ОГРНИП"), field(e, "ДатаРег"), field(e, "Статус")), meta
	}
	return "Данные не найдены", meta
}

func formatMultinfo(p map[string]any, _ url.Values) (string, map[string]any) {
	items := list(p["items"])
	var b strings.Builder
	fmt.Fprintf(&b, "Найдено компаний: %d\n\n", len(items))
	for _, item := range items {
		kind, e := entity(item)
		if kind == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n%s\nСтатус: %s\n", kind, name(kind, e), ids(kind, e, false), field(e, "Статус"))
		if _, ok := e["Контакты"]; ok {
			fmt.Fprintf(&b, "Контакты: %s\n", field(e, "Контакты"))
		}
		b.WriteString("\n")
	}
	return finish(&b), map[string]any{"count": len(items)}
}

func formatMultcheck(p map[string]any, _ url.Values) (string, map[string]any) {
	items := list(p["items"])
	meta := map[string]any{"count": len(items)}
	if len(items) == 0 {
		return "Проблемных компаний не найдено", meta
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Найдено проблемных компаний: %d\n\n", len(items))
	for _, item := range items {
		kind, e := entity(item)
		if kind == "" {
			continue
		}
		fmt.Fprintf(&b, "⚠️ %s: %s\n%s\nСтатус: %s\n", kind, name(kind, e), ids(kind, e, false), field(e, "Статус"))
		if _, ok := e["ДатаПрекр"]; ok {
			fmt.Fprintf(&b, "Дата прекращения: %s\n", field(e, "ДатаПрекр"))
		}
		b.WriteString("\n")
	}
	return finish(&b), meta
}

func formatCheck(p map[string]any, q url.Values) (string, map[string]any) {
	meta := map[string]any{"req": q.Get("req")}
	items := list(p["items"])
	if len(items) == 0 {
		return "Данные не найдены", meta
	}
	kind, e := entity(items[0])
	if kind == "" {
		return "Данные не найдены", meta
	}
	var b strings.Builder
	b.WriteString("Результаты проверки контрагента:\n\n")
	b.WriteString(ids(kind, e, false) + "\n\n")
	if pos := obj(e["Позитив"]); len(pos) > 0 {
		b.WriteString("✅ Позитивные факторы:\n")
		for _, k := range sortedKeys(pos) {
			fmt.Fprintf(&b, "  - %s: %s\n", k, scalar(pos[k]))
		}
	}
	if neg := obj(e["Негатив"]); len(neg) > 0 {
		b.WriteString("\n❌ Негативные факторы:\n")
		for _, k := range sortedKeys(neg) {
			fmt.Fprintf(&b, "  - %s: %s\n", k, scalar(neg[k]))
		}
	}
	return finish(&b), meta
}

func formatAccountBlocks(p map[string]any, q url.Values) (string, map[string]any) {
	meta := map[string]any{"inn": q.Get("inn")}
	items := list(p["items"])
	if len(items) == 0 {
		return "Данные не найдены", meta
	}
	_, e := entity(items[0])
	var b strings.Builder
	fmt.Fprintf(&b, "Проверка блокировок счета для ИНН: %s\n\n", q.Get("inn"))
	blocks := list(obj(e["Негатив"])["БлокировкиСчетов"])
	if len(blocks) == 0 {
		b.WriteString("✅ Блокировок счетов не найдено")
		return finish(&b), meta
	}
	b.WriteString("❌ Найдены блокировки счетов:\n")
	for _, blk := range blocks {
		fmt.Fprintf(&b, "  - %s\n", scalar(blk))
	}
	return finish(&b), meta
}

func formatChanges(p map[string]any, q url.Values) (string, map[string]any) {
	meta := map[string]any{"req": q.Get("req"), "dat": q.Get("dat")}
	items := list(p["items"])
	if len(items) == 0 {
		return "Данные не найдены", meta
	}
	kind, e := entity(items[0])
	if kind == "" {
		return "Данные не найдены", meta
	}
	var b strings.Builder
	b.WriteString("Изменения для компании:\n\n")
	b.WriteString(ids(kind, e, false) + "\n\n")

	switch history := e["Изменения"].(type) {
	case []any:
		if len(history) == 0 {
			b.WriteString("Изменений не найдено")
			break
		}
		b.WriteString("История изменений:\n")
		for _, raw := range firstN(history, 10) {
			c := obj(raw)
			fmt.Fprintf(&b, "  - %s: %s - %s\n", field(c, "Дата"), field(c, "Тип"), field(c, "Текст"))
		}
	case map[string]any:
		if len(history) == 0 {
			b.WriteString("Изменений не найдено")
			break
		}
		b.WriteString("История изменений:\n")
		keys := sortedKeys(history)
		if len(keys) > 10 {
			keys = keys[:10]
		}
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s: %s\n", k, scalar(history[k]))
		}
	default:
		b.WriteString("Изменений не найдено")
	}
	return finish(&b), meta
}

func formatMonitor(p map[string]any, q url.Values) (string, map[string]any) {
	cmd := q.Get("cmd")
	items := list(p["items"])
	meta := map[string]any{"cmd": cmd}
	var b strings.Builder
	switch cmd {
	case "list":
		fmt.Fprintf(&b, "Список компаний на мониторинге: %d\n\n", len(items))
		for _, raw := range firstN(items, 10) {
			it := obj(raw)
			fmt.Fprintf(&b, "ОГРН: %s, ИНН: %s\n", field(it, "ОГРН"), field(it, "ИНН"))
		}
	case "add":
		b.WriteString("Результат добавления:\n\n")
		for _, raw := range items {
			it := obj(raw)
			fmt.Fprintf(&b, "ОГРН: %s\nРезультат: %s\n", field(it, "ОГРН"), field(it, "Результат"))
		}
	case "chd":
		dat := q.Get("dat")
		if dat == "" {
			dat = na
		}
		fmt.Fprintf(&b, "Изменения на дату %s:\n\n", dat)
		for _, raw := range items {
			it := obj(raw)
			fmt.Fprintf(&b, "ОГРН: %s\nТип: %s\nТекст: %s\n\n", field(it, "ОГРН"), field(it, "Тип"), field(it, "Текст"))
		}
	default:
		fmt.Fprintf(&b, "Команда %s выполнена", cmd)
	}
	return finish(&b), meta
}

func formatAccounting(p map[string]any, q url.Values) (string, map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "Бухгалтерская отчетность для: %s\n\n", q.Get("req"))
	for _, id := range sortedKeys(p) {
		fmt.Fprintf(&b, "ИНН/ОГРН: %s\n\n", id)
		years := obj(p[id])
		for _, year := range sortedKeys(years) {
			fmt.Fprintf(&b, "Год: %s\n", year)
			codes := obj(years[year])
			keys := sortedKeys(codes)
			if len(keys) > 5 {
				keys = keys[:5]
			}
			for _, code := range keys {
				fmt.Fprintf(&b, "  Строка %s: %s тыс. руб.\n", code, scalar(codes[code]))
			}
			b.WriteString("\n")
		}
	}
	return finish(&b), map[string]any{"req": q.Get("req")}
}

func formatINNByPassport(p map[string]any, q url.Values) (string, map[string]any) {
	meta := map[string]any{"fam": q.Get("fam"), "nam": q.Get("nam")}
	items := list(p["items"])
	if len(items) == 0 {
		return "ИНН не найден", meta
	}
	first := obj(items[0])
	if inn, ok := first["ИНН"]; ok {
		fio := strings.TrimSpace(strings.Join([]string{q.Get("fam"), q.Get("nam"), q.Get("otch")}, " "))
		return fmt.Sprintf("ИНН найден:\n\nФИО: %s\nДата рождения: %s\nДокумент: %s\nИНН: %s",
			fio, q.Get("bdate"), q.Get("docno"), scalar(inn)), meta
	}
	if msg, ok := first["error"]; ok {
		return "Ошибка: " + scalar(msg), meta
	}
	return "ИНН не найден", meta
}

func formatPassport(p map[string]any, q url.Values) (string, map[string]any) {
	result := "Cреди недействительных не значится"
	if r, ok := p["result"]; ok {
		result = scalar(r)
	}
	return fmt.Sprintf("Проверка паспорта: %s\n\nРезультат: %s", q.Get("docno"), result),
		map[string]any{"docno": q.Get("docno")}
}

func formatPersonStatus(p map[string]any, q url.Values) (string, map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "Статусы для ИНН: %s\n\n", q.Get("inn"))
	if c := obj(p["Корректность"]); len(c) > 0 {
		fmt.Fprintf(&b, "Корректность ИНН:\n  Контрольная сумма: %s\n  Недействительный: %s\n\n", field(c, "КонтрСумма"), field(c, "Недействительный"))
	}
	if s := obj(p["Самозанятость"]); len(s) > 0 {
		fmt.Fprintf(&b, "Самозанятость:\n  Статус: %s\n  %s\n\n", field(s, "Статус"), field(s, "Текст"))
	}
	if ip := obj(p["ИП"]); len(ip) > 0 {
		fmt.Fprintf(&b, "Индивидуальный предприниматель:\n  Статус: %s\n  %s\n", field(ip, "Статус"), field(ip, "Текст"))
	}
	return finish(&b), map[string]any{"inn": q.Get("inn")}
}

func formatFSRAR(p map[string]any, q url.Values) (string, map[string]any) {
	items := list(p["items"])
	var b strings.Builder
	fmt.Fprintf(&b, "Лицензии ФСРАР для ИНН: %s\n\n", q.Get("inn"))
	if len(items) == 0 {
		b.WriteString("Лицензий не найдено")
	}
	for _, raw := range items {
		l := obj(raw)
		fmt.Fprintf(&b, "Номер лицензии: %s\nВид лицензии: %s\nДата выдачи: %s\nДата окончания: %s\nСтатус: %s\n\n",
			field(l, "Номер лицензии"), field(l, "Вид лицензии"), field(l, "Дата выдачи"),
			field(l, "Дата окончания"), field(l, "Статус лицензии"))
	}
	return finish(&b), map[string]any{"inn": q.Get("inn"), "count": len(items)}
}

func formatStatistics(p map[string]any, _ url.Values) (string, map[string]any) {
	var b strings.Builder
	b.WriteString("Статистика использования API:\n\n")
	fmt.Fprintf(&b, "Период: %s - %s\n", field(p, "ДатаНач"), field(p, "ДатаОконч"))
	fmt.Fprintf(&b, "Статус: %s\n\nМетоды:\n", field(p, "Статус"))
	methods := obj(p["Методы"])
	for _, m := range sortedKeys(methods) {
		d := obj(methods[m])
		fmt.Fprintf(&b, "  %s: использовано %s из %s\n", m, field(d, "Истрачено"), field(d, "Лимит"))
	}
	return finish(&b), map[string]any{}
}
