package tax

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/finmcp/finmcp/internal/core"
	"github.com/google/jsonschema-go/jsonschema"
)

type param struct {
	name        string
	description string
	// kind is the JSON schema type; empty means string.
	kind     string
	required bool
	def      string
	enum     []any
	// compact removes inner spaces (document numbers).
	compact bool
	inn     bool
}

type fileSpec struct {
	fileType func(q url.Values) string
	header   func(q url.Values) string
	meta     []string
}

// lookup is one api-fns.ru endpoint exposed as a tool.
type lookup struct {
	tool        string
	endpoint    string
	description string
	failure     string
	params      []param
	format      formatFunc
	file        *fileSpec
}

func (l lookup) schema() *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
	for _, p := range l.params {
		kind := p.kind
		if kind == "" {
			kind = "string"
		}
		s.Properties[p.name] = &jsonschema.Schema{Type: kind, Description: p.description, Enum: p.enum}
		if p.required {
			s.Required = append(s.Required, p.name)
		}
	}
	return s
}

// query turns call arguments into request parameters, applying defaults and cleanup.
func (l lookup) query(args map[string]any) (url.Values, error) {
	q := url.Values{}
	for _, p := range l.params {
		v := argString(args[p.name])
		if p.compact {
			v = strings.ReplaceAll(v, " ", "")
		}
		if v == "" {
			v = p.def
		}
		if v == "" {
			if p.required {
				return nil, core.Invalid("Не указан параметр %s", p.name)
			}
			continue
		}
		if p.inn {
			clean, err := ValidateINN(v)
			if err != nil {
				return nil, err
			}
			v = clean
		}
		q.Set(p.name, v)
	}
	return q, nil
}

func argString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
	}
	return ""
}

var (
	reqParam = param{name: "req", description: "ОГРН или ИНН", required: true}
	innParam = param{name: "inn", description: "ИНН (10 или 12 цифр)", required: true, inn: true}
	docParam = param{name: "docno", description: "Серия и номер паспорта", required: true, compact: true}
)

func fixed(s string) func(url.Values) string {
	return func(url.Values) string { return s }
}

var lookups = []lookup{
	{
		tool:        "search_companies",
		endpoint:    "search",
		description: "Поиск компаний и ИП по названию, ИНН, ОГРН, адресу или ФИО",
		failure:     "Не удалось выполнить поиск",
		params: []param{
			{name: "q", description: "Поисковый запрос", required: true},
			{name: "page", description: "Номер страницы", kind: "integer"},
			{name: "filter", description: "Фильтр, например active"},
		},
		format: formatSearch,
	},
	{
		tool:        "autocomplete",
		endpoint:    "ac",
		description: "Автодополнение названий компаний и ИП",
		failure:     "Не удалось выполнить автодополнение",
		params: []param{
			{name: "q", description: "Начало названия", required: true},
			{name: "filter", description: "Фильтр, например active"},
		},
		format: formatAutocomplete,
	},
	{
		tool:        "get_company_data",
		endpoint:    "egr",
		description: "Данные ЕГРЮЛ/ЕГРИП о компании или ИП",
		failure:     "Не удалось получить данные о компании",
		params:      []param{reqParam},
		format:      formatCompany,
	},
	{
		tool:        "multinfo_companies",
		endpoint:    "multinfo",
		description: "Данные о группе компаний (до 100 ИНН/ОГРН через запятую)",
		failure:     "Не удалось получить данные о группе компаний",
		params:      []param{{name: "req", description: "Список ИНН/ОГРН через запятую", required: true}},
		format:      formatMultinfo,
	},
	{
		tool:        "multcheck_companies",
		endpoint:    "multcheck",
		description: "Проверка группы компаний на ликвидацию и признаки недобросовестности",
		failure:     "Не удалось проверить группу компаний",
		params:      []param{{name: "req", description: "Список ИНН/ОГРН через запятую", required: true}},
		format:      formatMultcheck,
	},
	{
		tool:        "check_counterparty",
		endpoint:    "check",
		description: "Проверка контрагента: позитивные и негативные факторы",
		failure:     "Не удалось проверить контрагента",
		params:      []param{reqParam},
		format:      formatCheck,
	},
	{
		tool:        "check_account_blocks",
		endpoint:    "nalogbi",
		description: "Проверка решений о приостановлении операций по счетам",
		failure:     "Не удалось проверить блокировки счета",
		params:      []param{innParam},
		format:      formatAccountBlocks,
	},
	{
		tool:        "check_account_blocks_file",
		endpoint:    "nalogbi_file",
		description: "Файл ответа ФНС о блокировках счетов (ZIP с PDF и подписью)",
		failure:     "Не удалось получить файл блокировок счета",
		params: []param{
			innParam,
			{name: "bik", description: "БИК банка"},
		},
		file: &fileSpec{
			fileType: fixed("zip"),
			header: func(q url.Values) string {
				return fmt.Sprintf("Файл блокировок счета для ИНН: %s\nФормат: ZIP (содержит PDF и подпись SIG)", q.Get("inn"))
			},
			meta: []string{"inn"},
		},
	},
	{
		tool:        "track_changes",
		endpoint:    "changes",
		description: "История изменений в ЕГРЮЛ/ЕГРИП с указанной даты",
		failure:     "Не удалось отследить изменения",
		params: []param{
			reqParam,
			{name: "dat", description: "Дата начала отслеживания, YYYY-MM-DD"},
		},
		format: formatChanges,
	},
	{
		tool:        "monitor_companies",
		endpoint:    "mon",
		description: "Мониторинг компаний: список, добавление, удаление, изменения",
		failure:     "Не удалось выполнить команду мониторинга",
		params: []param{
			{name: "cmd", description: "Команда", required: true, enum: []any{"list", "add", "del", "chd", "chbo"}},
			{name: "req", description: "ОГРН или ИНН через запятую"},
			{name: "dat", description: "Дата изменений, YYYY-MM-DD"},
			{name: "year", description: "Год отчетности (chbo)", kind: "integer"},
			{name: "type", description: "Тип изменений"},
			{name: "page", description: "Номер страницы", kind: "integer"},
		},
		format: formatMonitor,
	},
	{
		tool:        "get_extract",
		endpoint:    "vyp",
		description: "Выписка из ЕГРЮЛ/ЕГРИП в PDF, заверенная подписью ФНС",
		failure:     "Не удалось получить выписку",
		params:      []param{reqParam},
		file: &fileSpec{
			fileType: fixed("pdf"),
			header: func(q url.Values) string {
				return fmt.Sprintf("Выписка из ЕГРЮЛ/ЕГРИП для: %s\nФормат: PDF (заверен подписью ФНС)", q.Get("req"))
			},
			meta: []string{"req"},
		},
	},
	{
		tool:        "get_msp_extract",
		endpoint:    "mspinfo_file",
		description: "Выписка из реестра субъектов МСП в PDF",
		failure:     "Не удалось получить выписку МСП",
		params: []param{
			reqParam,
			{name: "type", description: "Тип выписки", def: "report"},
		},
		file: &fileSpec{
			fileType: fixed("pdf"),
			header: func(q url.Values) string {
				return fmt.Sprintf("Выписка МСП для: %s\nТип: %s\nФормат: PDF", q.Get("req"), q.Get("type"))
			},
			meta: []string{"req", "type"},
		},
	},
	{
		tool:        "get_accounting_report",
		endpoint:    "bo",
		description: "Бухгалтерская отчетность юридического лица начиная с 2019 года",
		failure:     "Не удалось получить бухгалтерскую отчетность",
		params:      []param{reqParam},
		format:      formatAccounting,
	},
	{
		tool:        "get_accounting_report_file",
		endpoint:    "bo_file",
		description: "Бухгалтерская отчетность файлом: PDF с подписью или XLS в ZIP",
		failure:     "Не удалось получить файл отчетности",
		params: []param{
			reqParam,
			{name: "year", description: "Год отчетности", kind: "integer", required: true},
			{name: "xls", description: "true: XLS в ZIP, иначе PDF", kind: "boolean"},
		},
		file: &fileSpec{
			fileType: func(q url.Values) string {
				if q.Get("xls") != "" {
					return "zip"
				}
				return "pdf"
			},
			header: func(q url.Values) string {
				format := "PDF"
				if q.Get("xls") != "" {
					format = "ZIP"
				}
				return fmt.Sprintf("Бухгалтерская отчетность для: %s\nГод: %s\nФормат: %s", q.Get("req"), q.Get("year"), format)
			},
			meta: []string{"req", "year"},
		},
	},
	{
		tool:        "get_inn_by_passport",
		endpoint:    "innfl",
		description: "Поиск ИНН физического лица по паспортным данным",
		failure:     "Не удалось найти ИНН",
		params: []param{
			{name: "fam", description: "Фамилия", required: true},
			{name: "nam", description: "Имя", required: true},
			{name: "otch", description: "Отчество"},
			{name: "bdate", description: "Дата рождения, DD.MM.YYYY", required: true},
			docParam,
			{name: "doctype", description: "Код документа", def: "21"},
		},
		format: formatINNByPassport,
	},
	{
		tool:        "check_passport",
		endpoint:    "mvdpass",
		description: "Проверка паспорта по базе недействительных паспортов МВД",
		failure:     "Не удалось проверить паспорт",
		params:      []param{docParam},
		format:      formatPassport,
	},
	{
		tool:        "check_passport_info",
		endpoint:    "mvdinfo",
		description: "Расширенная проверка паспорта МВД",
		failure:     "Не удалось проверить паспорт",
		params:      []param{docParam},
		format:      formatPassport,
	},
	{
		tool:        "check_person_status",
		endpoint:    "fl_status",
		description: "Статусы физического лица: корректность ИНН, самозанятость, ИП",
		failure:     "Не удалось проверить статусы физлица",
		params:      []param{innParam},
		format:      formatPersonStatus,
	},
	{
		tool:        "get_fsrar_licenses",
		endpoint:    "fsrar",
		description: "Лицензии ФСРАР на алкогольную продукцию",
		failure:     "Не удалось получить лицензии ФСРАР",
		params: []param{
			innParam,
			{name: "status", description: "Статус лицензии"},
			{name: "kpp", description: "КПП"},
		},
		format: formatFSRAR,
	},
	{
		tool:        "get_api_statistics",
		endpoint:    "stat",
		description: "Статистика использования ключа API-ФНС",
		failure:     "Не удалось получить статистику",
		format:      formatStatistics,
	},
}
