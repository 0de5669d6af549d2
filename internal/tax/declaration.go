package tax

import (
	"fmt"

	"github.com/beevik/etree"
)

const (
	// DeclarationNamespace is bound to the nd prefix in every generated file.
	DeclarationNamespace = "http://www.nalog.ru/declaration"
	nsPrefix             = "nd"
)

// Period is a reporting period: Q1..Q4 or YEAR.
type Period string

var periodCodes = map[Period]string{
	"Q1":   "21",
	"Q2":   "22",
	"Q3":   "23",
	"Q4":   "31",
	"YEAR": "34",
}

// Code returns the FNS period code.
func (p Period) Code() string {
	return periodCodes[p]
}

func (p Period) Valid() bool {
	_, ok := periodCodes[p]
	return ok
}

// Form identifies a declaration format.
type Form struct {
	KND     string
	Version string
	Title   string
	// FilePrefix precedes {inn}_{year}_{period} in ИдФайл.
	FilePrefix string
}

var (
	FormUSN   = Form{KND: "1152017", Version: "5.05", Title: "Декларация по налогу, уплачиваемому в связи с применением УСН", FilePrefix: "DECL_"}
	FormOSNO  = Form{KND: "1151001", Version: "5.10", Title: "Декларация по налогу на прибыль организаций", FilePrefix: "DECL_OSNO_"}
	FormNDS   = Form{KND: "1151001", Version: "5.10", Title: "Декларация по налогу на добавленную стоимость", FilePrefix: "DECL_NDS_"}
	Form6NDFL = Form{KND: "1151078", Version: "5.10", Title: "Расчет сумм налога на доходы физических лиц", FilePrefix: "DECL_6NDFL_"}
)

type USNInput struct {
	INN      string
	Period   Period
	Year     int
	Income   float64
	Expenses float64
	// TaxRate is 6 (income) or 15 (income minus expenses).
	TaxRate int
}

// USNTax computes the simplified-system tax.
func USNTax(income, expenses float64, rate int) float64 {
	if rate == 6 {
		return income * 0.06
	}
	base := income - expenses
	if base <= 0 {
		return 0
	}
	return base * 0.15
}

type OSNOInput struct {
	INN      string
	Period   Period
	Year     int
	Income   float64
	Expenses float64
	Profit   float64
	Loss     float64
	NDS      float64
}

// OSNOTax is the 20% corporate profit tax.
func OSNOTax(profit float64) float64 {
	return profit * 0.20
}

type NDSInput struct {
	INN         string
	Period      Period
	Year        int
	Turnover    float64
	NDSToPay    float64
	NDSToRefund float64
}

type NDFL6Input struct {
	INN          string
	Period       Period
	Year         int
	TotalIncome  float64
	TotalNDFL    float64
	WithheldNDFL float64
}

// GenerateUSN renders КНД 1152017.
func GenerateUSN(in USNInput) (string, error) {
	doc, title := newDeclaration(FormUSN, in.INN, in.Year, in.Period)
	tax := USNTax(in.Income, in.Expenses, in.TaxRate)

	s1 := child(title, "Раздел1")
	s2 := child(title, "Раздел2")
	if in.TaxRate == 6 {
		amount(child(s1, "Раздел1.1"), "СумНалУпл", tax)
		amount(child(s2, "Раздел2.1.1"), "СумДох", in.Income)
	} else {
		amount(child(s1, "Раздел1.2"), "СумНалУпл", tax)
		s22 := child(s2, "Раздел2.2")
		amount(s22, "СумДох", in.Income)
		amount(s22, "СумРасх", in.Expenses)
	}
	return render(doc)
}

// GenerateOSNO renders КНД 1151001 for the profit tax.
func GenerateOSNO(in OSNOInput) (string, error) {
	doc, title := newDeclaration(FormOSNO, in.INN, in.Year, in.Period)
	amount(child(title, "Раздел1"), "СумНалУпл", OSNOTax(in.Profit))

	s2 := child(title, "Раздел2")
	amount(s2, "Доходы", in.Income)
	amount(s2, "Расходы", in.Expenses)
	amount(s2, "Прибыль", in.Profit)
	if in.Loss > 0 {
		amount(s2, "Убыток", in.Loss)
	}
	if in.NDS > 0 {
		amount(s2, "НДС", in.NDS)
	}
	return render(doc)
}

// GenerateNDS renders КНД 1151001 for VAT.
func GenerateNDS(in NDSInput) (string, error) {
	doc, title := newDeclaration(FormNDS, in.INN, in.Year, in.Period)
	s1 := child(title, "Раздел1")
	if in.NDSToPay > 0 {
		amount(s1, "СумНДСУпл", in.NDSToPay)
	}
	if in.NDSToRefund > 0 {
		amount(s1, "СумНДСВозм", in.NDSToRefund)
	}
	amount(child(title, "Раздел2"), "Оборот", in.Turnover)
	return render(doc)
}

// Generate6NDFL renders КНД 1151078.
func Generate6NDFL(in NDFL6Input) (string, error) {
	doc, title := newDeclaration(Form6NDFL, in.INN, in.Year, in.Period)
	s1 := child(title, "Раздел1")
	amount(s1, "СумДох", in.TotalIncome)
	amount(s1, "СумНДФЛ", in.TotalNDFL)
	amount(s1, "СумНДФЛУдерж", in.WithheldNDFL)
	return render(doc)
}

// newDeclaration builds Файл/Документ with the taxpayer and period blocks and returns
// the Документ element for the form sections.
func newDeclaration(form Form, inn string, year int, period Period) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(nsPrefix + ":Файл")
	root.CreateAttr("xmlns:"+nsPrefix, DeclarationNamespace)
	root.CreateAttr("ВерсияФормата", form.Version)
	root.CreateAttr("ИдФайл", fmt.Sprintf("%s%s_%d_%s", form.FilePrefix, inn, year, period))

	title := child(root, "Документ")
	title.CreateAttr("КНД", form.KND)
	title.CreateAttr("НаимДок", form.Title)

	child(child(title, "СвНП"), "ИННЮЛ").SetText(inn)

	p := child(title, "Период")
	p.CreateAttr("Год", fmt.Sprint(year))
	p.CreateAttr("Код", period.Code())
	return doc, title
}

func child(parent *etree.Element, tag string) *etree.Element {
	return parent.CreateElement(nsPrefix + ":" + tag)
}

func amount(parent *etree.Element, tag string, v float64) {
	child(parent, tag).SetText(fmt.Sprintf("%.2f", v))
}

func render(doc *etree.Document) (string, error) {
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("render declaration: %w", err)
	}
	return out, nil
}
