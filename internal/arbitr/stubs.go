package arbitr

import "encoding/base64"

// Test-mode payloads shaped like decoded api-assist responses.

func stubSearch() map[string]any {
	return map[string]any{
		"Success": 1.0,
		"Cases": []any{
			map[string]any{
				"CaseId":     "7057cbe9-910b-43ab-98f6-97293fbfd6ff",
				"CaseNumber": "А40-180791/2024",
				"CaseType":   "Б",
				"Court":      "АС города Москвы",
				"StartDate":  "2024-08-05",
				"Plaintiffs": []any{map[string]any{
					"Name":    "ПАО \"НОРВИК БАНК\"",
					"Address": "115054, Россия, г Москва, ул. Зацепский вал, д. 5",
					"Inn":     "4346001485",
				}},
				"Respondents": []any{map[string]any{
					"Name":    "Антоненко Александр Александрович",
					"Address": nil,
					"Inn":     "463406307502",
				}},
			},
		},
		"PagesCount": 1.0,
	}
}

func stubDetails() map[string]any {
	return map[string]any{
		"Success": 1.0,
		"Cases": []any{
			map[string]any{
				"CaseId":     "6fb9afec-b71d-4183-b917-4cace5958c16",
				"CaseNumber": "А71-1202/2015",
				"CaseType":   "А",
				"StartDate":  "2015-02-06",
				"State":      "Рассмотрение дела завершено",
				"Finished":   true,
				"Plaintiffs": []any{map[string]any{
					"Name": "ООО \"Детство\"",
					"Inn":  "1841012052",
					"Ogrn": "1101841004198",
				}},
				"Respondents": []any{map[string]any{
					"Name": "Межрайонная ИФНС России №9 по Удмуртской Республике",
					"Inn":  "1835059990",
					"Ogrn": "1041805001501",
				}},
				"CaseInstances": []any{
					map[string]any{
						"Id":             "5400123c-5c8a-4421-a839-c130938086c2",
						"InstanceNumber": "А71-1202/15",
						"Name":           "Первая инстанция",
						"Court":          map[string]any{"Code": "UDMURTIYA", "Name": "АС Удмуртской Республики"},
						"Judges":         []any{"Бушуева Е. А."},
						"File": map[string]any{
							"Name": "A71-1202-2015_20150507_Reshenija i postanovlenija.pdf",
							"URL":  "https://kad.arbitr.ru/PdfDocument/63778dcd-c696-4863-b781-73a839cbf8a8/A71-1202-2015_20150507_Reshenija%20i%20postanovlenija.pdf",
						},
					},
				},
				"CourtHearings": []any{
					map[string]any{
						"Location": "426011, Ижевск, ул. Ломоносова 5, 22",
						"Start":    "2015-03-19T11:00:00+04",
						"End":      "2015-03-19T12:00:00+04",
					},
				},
			},
		},
	}
}

var stubPDFBytes = []byte("%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n" +
	"trailer\n<< /Size 4 /Root 1 0 R >>\n%%EOF")

func stubPDF() map[string]any {
	return map[string]any{
		"Success":    1.0,
		"pdfContent": base64.StdEncoding.EncodeToString(stubPDFBytes),
	}
}
