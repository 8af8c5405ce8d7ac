package texts

import (
	"strings"

	"github.com/shaiso/permitflow/internal/decision"
)

// Config — тексты из конфигурации.
type Config struct {
	// Decision — префиксы описания решения и союз для списка деталей.
	Decision decision.Texts `yaml:"decision" mapstructure:"decision"`

	// MessageSubject/MessageBody — письмо гражданину о решении.
	MessageSubject string `yaml:"messageSubject" mapstructure:"messageSubject"`
	MessageBody    string `yaml:"messageBody" mapstructure:"messageBody"`

	// DecisionFilename — имя PDF-вложения.
	DecisionFilename string `yaml:"decisionFilename" mapstructure:"decisionFilename"`

	// DecisionTemplate — идентификатор шаблона PDF в templating.
	DecisionTemplate string `yaml:"decisionTemplate" mapstructure:"decisionTemplate"`

	// FallbackTitle/FallbackDescription — support-дело, если письмо
	// не удалось доставить ни одним каналом.
	FallbackTitle       string `yaml:"fallbackTitle" mapstructure:"fallbackTitle"`
	FallbackDescription string `yaml:"fallbackDescription" mapstructure:"fallbackDescription"`

	// CardTitle/CardDescription — support-дело на изготовление карты.
	CardTitle       string `yaml:"cardTitle" mapstructure:"cardTitle"`
	CardDescription string `yaml:"cardDescription" mapstructure:"cardDescription"`

	// DisplayPhases — подписи process.displayPhase по ключу (например, "Canceled").
	DisplayPhases map[string]string `yaml:"displayPhases" mapstructure:"displayPhases"`
}

// Defaults возвращает тексты по умолчанию.
func Defaults() Config {
	return Config{
		Decision:         decision.DefaultTexts(),
		MessageSubject:   "Decision on your parking permit application {{ .Errand.ErrandNumber }}",
		MessageBody:      "Hello {{ default \"applicant\" .ApplicantName }},\n\n{{ if .Approved }}Your application has been approved.{{ else }}Your application has been rejected.{{ end }}\nThe decision is attached to this message.\n",
		DecisionFilename: "decision-{{ .Errand.ErrandNumber }}.pdf",
		DecisionTemplate: "sbk.prh.decision.all.{{ if .Approved }}approval{{ else }}rejection{{ end }}",

		FallbackTitle:       "Send decision {{ .Errand.ErrandNumber }} by post",
		FallbackDescription: "The decision for errand {{ .Errand.ErrandNumber }} could not be delivered digitally. Print the attached decision and send it to the applicant.",

		CardTitle:       "Produce parking permit card {{ .Errand.ErrandNumber }}",
		CardDescription: "Parking permit for {{ .ApplicantName }} is approved ({{ lower .Errand.CaseType }}). Produce and send the card.",

		DisplayPhases: map[string]string{
			"Canceled": "Canceled",
			"Waiting":  "Waiting for complement",
		},
	}
}

// merge дополняет пустые поля c значениями по умолчанию.
// Validate проверяет тексты с учётом значений по умолчанию.
func (c Config) Validate() error {
	return c.merge().Decision.Validate()
}

func (c Config) merge() Config {
	d := Defaults()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Decision.RecommendedApproval, d.Decision.RecommendedApproval)
	fill(&c.Decision.RecommendedRejection, d.Decision.RecommendedRejection)
	fill(&c.Decision.FinalApproval, d.Decision.FinalApproval)
	fill(&c.Decision.FinalRejection, d.Decision.FinalRejection)
	fill(&c.Decision.Conjunction, d.Decision.Conjunction)
	fill(&c.MessageSubject, d.MessageSubject)
	fill(&c.MessageBody, d.MessageBody)
	fill(&c.DecisionFilename, d.DecisionFilename)
	fill(&c.DecisionTemplate, d.DecisionTemplate)
	fill(&c.FallbackTitle, d.FallbackTitle)
	fill(&c.FallbackDescription, d.FallbackDescription)
	fill(&c.CardTitle, d.CardTitle)
	fill(&c.CardDescription, d.CardDescription)

	labels := make(map[string]string, len(d.DisplayPhases))
	for k, v := range d.DisplayPhases {
		labels[k] = v
	}
	for k, v := range c.DisplayPhases {
		for def := range labels {
			if strings.EqualFold(def, k) {
				delete(labels, def)
			}
		}
		labels[k] = v
	}
	c.DisplayPhases = labels
	return c
}
