package texts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shaiso/permitflow/internal/decision"
	"github.com/shaiso/permitflow/internal/domain"
)

var (
	// ErrTemplateParse — шаблон не разбирается.
	ErrTemplateParse = errors.New("template parse failed")

	// ErrTemplateRender — шаблон не выполняется на данных.
	ErrTemplateRender = errors.New("template render failed")
)

// Data — данные, доступные в шаблонах.
//
//	{{ .Errand.ErrandNumber }}
//	{{ .ApplicantName }}
//	{{ if .Approved }}...{{ end }}
//	{{ .Decision.Description }}
type Data struct {
	Errand        *domain.Errand
	Decision      *domain.Decision
	ApplicantName string
	Approved      bool
	Now           time.Time
}

// NewData собирает данные шаблона по делу и его финальному решению.
func NewData(errand *domain.Errand, now time.Time) Data {
	d := Data{Errand: errand, Now: now}
	if applicant := errand.Applicant(); applicant != nil {
		d.ApplicantName = applicant.FullName()
	}
	if final := errand.FinalDecision(); final != nil {
		d.Decision = final
		d.Approved = final.DecisionOutcome == domain.DecisionOutcomeApproval
	}
	return d
}

var funcs = template.FuncMap{
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			return v
		}
		return nil
	},
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	},
	"date": func(layout string, t time.Time) string {
		return t.Format(layout)
	},
	"join":  func(sep string, items []string) string { return strings.Join(items, sep) },
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"trim":  strings.TrimSpace,
}

// Renderer — разобранные шаблоны.
type Renderer struct {
	cfg       Config
	templates map[string]*template.Template
}

// Имена шаблонов.
const (
	MessageSubject      = "messageSubject"
	MessageBody         = "messageBody"
	DecisionFilename    = "decisionFilename"
	DecisionTemplate    = "decisionTemplate"
	FallbackTitle       = "fallbackTitle"
	FallbackDescription = "fallbackDescription"
	CardTitle           = "cardTitle"
	CardDescription     = "cardDescription"
)

// New разбирает все шаблоны. Пустые поля берутся из Defaults.
func New(cfg Config) (*Renderer, error) {
	cfg = cfg.merge()
	if err := cfg.Decision.Validate(); err != nil {
		return nil, err
	}

	sources := map[string]string{
		MessageSubject:      cfg.MessageSubject,
		MessageBody:         cfg.MessageBody,
		DecisionFilename:    cfg.DecisionFilename,
		DecisionTemplate:    cfg.DecisionTemplate,
		FallbackTitle:       cfg.FallbackTitle,
		FallbackDescription: cfg.FallbackDescription,
		CardTitle:           cfg.CardTitle,
		CardDescription:     cfg.CardDescription,
	}

	r := &Renderer{cfg: cfg, templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		t, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateParse, name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render выполняет шаблон name.
func (r *Renderer) Render(name string, data Data) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown template %q", ErrTemplateRender, name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateRender, name, err)
	}
	return buf.String(), nil
}

// Decision возвращает тексты описания решения.
func (r *Renderer) Decision() decision.Texts {
	return r.cfg.Decision
}

// DisplayPhase возвращает подпись фазы по ключу; неизвестный ключ — сам ключ.
// Ключ сравнивается без учёта регистра: viper приводит ключи map к нижнему.
func (r *Renderer) DisplayPhase(key string) string {
	if label, ok := r.cfg.DisplayPhases[key]; ok && label != "" {
		return label
	}
	for k, label := range r.cfg.DisplayPhases {
		if strings.EqualFold(k, key) && label != "" {
			return label
		}
	}
	return key
}
