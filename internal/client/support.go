package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
)

// SupportErrand — дело в support-management.
type SupportErrand struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Priority       string              `json:"priority"`
	Classification SupportCategory     `json:"classification"`
	ExternalTags   []SupportTag        `json:"externalTags,omitempty"`
	Parameters     map[string]string   `json:"parameters,omitempty"`
	Attachments    []MessageAttachment `json:"attachments,omitempty"`
}

// SupportCategory — категория и тип дела.
type SupportCategory struct {
	Category string `json:"category"`
	Type     string `json:"type"`
}

// SupportTag — внешняя метка для связи с исходным делом.
type SupportTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Support — клиент support-management.
type Support struct {
	rest *REST
}

// NewSupport создаёт клиент.
func NewSupport(cfg Config, logger *slog.Logger) *Support {
	return &Support{rest: NewREST("support-management", cfg, logger)}
}

// CreateErrand создаёт дело и возвращает его идентификатор (из Location).
func (c *Support) CreateErrand(ctx context.Context, municipalityID, namespace string, errand SupportErrand) (string, error) {
	p := fmt.Sprintf("/%s/%s/errands", url.PathEscape(municipalityID), url.PathEscape(namespace))
	headers, err := c.rest.DoWithHeaders(ctx, http.MethodPost, p, errand, nil)
	if err != nil {
		return "", err
	}
	if loc := headers.Get("Location"); loc != "" {
		return path.Base(loc), nil
	}
	return "", nil
}
