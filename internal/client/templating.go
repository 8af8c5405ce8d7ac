package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// RenderRequest — запрос на рендеринг документа.
type RenderRequest struct {
	Identifier string         `json:"identifier"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type renderResponse struct {
	Output string `json:"output"`
}

// Templating — клиент сервиса шаблонов документов.
type Templating struct {
	rest *REST
}

// NewTemplating создаёт клиент.
func NewTemplating(cfg Config, logger *slog.Logger) *Templating {
	return &Templating{rest: NewREST("templating", cfg, logger)}
}

// RenderPDF рендерит PDF по шаблону. Возвращает содержимое в base64.
func (c *Templating) RenderPDF(ctx context.Context, municipalityID string, req RenderRequest) (string, error) {
	var resp renderResponse
	path := fmt.Sprintf("/%s/render/pdf", url.PathEscape(municipalityID))
	if err := c.rest.Post(ctx, path, req, &resp); err != nil {
		return "", err
	}
	if resp.Output == "" {
		return "", fmt.Errorf("templating: empty output for %s", req.Identifier)
	}
	return resp.Output, nil
}
