package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// MessageAttachment — вложение сообщения (содержимое в base64).
type MessageAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// MessageRequest — сообщение гражданину.
type MessageRequest struct {
	PartyID     string              `json:"partyId"`
	ExternalRef string              `json:"externalReference,omitempty"`
	Subject     string              `json:"subject"`
	Body        string              `json:"body"`
	Attachments []MessageAttachment `json:"attachments,omitempty"`
}

type messageResponse struct {
	MessageID  string `json:"messageId"`
	DeliveryID string `json:"deliveryId,omitempty"`
	Messages   []struct {
		MessageID string `json:"messageId"`
	} `json:"messages,omitempty"`
}

func (r messageResponse) id() string {
	if r.MessageID != "" {
		return r.MessageID
	}
	if len(r.Messages) > 0 {
		return r.Messages[0].MessageID
	}
	return ""
}

// Messaging — клиент сервиса сообщений.
type Messaging struct {
	rest *REST
}

// NewMessaging создаёт клиент.
func NewMessaging(cfg Config, logger *slog.Logger) *Messaging {
	return &Messaging{rest: NewREST("messaging", cfg, logger)}
}

// SendDigitalMail отправляет письмо в цифровой почтовый ящик гражданина.
func (c *Messaging) SendDigitalMail(ctx context.Context, municipalityID string, req MessageRequest) (string, error) {
	return c.send(ctx, municipalityID, "digital-mail", req)
}

// SendWebMessage публикует сообщение в личном кабинете.
func (c *Messaging) SendWebMessage(ctx context.Context, municipalityID string, req MessageRequest) (string, error) {
	return c.send(ctx, municipalityID, "webmessage", req)
}

func (c *Messaging) send(ctx context.Context, municipalityID, kind string, req MessageRequest) (string, error) {
	var resp messageResponse
	path := fmt.Sprintf("/%s/%s", url.PathEscape(municipalityID), kind)
	if err := c.rest.Post(ctx, path, req, &resp); err != nil {
		return "", err
	}
	return resp.id(), nil
}
