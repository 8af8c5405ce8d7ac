package client

import (
	"context"
	"log/slog"
)

// QueueItem — элемент очереди RPA.
//
// Reference уникален в пределах очереди: повторная постановка с тем же
// Reference отклоняется конфликтом 409.
type QueueItem struct {
	Name            string         `json:"Name"`
	Reference       string         `json:"Reference"`
	Priority        string         `json:"Priority,omitempty"`
	SpecificContent map[string]any `json:"SpecificContent"`
}

type addQueueItemRequest struct {
	ItemData QueueItem `json:"itemData"`
}

// RPA — клиент очереди RPA-роботов.
type RPA struct {
	rest *REST
}

// NewRPA создаёт клиент.
func NewRPA(cfg Config, logger *slog.Logger) *RPA {
	return &RPA{rest: NewREST("rpa", cfg, logger)}
}

// System возвращает имя системы.
func (c *RPA) System() string { return c.rest.System() }

// AddQueueItem ставит элемент в очередь.
func (c *RPA) AddQueueItem(ctx context.Context, item QueueItem) error {
	return c.rest.Post(ctx, "/odata/Queues/UiPathODataSvc.AddQueueItem", addQueueItemRequest{ItemData: item}, nil)
}
