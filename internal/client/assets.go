package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Asset — актив гражданина (парковочное разрешение).
type Asset struct {
	AssetID          string            `json:"assetId"`
	Origin           string            `json:"origin,omitempty"`
	PartyID          string            `json:"partyId"`
	CaseReferenceIDs []string          `json:"caseReferenceIds,omitempty"`
	Type             string            `json:"type"`
	Issued           string            `json:"issued,omitempty"`
	ValidTo          string            `json:"validTo,omitempty"`
	Status           string            `json:"status"`
	Description      string            `json:"description,omitempty"`
	AdditionalParams map[string]string `json:"additionalParameters,omitempty"`
}

// Assets — клиент реестра активов.
type Assets struct {
	rest *REST
}

// NewAssets создаёт клиент.
func NewAssets(cfg Config, logger *slog.Logger) *Assets {
	return &Assets{rest: NewREST("party-assets", cfg, logger)}
}

// CreateAsset создаёт актив. Повторное создание возвращает 409.
func (c *Assets) CreateAsset(ctx context.Context, municipalityID string, asset Asset) error {
	path := fmt.Sprintf("/%s/assets", url.PathEscape(municipalityID))
	return c.rest.Post(ctx, path, asset, nil)
}
