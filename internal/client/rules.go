package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// RuleContextParkingPermit — контекст правил для парковочных разрешений.
const RuleContextParkingPermit = "PARKING_PERMIT"

// Fact — факт, передаваемый в rule engine.
type Fact struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RuleRequest — запрос к rule engine.
type RuleRequest struct {
	Context string `json:"context"`
	Facts   []Fact `json:"facts"`
}

// RuleResponse — ответ rule engine.
type RuleResponse struct {
	Context string        `json:"context,omitempty"`
	Results []RuleOutcome `json:"results"`
}

// RuleOutcome — результат одного правила.
type RuleOutcome struct {
	Rule    string               `json:"rule"`
	Value   string               `json:"value"`
	Details []*RuleOutcomeDetail `json:"details,omitempty"`
}

// RuleOutcomeDetail — пояснение к результату правила.
type RuleOutcomeDetail struct {
	Rule        string `json:"rule,omitempty"`
	Description string `json:"description"`
}

// RuleEngine — клиент rule engine.
type RuleEngine struct {
	rest *REST
}

// NewRuleEngine создаёт клиент.
func NewRuleEngine(cfg Config, logger *slog.Logger) *RuleEngine {
	return &RuleEngine{rest: NewREST("business-rules", cfg, logger)}
}

// Evaluate применяет правила к фактам.
func (c *RuleEngine) Evaluate(ctx context.Context, municipalityID string, req RuleRequest) (*RuleResponse, error) {
	var resp RuleResponse
	path := fmt.Sprintf("/%s/engine", url.PathEscape(municipalityID))
	if err := c.rest.Post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
