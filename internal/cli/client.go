package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не ходит в internal/api) ---

// TopicResponse — состояние опроса топика.
type TopicResponse struct {
	Topic     string `json:"topic"`
	Completed int64  `json:"completed"`
	Incidents int64  `json:"incidents"`
	Lost      int64  `json:"lost"`
	LastPoll  string `json:"last_poll,omitempty"`
}

// WakeResponse — результат пробуждения топика.
type WakeResponse struct {
	Topic     string `json:"topic"`
	Woken     bool   `json:"woken"`
	Published bool   `json:"published"`
}

// JournalEntryResponse — запись журнала эффектов.
type JournalEntryResponse struct {
	ErrandNumber string `json:"errand_number"`
	Task         string `json:"task"`
	Effect       string `json:"effect"`
	Reference    string `json:"reference,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// PurgeResponse — результат чистки журнала.
type PurgeResponse struct {
	Before string `json:"before"`
	Purged int64  `json:"purged"`
}

// ErrandStateResponse — состояние процесса по делу.
type ErrandStateResponse struct {
	ID            int64  `json:"id"`
	ErrandNumber  string `json:"errand_number"`
	CaseType      string `json:"case_type"`
	Phase         string `json:"phase"`
	PhaseStatus   string `json:"phase_status,omitempty"`
	PhaseAction   string `json:"phase_action"`
	DisplayPhase  string `json:"display_phase,omitempty"`
	State         string `json:"state"`
	FinalDecision string `json:"final_decision,omitempty"`
	LatestStatus  string `json:"latest_status,omitempty"`
	PermitNumber  string `json:"permit_number,omitempty"`
	Administrator bool   `json:"administrator_assigned"`
	Updated       string `json:"updated,omitempty"`
}

// HealthResponse — ответ /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ErrandOpts — контекст дела, если он отличается от настроек воркера.
type ErrandOpts struct {
	MunicipalityID string
	Namespace      string
}

// PurgeOpts — порог чистки журнала. Задаётся одно из полей.
type PurgeOpts struct {
	OlderThan time.Duration
	Before    time.Time
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для ops API воркера.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ready возвращает результат проверки готовности.
// 503 не считается ошибкой: ответ всё равно содержит checks.
func (c *Client) Ready() (*HealthResponse, error) {
	resp, err := c.do(http.MethodGet, "/readyz", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &health, nil
}

// --- Topics ---

// ListTopics возвращает состояние опроса по топикам.
func (c *Client) ListTopics() ([]TopicResponse, error) {
	var topics []TopicResponse
	err := c.list("/api/v1/topics", nil, &topics)
	return topics, err
}

// WakeTopic будит опрос топика.
func (c *Client) WakeTopic(topic string) (*WakeResponse, error) {
	var wake WakeResponse
	err := c.post("/api/v1/topics/"+url.PathEscape(topic)+"/wake", nil, &wake)
	return &wake, err
}

// --- Journal ---

// ListJournal возвращает записи журнала по номеру дела.
func (c *Client) ListJournal(errandNumber string) ([]JournalEntryResponse, error) {
	var entries []JournalEntryResponse
	err := c.list("/api/v1/journal/"+url.PathEscape(errandNumber), nil, &entries)
	return entries, err
}

// PurgeJournal удаляет старые записи журнала.
func (c *Client) PurgeJournal(opts PurgeOpts) (*PurgeResponse, error) {
	params := url.Values{}
	if !opts.Before.IsZero() {
		params.Set("before", opts.Before.UTC().Format(time.RFC3339))
	} else if opts.OlderThan > 0 {
		params.Set("older_than", opts.OlderThan.String())
	}

	var purge PurgeResponse
	err := c.doData(http.MethodDelete, "/api/v1/journal?"+params.Encode(), nil, &purge)
	return &purge, err
}

// --- Errands ---

// GetErrandState возвращает состояние процесса по делу.
func (c *Client) GetErrandState(id int64, opts ErrandOpts) (*ErrandStateResponse, error) {
	params := url.Values{}
	if opts.MunicipalityID != "" {
		params.Set("municipality_id", opts.MunicipalityID)
	}
	if opts.Namespace != "" {
		params.Set("namespace", opts.Namespace)
	}

	path := "/api/v1/errands/" + strconv.FormatInt(id, 10)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var state ErrandStateResponse
	err := c.get(path, &state)
	return &state, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(lr.Data) == 0 || string(lr.Data) == "null" {
		return nil
	}
	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
