package registry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

// envelope is the openFDA response wrapper.
type envelope struct {
	Meta    *meta             `json:"meta"`
	Results []json.RawMessage `json:"results"`
}

type meta struct {
	Results struct {
		Skip  int `json:"skip"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	} `json:"results"`
}

// decisionDTO covers both the 510k and the pma result shapes.
type decisionDTO struct {
	KNumber      string `json:"k_number"`
	PMANumber    string `json:"pma_number"`
	Applicant    string `json:"applicant"`
	DecisionDate string `json:"decision_date"`
	DecisionCode string `json:"decision_code"`
	ProductCode  string `json:"product_code"`
	DeviceName   string `json:"device_name"`
	TradeName    string `json:"trade_name"`
	GenericName  string `json:"generic_name"`
}

var dateLayouts = []string{"2006-01-02", "20060102"}

// Device returns the decision record for id.
func (c *Client) Device(ctx context.Context, id string) (*domain.DeviceRecord, *domain.Response, error) {
	id, err := domain.ParseDeviceID(id)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.Fetch(ctx, deviceQuery(id))
	if err != nil {
		return nil, nil, zerr.With(err, "id", id)
	}
	records, err := parseDecisions(resp.Body)
	if err != nil {
		return nil, nil, zerr.With(err, "id", id)
	}
	rec := findRecord(records, id)
	if rec == nil {
		return nil, nil, zerr.With(zerr.Wrap(domain.ErrNotFound, "registry has no record"), "id", id)
	}
	return rec, resp, nil
}

// SafetySignals returns the number of recalls that reference id.
func (c *Client) SafetySignals(ctx context.Context, id string) (int, *domain.Response, error) {
	id, err := domain.ParseDeviceID(id)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.Fetch(ctx, recallQuery(id))
	if errors.Is(err, domain.ErrNotFound) {
		return 0, &domain.Response{Source: domain.SourceNetwork}, nil
	}
	if err != nil {
		return 0, nil, zerr.With(err, "id", id)
	}
	n, err := parseTotal(resp.Body)
	if err != nil {
		return 0, nil, zerr.With(err, "id", id)
	}
	return n, resp, nil
}

// SearchByProductCode lists the most recent decisions sharing a product code.
func (c *Client) SearchByProductCode(ctx context.Context, code string, limit int) ([]domain.DeviceRecord, *domain.Response, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	q := domain.Query{
		Endpoint: domain.EndpointClearance,
		Params: map[string]string{
			"search": `product_code:"` + code + `"`,
			"sort":   "decision_date:desc",
		},
		Limit: limit,
	}

	resp, err := c.Fetch(ctx, q)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.Response{Source: domain.SourceNetwork}, nil
	}
	if err != nil {
		return nil, nil, zerr.With(err, "product_code", code)
	}
	records, err := parseDecisions(resp.Body)
	if err != nil {
		return nil, nil, zerr.With(err, "product_code", code)
	}
	return records, resp, nil
}

// RevalidateDevice fetches the current record and recall count for id
// without reading or writing the cache.
func (c *Client) RevalidateDevice(ctx context.Context, id string) (*domain.DeviceRecord, error) {
	id, err := domain.ParseDeviceID(id)
	if err != nil {
		return nil, err
	}

	body, err := c.fetchNetwork(ctx, deviceQuery(id))
	if err != nil {
		return nil, zerr.With(err, "id", id)
	}
	records, err := parseDecisions(body)
	if err != nil {
		return nil, zerr.With(err, "id", id)
	}
	rec := findRecord(records, id)
	if rec == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrNotFound, "registry has no record"), "id", id)
	}

	body, err = c.fetchNetwork(ctx, recallQuery(id))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rec.RecallCount = 0
	case err != nil:
		return nil, zerr.With(err, "id", id)
	default:
		if rec.RecallCount, err = parseTotal(body); err != nil {
			return nil, zerr.With(err, "id", id)
		}
	}
	return rec, nil
}

func deviceQuery(id string) domain.Query {
	endpoint, field := domain.EndpointClearance, "k_number"
	if domain.DevicePrefix(id) == "P" {
		endpoint, field = domain.EndpointApproval, "pma_number"
	}
	return domain.Query{
		Endpoint: endpoint,
		Params:   map[string]string{"search": field + `:"` + id + `"`},
		Limit:    1,
		CacheKey: domain.RecordKey(id),
	}
}

func recallQuery(id string) domain.Query {
	return domain.Query{
		Endpoint: domain.EndpointRecall,
		Params:   map[string]string{"search": `k_numbers:"` + id + `"`},
		Limit:    1,
		CacheKey: domain.SafetyKey(id),
	}
}

func parseDecisions(body []byte) ([]domain.DeviceRecord, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrMalformedResponse, "response is not json"), "cause", err.Error())
	}

	records := make([]domain.DeviceRecord, 0, len(env.Results))
	for _, raw := range env.Results {
		var dto decisionDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrMalformedResponse, "unreadable result"), "cause", err.Error())
		}
		id := dto.KNumber
		if id == "" {
			id = dto.PMANumber
		}
		id = strings.ToUpper(strings.TrimSpace(id))
		if !domain.ValidDeviceID(id) {
			continue
		}
		name := firstNonEmpty(dto.DeviceName, dto.TradeName, dto.GenericName)
		records = append(records, domain.DeviceRecord{
			ID:           id,
			Applicant:    strings.TrimSpace(dto.Applicant),
			DecisionDate: parseDate(dto.DecisionDate),
			DecisionCode: strings.TrimSpace(dto.DecisionCode),
			ProductCode:  strings.ToUpper(strings.TrimSpace(dto.ProductCode)),
			DeviceName:   name,
			Description:  name,
		})
	}
	return records, nil
}

func parseTotal(body []byte) (int, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, zerr.With(zerr.Wrap(domain.ErrMalformedResponse, "response is not json"), "cause", err.Error())
	}
	if env.Meta == nil {
		return len(env.Results), nil
	}
	return env.Meta.Results.Total, nil
}

func findRecord(records []domain.DeviceRecord, id string) *domain.DeviceRecord {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
