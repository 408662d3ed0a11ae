package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Service is a campus service listing. BasePrice stays a string because
// the backend serializes decimals as quoted strings.
type Service struct {
	ID                 int64  `json:"id"`
	VendorName         string `json:"vendor_name"`
	Name               string `json:"service_name"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	ServiceType        string `json:"service_type"`
	BasePrice          string `json:"base_price"`
	Available          bool   `json:"is_available"`
	AvailabilityStatus string `json:"availability_status"`
	Location           string `json:"location"`
}

// Services lists available campus services. The endpoint returns either a
// paginated envelope or a bare array depending on backend configuration,
// both are accepted.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/services/", nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Count   int       `json:"count"`
		Results []Service `json:"results"`
	}
	if err := json.Unmarshal(body, &page); err == nil && page.Results != nil {
		return page.Results, nil
	}

	var services []Service
	if err := json.Unmarshal(body, &services); err != nil {
		return nil, fmt.Errorf("failed to parse services response: %w", err)
	}
	return services, nil
}
