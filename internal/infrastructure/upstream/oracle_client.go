package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

type oracleResponse struct {
	Found    bool   `json:"found"`
	IsActive bool   `json:"is_active"`
	Status   string `json:"status"`
}

// OracleClient asks the dealer registry whether a customer may order
type OracleClient struct {
	url    string
	client *http.Client
}

// NewOracleClient creates a client with the given request timeout
func NewOracleClient(url string, timeout time.Duration) *OracleClient {
	return &OracleClient{
		url:    url,
		client: newHTTPClient(timeout),
	}
}

// Lookup queries the oracle by chat user id and phone digits
func (c *OracleClient) Lookup(ctx context.Context, userID int64, phoneDigits string) (fulfillment.DealerVerdict, error) {
	body, err := getJSON(ctx, c.client, c.url, url.Values{
		"id":    {strconv.FormatInt(userID, 10)},
		"phone": {phoneDigits},
	})
	if err != nil {
		return fulfillment.DealerVerdict{}, err
	}

	var resp oracleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fulfillment.DealerVerdict{}, fmt.Errorf("%w: malformed oracle response: %v", ErrUnavailable, err)
	}
	status := resp.Status
	if status == "" {
		status = fulfillment.VerdictStatusUnknown
	}
	return fulfillment.DealerVerdict{
		IsDealer: resp.Found,
		IsActive: resp.IsActive,
		Status:   status,
	}, nil
}
