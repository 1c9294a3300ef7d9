package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler(stubPinger{}, "fulfillment", "1.0.0", nil)
	assert.NotNil(t, h)
	assert.NotNil(t, h.logger)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantHealth string
		wantDB     string
	}{
		{"healthy", nil, http.StatusOK, "ok", "ok"},
		{"database down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "degraded", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(stubPinger{err: tt.pingErr}, "fulfillment", "1.0.0", nil)
			c, w := newTestContext()

			h.Health(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp struct {
				Success bool           `json:"success"`
				Data    HealthResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.pingErr == nil, resp.Success)
			assert.Equal(t, tt.wantHealth, resp.Data.Status)
			assert.Equal(t, tt.wantDB, resp.Data.Database)
			assert.Equal(t, "fulfillment", resp.Data.Name)
			assert.NotEmpty(t, resp.Data.GoVersion)
		})
	}
}
