package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nratax/nratax-api/internal/engine"
	"github.com/nratax/nratax-api/internal/logger"
	"github.com/nratax/nratax-api/internal/rules"
	"github.com/nratax/nratax-api/internal/services"
	"github.com/nratax/nratax-api/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger("test")
}

// memoryStore backs the handlers with an in-memory computation log
type memoryStore struct {
	computations []*engine.ComputationResult
}

func (m *memoryStore) InsertComputation(_ context.Context, result *engine.ComputationResult) error {
	m.computations = append(m.computations, result)
	return nil
}

func (m *memoryStore) GetComputation(_ context.Context, id uuid.UUID) (*engine.ComputationResult, error) {
	for _, r := range m.computations {
		if r.ComputationID == id {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryStore) ListComputations(_ context.Context, taxpayerID uuid.UUID) ([]*engine.ComputationResult, error) {
	var out []*engine.ComputationResult
	for _, r := range m.computations {
		if r.TaxpayerID == taxpayerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *memoryStore) {
	t.Helper()

	repo, err := rules.DefaultRepository()
	require.NoError(t, err)

	st := &memoryStore{}
	common := NewCommonServices(services.NewComputeService(repo, st, logger.Log))

	computationHandler := NewComputationHandler(common)
	rulesetHandler := NewRulesetHandler(common)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/computations", computationHandler.Compute)
	v1.GET("/computations/:computation_id", computationHandler.GetComputation)
	v1.GET("/taxpayers/:taxpayer_id/computations", computationHandler.ListTaxpayerComputations)
	v1.GET("/rulesets", rulesetHandler.ListRulesets)
	v1.GET("/rulesets/:version", rulesetHandler.GetRuleset)

	return router, st
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func computeRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"ruleset_version": "v2024.1",
		"taxpayer": map[string]interface{}{
			"taxpayer_id":       "9b6d2f40-1c3a-4e8f-9d27-55aa01c2e6b1",
			"tax_year":          2024,
			"residence_country": "BR",
			"visa_class":        "H1B",
			"days_current_year": 120,
		},
		"items": []map[string]interface{}{
			{
				"item_id":       "6a0c8e11-32f4-4a7b-88d9-0c4f6b2e91aa",
				"type":          "wage",
				"amount_cents":  6_000_000,
				"currency":      "USD",
				"payer_country": "US",
			},
		},
	}
}

func TestComputeEndpoint(t *testing.T) {
	router, st := setupRouter(t)

	w := performRequest(router, http.MethodPost, "/api/v1/computations", computeRequestBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result engine.ComputationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.NotEqual(t, uuid.Nil, result.ComputationID)
	assert.Equal(t, "v2024.1", result.RulesetVersion)
	assert.Equal(t, engine.NonresidentAlien, result.Residency.Status)
	assert.NotEmpty(t, result.Trace.Steps)
	assert.Len(t, st.computations, 1)
}

func TestComputeEndpointRejectsBadInput(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name       string
		mutate     func(body map[string]interface{})
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing ruleset version",
			mutate:     func(body map[string]interface{}) { delete(body, "ruleset_version") },
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "unknown ruleset version",
			mutate:     func(body map[string]interface{}) { body["ruleset_version"] = "v1999.1" },
			wantStatus: http.StatusBadRequest,
			wantError:  "Unknown ruleset version",
		},
		{
			name: "invalid snapshot",
			mutate: func(body map[string]interface{}) {
				body["taxpayer"].(map[string]interface{})["tax_year"] = 0
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid taxpayer snapshot",
		},
		{
			name: "negative amount",
			mutate: func(body map[string]interface{}) {
				body["items"].([]map[string]interface{})[0]["amount_cents"] = -1
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid income item",
		},
		{
			name: "unsupported income type",
			mutate: func(body map[string]interface{}) {
				body["items"].([]map[string]interface{})[0]["type"] = "crypto_airdrop"
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Unsupported income type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := computeRequestBody()
			tt.mutate(body)

			w := performRequest(router, http.MethodPost, "/api/v1/computations", body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestGetComputationEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := performRequest(router, http.MethodPost, "/api/v1/computations", computeRequestBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var created engine.ComputationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("found", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/v1/computations/"+created.ComputationID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var loaded engine.ComputationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
		assert.Equal(t, created.ComputationID, loaded.ComputationID)
	})

	t.Run("not found", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/v1/computations/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/v1/computations/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListTaxpayerComputationsEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	for i := 0; i < 2; i++ {
		w := performRequest(router, http.MethodPost, "/api/v1/computations", computeRequestBody())
		require.Equal(t, http.StatusCreated, w.Code)
	}

	taxpayerID := computeRequestBody()["taxpayer"].(map[string]interface{})["taxpayer_id"].(string)
	w := performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/taxpayers/%s/computations", taxpayerID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Object string                      `json:"object"`
		Data   []*engine.ComputationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "list", resp.Object)
	assert.Len(t, resp.Data, 2)

	t.Run("unknown taxpayer gets an empty list", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/taxpayers/%s/computations", uuid.NewString()), nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotNil(t, resp.Data)
		assert.Empty(t, resp.Data)
	})
}

func TestRulesetEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	t.Run("list versions", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/v1/rulesets", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"v2024.1"}, resp.Data)
	})

	t.Run("get ruleset", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/v1/rulesets/v2024.1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var rs rules.Ruleset
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rs))
		assert.Equal(t, 2024, rs.TaxYear)
		assert.NotEmpty(t, rs.FederalBrackets)
	})

	t.Run("unknown version is 404", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/api/v1/rulesets/v1900.0", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
