// SPDX-License-Identifier: MIT

package extract

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thakurdishanttt/Project-DocuLens/internal/schema"
)

var leaseSchema = schema.Definition{
	Type: "object",
	Properties: map[string]schema.Property{
		"tenant_name":  {Type: "string", Description: "Full tenant name"},
		"monthly_rent": {Type: "number"},
	},
	Required: []string{"tenant_name"},
}

type fakeExtractServer struct {
	srv          *httptest.Server
	agentCreated atomic.Int32
	knownAgents  map[string]string // name -> id
}

func newFakeExtractServer(t *testing.T, data map[string]any) *fakeExtractServer {
	t.Helper()

	f := &fakeExtractServer{knownAgents: map[string]string{}}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/extraction/agents", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		name := r.URL.Query().Get("name")
		if id, ok := f.knownAgents[name]; ok {
			_ = json.NewEncoder(w).Encode([]map[string]string{{"id": id, "name": name}})
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{})
	})

	mux.HandleFunc("POST /api/extraction/agents", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name       string            `json:"name"`
			DataSchema schema.Definition `json:"data_schema"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.DataSchema.Properties)

		f.agentCreated.Add(1)
		f.knownAgents[req.Name] = "agent-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "agent-1", "name": req.Name})
	})

	mux.HandleFunc("POST /api/extraction/agents/agent-1/extract", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func TestExtract_CreatesAgentOnFirstUse(t *testing.T) {
	f := newFakeExtractServer(t, map[string]any{"tenant_name": "Jane Doe", "monthly_rent": 950.0})
	c := New(f.srv.URL, "test-key")

	data, err := c.Extract(t.Context(), "rental agreement", leaseSchema, "RENTAL AGREEMENT ...")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", data["tenant_name"])
	assert.Equal(t, int32(1), f.agentCreated.Load())

	// Second document of the same type re-uses the agent.
	_, err = c.Extract(t.Context(), "rental agreement", leaseSchema, "another lease")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.agentCreated.Load())
}

func TestExtract_NoData(t *testing.T) {
	f := newFakeExtractServer(t, map[string]any{})
	c := New(f.srv.URL, "test-key")

	_, err := c.Extract(t.Context(), "invoice", leaseSchema, "text")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestExtract_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "test-key")
	_, err := c.Extract(t.Context(), "invoice", leaseSchema, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestAgentName(t *testing.T) {
	a := AgentName("Rental Agreement", leaseSchema)
	b := AgentName("rental_agreement", leaseSchema)
	assert.Equal(t, a, b, "normalized types share an agent")
	assert.Contains(t, a, "doculens-rentalagreement-")

	changed := leaseSchema
	changed.Properties = map[string]schema.Property{"other": {Type: "string"}}
	assert.NotEqual(t, a, AgentName("Rental Agreement", changed), "schema change gets a new agent")

	assert.Contains(t, AgentName("", leaseSchema), "doculens-document-")
}
