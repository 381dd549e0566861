// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thakurdishanttt/Project-DocuLens/internal/config"
	"github.com/thakurdishanttt/Project-DocuLens/internal/fsutil"
	"github.com/thakurdishanttt/Project-DocuLens/internal/health"
	"github.com/thakurdishanttt/Project-DocuLens/internal/jobs"
	"github.com/thakurdishanttt/Project-DocuLens/internal/pipeline"
	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
	badgerstore "github.com/thakurdishanttt/Project-DocuLens/internal/store/badger"
)

type fakeStore struct {
	mu        sync.Mutex
	documents map[string]store.Document
	contracts map[string]store.Contract
	templates map[string]store.Template
	users     map[string]store.User
	orgs      map[string]store.Organization
	activeID  string
	audits    []store.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents: make(map[string]store.Document),
		contracts: make(map[string]store.Contract),
		templates: make(map[string]store.Template),
		users:     make(map[string]store.User),
		orgs:      make(map[string]store.Organization),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetDocument(_ context.Context, id string) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &doc, nil
}

func (f *fakeStore) SaveDocument(_ context.Context, doc *store.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[doc.ID] = *doc
	return nil
}

func (f *fakeStore) UserContracts(_ context.Context, orgID string) ([]store.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Contract
	for _, c := range f.contracts {
		if orgID == "" || c.OrgID == orgID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ContractByID(_ context.Context, id string) (*store.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) InsertContract(_ context.Context, c *store.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	f.contracts[c.ID] = *c
	return nil
}

func (f *fakeStore) UpdateContractFields(_ context.Context, documentType string, fields json.RawMessage, orgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.contracts {
		if c.DocumentType == documentType && (orgID == "" || c.OrgID == orgID) {
			c.Fields = fields
			c.Version++
			f.contracts[id] = c
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteContract(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contracts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.contracts, id)
	return nil
}

func (f *fakeStore) SystemContracts(context.Context) ([]store.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Template
	for _, t := range f.templates {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) SystemContractByID(_ context.Context, id string) (*store.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (f *fakeStore) ActiveContract(ctx context.Context) (*store.Template, error) {
	f.mu.Lock()
	id := f.activeID
	f.mu.Unlock()
	if id == "" {
		return nil, store.ErrNotFound
	}
	return f.SystemContractByID(ctx, id)
}

func (f *fakeStore) SelectActiveContract(ctx context.Context, id string) (*store.Template, error) {
	t, err := f.SystemContractByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.activeID = id
	f.mu.Unlock()
	return t, nil
}

func (f *fakeStore) EnsureUserOrganization(_ context.Context, email, orgName string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if orgName == "" {
		orgName = "default"
	}
	var orgID string
	for id, o := range f.orgs {
		if o.Name == orgName {
			orgID = id
		}
	}
	if orgID == "" {
		orgID = uuid.NewString()
		f.orgs[orgID] = store.Organization{ID: orgID, Name: orgName}
	}
	for id, u := range f.users {
		if u.Email == email {
			return id, orgID, nil
		}
	}
	userID := uuid.NewString()
	f.users[userID] = store.User{ID: userID, Email: email, OrgID: orgID}
	return userID, orgID, nil
}

func (f *fakeStore) AppendAudit(_ context.Context, entry store.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) Close() error { return nil }

type fakeProcessor struct {
	mu   sync.Mutex
	doc  *store.Document
	err  error
	last pipeline.Request
}

func (p *fakeProcessor) Process(_ context.Context, req pipeline.Request) (*store.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = req
	return p.doc, p.err
}

func newTestServer(t *testing.T, st store.Store, proc jobs.Processor, queue *jobs.Queue) *httptest.Server {
	t.Helper()

	cfg := config.Defaults()
	cfg.RateLimitRPM = 0 // no throttling in tests
	holder := config.NewHolder(cfg, nil, "")

	srv := New(Options{
		Holder:    holder,
		Store:     st,
		Processor: proc,
		Queue:     queue,
		Health:    health.NewManager("test"),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func newTestQueue(t *testing.T, proc jobs.Processor) *jobs.Queue {
	t.Helper()

	status, err := badgerstore.Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = status.Close() })

	spool, err := fsutil.NewSpool(t.TempDir())
	require.NoError(t, err)

	return jobs.NewQueue(proc, status, spool, jobs.Config{Workers: 1, Backlog: 4})
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestProcess_ReturnsDocument(t *testing.T) {
	proc := &fakeProcessor{doc: &store.Document{
		ID:            "doc-1",
		FileName:      "lease.pdf",
		DocumentType:  "rental agreement",
		Confidence:    0.92,
		Status:        store.StatusCompleted,
		ExtractedData: map[string]any{"tenant_name": "Ada"},
	}}
	ts := newTestServer(t, newFakeStore(), proc, nil)

	buf, contentType := multipartUpload(t, "lease.pdf", []byte("%PDF-1.7 content"), map[string]string{
		"email":    "ada@example.com",
		"org_name": "acme",
	})
	resp, err := http.Post(ts.URL+"/api/v1/documents/process", contentType, buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "doc-1", body["document_id"])
	assert.Equal(t, "rental agreement", body["document_type"])
	assert.Equal(t, "completed", body["status"])

	assert.Equal(t, "ada@example.com", proc.last.UserEmail)
	assert.Equal(t, "acme", proc.last.OrgName)
}

func TestProcess_UnclassifiedDocumentStillOK(t *testing.T) {
	proc := &fakeProcessor{doc: &store.Document{
		ID:           "doc-7",
		FileName:     "scribbles.pdf",
		DocumentType: "unknown",
		Status:       store.StatusProcessed,
		Error:        "could not classify document",
	}}
	ts := newTestServer(t, newFakeStore(), proc, nil)

	buf, contentType := multipartUpload(t, "scribbles.pdf", []byte("%PDF-1.7"), nil)
	resp, err := http.Post(ts.URL+"/api/v1/documents/process", contentType, buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "processed", body["status"])
	assert.Equal(t, "unknown", body["document_type"])
	assert.Equal(t, "could not classify document", body["error"])
}

func TestProcess_PipelineValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "empty", err: pipeline.ErrEmptyDocument, wantCode: "empty_file"},
		{name: "unsupported", err: pipeline.ErrUnsupportedFormat, wantCode: "unsupported_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, newFakeStore(), &fakeProcessor{err: tt.err}, nil)

			buf, contentType := multipartUpload(t, "x.bin", []byte("data"), nil)
			resp, err := http.Post(ts.URL+"/api/v1/documents/process", contentType, buf)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeBody(t, resp)["error"])
		})
	}
}

func TestProcess_MissingFileField(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeProcessor{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("email", "a@b.c"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/v1/documents/process", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_file", decodeBody(t, resp)["error"])
}

func TestProcessAsync_EnqueuesAndReportsStatus(t *testing.T) {
	queue := newTestQueue(t, &fakeProcessor{doc: &store.Document{ID: "doc-9", Status: store.StatusCompleted}})
	ts := newTestServer(t, newFakeStore(), &fakeProcessor{}, queue)

	buf, contentType := multipartUpload(t, "scan.pdf", []byte("%PDF-1.7"), nil)
	resp, err := http.Post(ts.URL+"/api/v1/documents/process/async", contentType, buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	processingID, _ := body["processing_id"].(string)
	require.NotEmpty(t, processingID)
	assert.Equal(t, "pending", body["status"])

	// Workers are not running, the job must stay pending.
	resp, err = http.Get(ts.URL + "/api/v1/documents/status/" + processingID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", decodeBody(t, resp)["status"])
}

func TestStatus_FallsBackToDocumentStore(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.SaveDocument(t.Context(), &store.Document{ID: "doc-2", Status: store.StatusCompleted}))
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/documents/status/doc-2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decodeBody(t, resp)["status"])
}

func TestStatus_Unknown(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/documents/status/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestData_StatusGate(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.SaveDocument(t.Context(), &store.Document{ID: "doc-busy", Status: store.StatusProcessing}))
	require.NoError(t, st.SaveDocument(t.Context(), &store.Document{
		ID:            "doc-done",
		DocumentType:  "invoice",
		Confidence:    0.8,
		Status:        store.StatusCompleted,
		ExtractedData: map[string]any{"total": "42.00"},
	}))
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/documents/data/doc-busy")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "document_not_ready", decodeBody(t, resp)["error"])

	resp, err = http.Get(ts.URL + "/api/v1/documents/data/doc-done")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "invoice", body["document_type"])
	data, ok := body["extracted_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "42.00", data["total"])

	resp, err = http.Get(ts.URL + "/api/v1/documents/data/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestContracts_SelectAndActive(t *testing.T) {
	st := newFakeStore()
	st.templates["tpl-1"] = store.Template{
		ID:           "tpl-1",
		Name:         "Rental Agreement",
		DocumentType: "rental agreement",
		Fields:       json.RawMessage(`{"type":"object","properties":{"tenant_name":{"type":"string"}}}`),
	}
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/contracts/active")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/api/v1/contracts/select/tpl-1", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "selected", decodeBody(t, resp)["status"])

	resp, err = http.Get(ts.URL + "/api/v1/contracts/active")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tpl-1", decodeBody(t, resp)["id"])

	resp, err = http.Post(ts.URL+"/api/v1/contracts/select/missing", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/v1/contracts/predefined")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeBody(t, resp)["count"])
}

func TestTemplates_ListStripsFields(t *testing.T) {
	st := newFakeStore()
	st.templates["tpl-1"] = store.Template{
		ID:     "tpl-1",
		Name:   "Invoice",
		Fields: json.RawMessage(`{"type":"object","properties":{"total":{"type":"string"}}}`),
	}
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/contract-templates/templates")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	templates, ok := body["templates"].([]any)
	require.True(t, ok)
	require.Len(t, templates, 1)
	entry, ok := templates[0].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, entry, "fields")

	resp, err = http.Get(ts.URL + "/api/v1/contract-templates/templates/tpl-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp), "fields")

	resp, err = http.Get(ts.URL + "/api/v1/contract-templates/templates/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCopyTemplate(t *testing.T) {
	st := newFakeStore()
	st.templates["tpl-1"] = store.Template{
		ID:           "tpl-1",
		Name:         "Rental Agreement",
		DocumentType: "rental agreement",
		Fields:       json.RawMessage(`{"type":"object","properties":{"tenant_name":{"type":"string","description":"Tenant"}}}`),
	}
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	payload := `{
		"template_id": "tpl-1",
		"user_id": "ada@example.com",
		"org_name": "acme",
		"name": "Acme Lease",
		"customizations": {"tenant_name": {"description": "Primary tenant full name"}}
	}`
	resp, err := http.Post(ts.URL+"/api/v1/contract-templates/contracts/copy-template", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Acme Lease", body["name"])
	assert.Equal(t, "rental agreement", body["document_type"])
	assert.Equal(t, "tpl-1", body["system_contract_id"])
	assert.NotEmpty(t, body["user_id"])
	assert.NotEmpty(t, body["org_id"])

	contractID, _ := body["id"].(string)
	contract, err := st.ContractByID(t.Context(), contractID)
	require.NoError(t, err)
	assert.Contains(t, string(contract.Fields), "Primary tenant full name")
}

func TestCopyTemplate_Errors(t *testing.T) {
	st := newFakeStore()
	st.templates["tpl-1"] = store.Template{
		ID:     "tpl-1",
		Name:   "Invoice",
		Fields: json.RawMessage(`{"type":"object","properties":{"total":{"type":"string"}}}`),
	}
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	post := func(payload string) *http.Response {
		resp, err := http.Post(ts.URL+"/api/v1/contract-templates/contracts/copy-template", "application/json", bytes.NewBufferString(payload))
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"template_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = post(`{"template_id":"tpl-1","user_id":"not-a-uuid"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_user_id", decodeBody(t, resp)["error"])

	resp = post(`{"user_id":"ada@example.com"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_template_id", decodeBody(t, resp)["error"])
}

func TestUploadContract(t *testing.T) {
	st := newFakeStore()
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	payload := `{
		"name": "Utility Bill",
		"fields": {"type":"object","properties":{"amount_due":{"type":"string"},"due_date":{"type":"string"}}}
	}`
	resp, err := http.Post(ts.URL+"/api/v1/contract-templates/contracts/upload", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Utility Bill", body["name"])
	assert.Equal(t, "utilitybill", body["document_type"])

	// Listing must not leak the field schemas.
	resp, err = http.Get(ts.URL + "/api/v1/contract-templates/contracts")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody(t, resp)
	contracts, ok := list["contracts"].([]any)
	require.True(t, ok)
	require.Len(t, contracts, 1)
	entry, ok := contracts[0].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, entry, "fields")
}

func TestUploadContract_InvalidSchema(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeProcessor{}, nil)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "no properties", payload: `{"name":"Bad","fields":{"type":"object","properties":{}}}`},
		{name: "property without type", payload: `{"name":"Bad","fields":{"type":"object","properties":{"x":{"description":"no type"}}}}`},
		{name: "missing fields", payload: `{"name":"Bad"}`},
		{name: "missing name", payload: `{"fields":{"type":"object","properties":{"x":{"type":"string"}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/contract-templates/contracts/upload", "application/json", bytes.NewBufferString(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestUpdateContract(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.InsertContract(t.Context(), &store.Contract{
		ID:           "c-1",
		Name:         "Lease",
		DocumentType: "lease",
		OrgID:        "org-1",
		Fields:       json.RawMessage(`{"type":"object","properties":{"x":{"type":"string"}}}`),
	}))
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	payload := `{"fields":{"type":"object","properties":{"tenant_name":{"type":"string"},"monthly_rent":{"type":"number"}}}}`
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/contract-templates/contracts/c-1", bytes.NewBufferString(payload))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "updated", body["status"])
	assert.Equal(t, "lease", body["document_type"])

	updated, err := st.ContractByID(t.Context(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Contains(t, string(updated.Fields), "tenant_name")
}

func TestUpdateContract_Errors(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.InsertContract(t.Context(), &store.Contract{
		ID:           "c-1",
		Name:         "Lease",
		DocumentType: "lease",
		Fields:       json.RawMessage(`{"type":"object","properties":{"x":{"type":"string"}}}`),
	}))
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	tests := []struct {
		name     string
		id       string
		payload  string
		wantCode int
	}{
		{name: "unknown contract", id: "nope", payload: `{"fields":{"type":"object","properties":{"x":{"type":"string"}}}}`, wantCode: http.StatusNotFound},
		{name: "missing fields", id: "c-1", payload: `{}`, wantCode: http.StatusBadRequest},
		{name: "invalid schema", id: "c-1", payload: `{"fields":{"type":"object","properties":{}}}`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/contract-templates/contracts/"+tt.id, bytes.NewBufferString(tt.payload))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestDeleteContract(t *testing.T) {
	st := newFakeStore()
	require.NoError(t, st.InsertContract(t.Context(), &store.Contract{
		ID:           "c-1",
		Name:         "Lease",
		DocumentType: "lease",
		Fields:       json.RawMessage(`{"type":"object","properties":{"x":{"type":"string"}}}`),
	}))
	ts := newTestServer(t, st, &fakeProcessor{}, nil)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/contract-templates/contracts/c-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "deleted", decodeBody(t, resp)["status"])

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestMetricsExposedOnMainListener(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
