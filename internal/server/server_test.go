package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/internal/forecast"
	"github.com/iwvelando/saas-forecast/internal/store"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/testutil"
	"go.uber.org/zap"
)

type projectionBody struct {
	Result     forecast.Result `json:"result"`
	CSV        string          `json:"csv"`
	Duration   string          `json:"duration"`
	ConfigYAML string          `json:"configYaml"`
}

func newTestHandler() http.Handler {
	return NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test", store.NewMemoryStore())
}

func TestHandleUploadSuccess(t *testing.T) {
	handler := newTestHandler()

	data, err := os.ReadFile(filepath.Join("..", "..", "test", "basic_config.yaml"))
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}

	rr := performUpload(t, handler, string(data), "basic_config.yaml")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp projectionBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Result.MonthlyData) != 12 {
		t.Fatalf("expected 12 months, got %d", len(resp.Result.MonthlyData))
	}
	if !strings.HasPrefix(resp.CSV, "month,") {
		t.Fatalf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if !strings.Contains(resp.ConfigYAML, "subscription:") {
		t.Fatalf("expected config YAML in response, got %q", resp.ConfigYAML)
	}
}

func TestHandleUploadTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 64, "", nil)

	rr := performUpload(t, handler, strings.Repeat("a", 128), "config.yaml")
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandleUploadMissingFile(t *testing.T) {
	handler := newTestHandler()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/projection/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleUploadInvalidYAML(t *testing.T) {
	rr := performUpload(t, newTestHandler(), "mode: [unclosed", "bad.yaml")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleProjectionBareConfig(t *testing.T) {
	rr := performJSON(t, newTestHandler(), http.MethodPost, "/api/projection", testutil.EnhancedConfig())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp projectionBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.Mode != constants.ModeEnhanced {
		t.Fatalf("expected enhanced mode, got %q", resp.Result.Mode)
	}
	if resp.Result.MarketingAnalytics == nil {
		t.Fatal("expected marketing analytics")
	}
}

func TestHandleProjectionWrappedWithOptimizer(t *testing.T) {
	conf := testutil.BasicConfig()
	conf.Optimizer = &config.OptimizerConfig{
		Field: config.OptimizerFieldStartingCash,
		Min:   testutil.Float(-50000),
		Max:   testutil.Float(50000),
	}

	payload := map[string]interface{}{
		"config":  conf,
		"options": map[string]interface{}{"optimize": "true"},
	}
	rr := performJSON(t, newTestHandler(), http.MethodPost, "/api/projection", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp projectionBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Result.Optimizations) != 1 {
		t.Fatalf("expected one optimization summary, got %d", len(resp.Result.Optimizations))
	}
	opt := resp.Result.Optimizations[0]
	if opt.Field != config.OptimizerFieldStartingCash || !opt.Converged {
		t.Fatalf("unexpected optimization summary %+v", opt)
	}
	if resp.Result.Summary.MinimumCash < 0 {
		t.Fatalf("optimized projection breaks the floor: %.2f", resp.Result.Summary.MinimumCash)
	}
}

func TestHandleProjectionFillsStartDate(t *testing.T) {
	conf := testutil.BasicConfig()
	conf.StartDate = ""

	rr := performJSON(t, newTestHandler(), http.MethodPost, "/api/projection", conf)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp projectionBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Result.StartDate) != len(constants.DateTimeLayout) {
		t.Fatalf("expected a filled start date, got %q", resp.Result.StartDate)
	}
}

func TestHandleProjectionErrors(t *testing.T) {
	invalid := testutil.BasicConfig()
	invalid.Subscription.PricePerUser = 0

	unknownMode := testutil.BasicConfig()
	unknownMode.Mode = "quantum"

	unknownTier := testutil.HybridConfig()
	unknownTier.Hybrid.Tier = "platinum"

	tests := []struct {
		name    string
		payload interface{}
		status  int
	}{
		{name: "validation", payload: invalid, status: http.StatusUnprocessableEntity},
		{name: "unknown mode", payload: unknownMode, status: http.StatusBadRequest},
		{name: "unknown tier", payload: unknownTier, status: http.StatusBadRequest},
		{name: "non-object config", payload: map[string]interface{}{"config": 5}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, newTestHandler(), http.MethodPost, "/api/projection", tt.payload)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}

	rr := performJSON(t, newTestHandler(), http.MethodPost, "/api/projection", invalid)
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Problems) == 0 {
		t.Fatal("expected validation problems in response")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/projection", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed JSON, got %d", rr.Code)
	}
}

func TestHandleProjectionMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/projection", nil)
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleValidate(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPost, "/api/validate", testutil.BasicConfig())
	var resp validationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rr.Code != http.StatusOK || !resp.Valid || len(resp.Problems) != 0 {
		t.Fatalf("expected a valid configuration, got %d %+v", rr.Code, resp)
	}

	invalid := testutil.BasicConfig()
	invalid.Subscription = nil
	rr = performJSON(t, handler, http.MethodPost, "/api/validate", invalid)
	resp = validationResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Valid || len(resp.Problems) == 0 {
		t.Fatalf("expected problems, got %+v", resp)
	}
}

func TestHandleCompare(t *testing.T) {
	handler := newTestHandler()

	payload := map[string]interface{}{
		"configs": []config.Configuration{testutil.BasicConfig(), testutil.EnhancedConfig()},
	}
	rr := performJSON(t, handler, http.MethodPost, "/api/projection/compare", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Results []forecast.Result `json:"results"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 2 || resp.Results[0].Mode != constants.ModeBasic || resp.Results[1].Mode != constants.ModeEnhanced {
		t.Fatalf("expected basic then enhanced results, got %d", len(resp.Results))
	}

	payload = map[string]interface{}{
		"configs":      []config.Configuration{testutil.HybridConfig()},
		"allScenarios": true,
	}
	rr = performJSON(t, handler, http.MethodPost, "/api/projection/compare", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp.Results = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != len(config.Scenarios) {
		t.Fatalf("expected %d scenario results, got %d", len(config.Scenarios), len(resp.Results))
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/projection/compare", map[string]interface{}{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without configs, got %d", rr.Code)
	}
}

func TestHandleConfigExport(t *testing.T) {
	payload := map[string]interface{}{
		"zeta":             "last",
		"output":           map[string]interface{}{"format": "csv"},
		"subscription":     map[string]interface{}{"pricePerUser": 50},
		"name":             "Export",
		"mode":             "basic",
		"projectionMonths": 12,
	}

	rr := performJSON(t, newTestHandler(), http.MethodPost, "/api/editor/export", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	yamlText := resp["configYaml"]

	order := []string{"name:", "mode:", "projectionMonths:", "subscription:", "output:", "zeta:"}
	last := -1
	for _, key := range order {
		idx := strings.Index(yamlText, key)
		if idx < 0 {
			t.Fatalf("expected %s in exported YAML:\n%s", key, yamlText)
		}
		if idx < last {
			t.Fatalf("expected %s after previous keys in exported YAML:\n%s", key, yamlText)
		}
		last = idx
	}
}

func TestConfigStoreEndpoints(t *testing.T) {
	handler := newTestHandler()

	rr := performJSON(t, handler, http.MethodPut, "/api/configs/alice/plan", testutil.BasicConfig())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 saving, got %d: %s", rr.Code, rr.Body.String())
	}
	var saved store.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if saved.ID == "" || saved.Owner != "alice" || saved.Name != "plan" {
		t.Fatalf("unexpected record %+v", saved)
	}

	invalid := testutil.BasicConfig()
	invalid.StartingCash = nil
	rr = performJSON(t, handler, http.MethodPut, "/api/configs/alice/broken", invalid)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 saving invalid config, got %d", rr.Code)
	}

	rr = perform(handler, http.MethodGet, "/api/configs/alice/plan")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 loading, got %d", rr.Code)
	}

	rr = perform(handler, http.MethodGet, "/api/configs/alice")
	var list struct {
		Configs []store.Record `json:"configs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list.Configs) != 1 {
		t.Fatalf("expected one saved configuration, got %d", len(list.Configs))
	}

	rr = perform(handler, http.MethodPost, "/api/configs/alice/plan/projection")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 projecting, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp projectionBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Result.MonthlyData) != 12 {
		t.Fatalf("expected 12 months, got %d", len(resp.Result.MonthlyData))
	}

	rr = perform(handler, http.MethodDelete, "/api/configs/alice/plan")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 deleting, got %d", rr.Code)
	}

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/configs/alice/plan"},
		{http.MethodDelete, "/api/configs/alice/plan"},
		{http.MethodPost, "/api/configs/alice/plan/projection"},
	} {
		if rr := perform(handler, tc.method, tc.path); rr.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected status 404, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestVersionAndHealth(t *testing.T) {
	handler := NewHandler(nil, 0, "  ", nil)

	rr := perform(handler, http.MethodGet, "/api/version")
	var version map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &version); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if version["version"] != "dev" {
		t.Fatalf("expected default version dev, got %q", version["version"])
	}

	rr = perform(handler, http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		value interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{" 1 ", true},
		{"nope", false},
		{"", false},
		{1.0, true},
		{0.0, false},
		{json.Number("2"), true},
		{nil, false},
	}
	for _, tt := range tests {
		if got := coerceBool(tt.value); got != tt.want {
			t.Errorf("coerceBool(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/projection/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performJSON(t *testing.T, handler http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func perform(handler http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
