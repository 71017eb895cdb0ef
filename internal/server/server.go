package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/internal/forecast"
	"github.com/iwvelando/saas-forecast/internal/optimizer"
	"github.com/iwvelando/saas-forecast/internal/store"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/optimization"
	"github.com/iwvelando/saas-forecast/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	configs       store.ConfigStore
	now           func() time.Time
}

type projectionOptions struct {
	Optimize bool
}

// NewHandler constructs the HTTP handler that serves the projection API. A nil
// store keeps saved configurations in memory.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, configs store.ConfigStore) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	if configs == nil {
		configs = store.NewMemoryStore()
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		configs:       configs,
		now:           time.Now,
	}

	mux := http.NewServeMux()

	// Projection from a JSON configuration, optionally wrapped with options
	mux.HandleFunc("POST /api/projection", h.handleProjection)

	// Projection from an uploaded YAML file
	mux.HandleFunc("POST /api/projection/upload", h.handleUpload)

	// Several projections side by side
	mux.HandleFunc("POST /api/projection/compare", h.handleCompare)

	mux.HandleFunc("POST /api/validate", h.handleValidate)

	// Config serialization endpoint for editor downloads
	mux.HandleFunc("POST /api/editor/export", h.handleConfigExport)

	// Saved configurations
	mux.HandleFunc("GET /api/configs/{owner}", h.handleListConfigs)
	mux.HandleFunc("GET /api/configs/{owner}/{name}", h.handleGetConfig)
	mux.HandleFunc("PUT /api/configs/{owner}/{name}", h.handleSaveConfig)
	mux.HandleFunc("DELETE /api/configs/{owner}/{name}", h.handleDeleteConfig)
	mux.HandleFunc("POST /api/configs/{owner}/{name}/projection", h.handleStoredProjection)

	mux.HandleFunc("GET /api/version", h.handleVersion)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	return mux
}

type projectionResponse struct {
	Result     *forecast.Result `json:"result"`
	CSV        string           `json:"csv"`
	Duration   string           `json:"duration"`
	ConfigYAML string           `json:"configYaml,omitempty"`
}

type validationResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
	Warnings []string `json:"warnings"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func (h *handler) handleProjection(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProjection"
	start := time.Now()

	conf, opts, err := h.decodeProjectionRequest(w, r)
	if err != nil {
		h.respondError(w, statusForDecode(err), err.Error(), op)
		return
	}

	h.runProjection(w, conf, opts, start, op)
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpload"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	conf, err := config.LoadConfigurationFromReader(&buf, "yaml")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err), op)
		return
	}

	opts := projectionOptions{Optimize: coerceBool(r.FormValue("optimize"))}
	h.runProjection(w, *conf, opts, start, op)
}

type compareRequest struct {
	Configs      []json.RawMessage `json:"configs"`
	AllScenarios bool              `json:"allScenarios"`
}

func (h *handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCompare"
	start := time.Now()

	var req compareRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, statusForDecode(err), err.Error(), op)
		return
	}
	if len(req.Configs) == 0 {
		h.respondError(w, http.StatusBadRequest, "at least one configuration is required", op)
		return
	}

	confs := make([]config.Configuration, 0, len(req.Configs))
	for i, raw := range req.Configs {
		conf, err := decodeConfiguration(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("configuration %d: %v", i+1, err), op)
			return
		}
		if err := h.fillStartDate(&conf); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		if req.AllScenarios {
			if variants := forecast.ScenarioVariants(conf); len(variants) > 0 {
				confs = append(confs, variants...)
				continue
			}
		}
		confs = append(confs, conf)
	}

	results, err := forecast.CompareScenarios(r.Context(), h.logger, confs)
	if err != nil {
		h.respondProjectionError(w, err, op)
		return
	}

	h.logger.Info("comparison computed",
		zap.String("op", op),
		zap.Int("projections", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":  results,
		"duration": time.Since(start).String(),
	})
}

func (h *handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValidate"

	conf, _, err := h.decodeProjectionRequest(w, r)
	if err != nil {
		h.respondError(w, statusForDecode(err), err.Error(), op)
		return
	}

	problems := conf.Validate()
	resp := validationResponse{
		Valid:    len(problems) == 0,
		Problems: append([]string{}, problems...),
		Warnings: append([]string{}, conf.Warnings()...),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"

	var payload map[string]interface{}
	if err := h.decodeJSON(w, r, &payload); err != nil {
		h.respondError(w, statusForDecode(err), err.Error(), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

func (h *handler) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListConfigs"

	records, err := h.configs.List(r.Context(), r.PathValue("owner"))
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"configs": records})
}

func (h *handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetConfig"

	rec, err := h.configs.Get(r.Context(), r.PathValue("owner"), r.PathValue("name"))
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *handler) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSaveConfig"

	conf, _, err := h.decodeProjectionRequest(w, r)
	if err != nil {
		h.respondError(w, statusForDecode(err), err.Error(), op)
		return
	}
	if problems := conf.Validate(); len(problems) > 0 {
		h.respondValidation(w, problems, op)
		return
	}

	rec, err := h.configs.Save(r.Context(), r.PathValue("owner"), r.PathValue("name"), conf)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}

	h.logger.Info("configuration saved",
		zap.String("op", op),
		zap.String("owner", rec.Owner),
		zap.String("name", rec.Name),
		zap.String("id", rec.ID),
	)
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *handler) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteConfig"

	if err := h.configs.Delete(r.Context(), r.PathValue("owner"), r.PathValue("name")); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleStoredProjection(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleStoredProjection"
	start := time.Now()

	rec, err := h.configs.Get(r.Context(), r.PathValue("owner"), r.PathValue("name"))
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}

	opts := projectionOptions{Optimize: coerceBool(r.URL.Query().Get("optimize"))}
	h.runProjection(w, rec.Config, opts, start, op)
}

func (h *handler) runProjection(w http.ResponseWriter, conf config.Configuration, opts projectionOptions, start time.Time, op string) {
	if err := h.fillStartDate(&conf); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	var optimizationResult *optimization.Summary
	if opts.Optimize && conf.Optimizer != nil {
		runner, err := optimizer.NewRunner(h.logger, &conf)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to initialize optimizer: %v", err), op)
			return
		}

		optimizationResult, err = runner.Run()
		if err != nil {
			if forecast.IsValidationError(err) {
				h.respondProjectionError(w, err, op)
				return
			}
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("optimizer execution failed: %v", err), op)
			return
		}
	}

	result, err := forecast.GetForecast(h.logger, conf)
	if err != nil {
		h.respondProjectionError(w, err, op)
		return
	}
	if optimizationResult != nil {
		result.Optimizations = append(result.Optimizations, *optimizationResult)
	}

	var csvBuf bytes.Buffer
	if err := output.WriteMonthlyCSV(&csvBuf, result.MonthlyData); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}

	configYAML, err := yaml.Marshal(conf)
	if err != nil {
		h.logger.Warn("failed to render configuration YAML",
			zap.String("op", op),
			zap.Error(err),
		)
	}

	elapsed := time.Since(start)
	response := projectionResponse{
		Result:     result,
		CSV:        csvBuf.String(),
		Duration:   elapsed.String(),
		ConfigYAML: string(configYAML),
	}

	h.logger.Info("projection computed",
		zap.String("op", op),
		zap.String("mode", result.Mode),
		zap.Int("months", len(result.MonthlyData)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) fillStartDate(conf *config.Configuration) error {
	if strings.TrimSpace(conf.StartDate) != "" {
		return nil
	}
	return conf.ParseStartDateWithFixedTime(h.now())
}

// decodeProjectionRequest accepts either a bare configuration or an object of
// the form {"config": {...}, "options": {...}}.
func (h *handler) decodeProjectionRequest(w http.ResponseWriter, r *http.Request) (config.Configuration, projectionOptions, error) {
	var payload map[string]json.RawMessage
	if err := h.decodeJSON(w, r, &payload); err != nil {
		return config.Configuration{}, projectionOptions{}, err
	}

	raw, wrapped := payload["config"]
	if !wrapped {
		body, err := json.Marshal(payload)
		if err != nil {
			return config.Configuration{}, projectionOptions{}, err
		}
		raw = body
	}

	conf, err := decodeConfiguration(raw)
	if err != nil {
		return config.Configuration{}, projectionOptions{}, err
	}

	opts := projectionOptions{}
	if rawOptions, ok := payload["options"]; ok && wrapped {
		var optsMap map[string]interface{}
		if err := json.Unmarshal(rawOptions, &optsMap); err != nil {
			return config.Configuration{}, projectionOptions{}, fmt.Errorf("invalid options payload: expected object")
		}
		opts.Optimize = coerceBool(optsMap["optimize"])
	}
	return conf, opts, nil
}

func decodeConfiguration(raw json.RawMessage) (config.Configuration, error) {
	var conf config.Configuration
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return conf, fmt.Errorf("invalid config payload: expected object")
	}
	if err := json.Unmarshal(raw, &conf); err != nil {
		return conf, fmt.Errorf("failed to decode configuration: %w", err)
	}
	conf.ApplyDefaults()
	return conf, nil
}

var errTooLarge = errors.New("request body too large")

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: limit is %d bytes", errTooLarge, h.maxUploadSize)
		}
		return fmt.Errorf("failed to decode request: %w", err)
	}
	return nil
}

func statusForDecode(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// leadingConfigKeys fixes the order of top-level keys in exported YAML; any
// other keys follow alphabetically.
var leadingConfigKeys = []string{
	"name", "mode", "startDate", "projectionMonths", "startingCash",
	"monthlyFixedCosts", "capitalPurchases", "subscription", "marketing",
	"hybrid", "optimizer", "logging", "output",
}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range leadingConfigKeys {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) respondProjectionError(w http.ResponseWriter, err error, op string) {
	var validationErr *forecast.ValidationError
	if errors.As(err, &validationErr) {
		h.respondValidation(w, validationErr.Problems, op)
		return
	}
	h.respondError(w, http.StatusBadRequest, err.Error(), op)
}

func (h *handler) respondValidation(w http.ResponseWriter, problems []string, op string) {
	h.logger.Warn("configuration rejected",
		zap.String("op", op),
		zap.Strings("problems", problems),
	)
	h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error:    "invalid configuration",
		Problems: problems,
	})
}

func (h *handler) respondStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), op)
	case errors.Is(err, store.ErrInvalidKey):
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
	default:
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
	}
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case json.Number:
		if parsed, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return parsed != 0
		}
	}
	return false
}
