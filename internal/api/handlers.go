package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dbsmedya/nlquery/internal/database"
	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/pipeline"
	"github.com/dbsmedya/nlquery/internal/schema"
)

// QueryRequest is the body of POST /query. An empty DBType selects
// query.default_dialect, which is postgresql unless configured otherwise.
type QueryRequest struct {
	Question string `json:"question"`
	DBType   string `json:"db_type,omitempty"`
}

// QueryResponse is the body of a successful POST /query.
type QueryResponse struct {
	SQL             string           `json:"sql"`
	Explanation     string           `json:"explanation"`
	Result          []map[string]any `json:"result"`
	Columns         []string         `json:"columns"`
	RowCount        int              `json:"row_count"`
	Truncated       bool             `json:"truncated"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
	DBType          string           `json:"db_type"`
	Source          string           `json:"source"`
}

// HealthResponse is the body of GET / and GET /health.
type HealthResponse struct {
	Status         string                     `json:"status"`
	Service        string                     `json:"service"`
	Version        string                     `json:"version"`
	Timestamp      string                     `json:"timestamp"`
	DatabaseStatus map[string]database.Status `json:"database_status"`
	LLMConfigured  bool                       `json:"llm_configured"`
}

// SchemaResponse is the body of GET /schema.
type SchemaResponse struct {
	Schema []schema.TableDef `json:"schema"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := dec.Token(); err != io.EOF {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.pipeline.Run(r.Context(), pipeline.Request{
		ID:       RequestID(r.Context()),
		Question: req.Question,
		Dialect:  req.DBType,
	})
	if err != nil {
		var perr *pipeline.Error
		if !errors.As(err, &perr) {
			perr = &pipeline.Error{Kind: pipeline.KindInternal, Err: err}
		}
		writeDetail(w, statusFor(perr.Kind), perr.PublicMessage())
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		SQL:             resp.SQL,
		Explanation:     resp.Explanation,
		Result:          resp.Result.Rows,
		Columns:         resp.Result.Columns,
		RowCount:        len(resp.Result.Rows),
		Truncated:       resp.Result.Truncated,
		ExecutionTimeMS: resp.Result.ExecutionTimeMS,
		DBType:          resp.Dialect.String(),
		Source:          string(resp.Source),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]database.Status{}
	if s.health != nil {
		status = s.health.Health(r.Context())
	}
	for _, t := range dialect.All() {
		if _, ok := status[t.String()]; !ok {
			status[t.String()] = database.StatusNotConfigured
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "online",
		Service:        ServiceName,
		Version:        s.version,
		Timestamp:      s.now().UTC().Format(time.RFC3339),
		DatabaseStatus: status,
		LLMConfigured:  s.pipeline.GeneratorConfigured(),
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SchemaResponse{Schema: s.pipeline.Catalog().Tables()})
}

// statusFor maps pipeline failures onto HTTP statuses.
func statusFor(kind pipeline.ErrorKind) int {
	switch {
	case kind.Rejected(), kind == pipeline.KindNoMatch:
		return http.StatusBadRequest
	case kind == pipeline.KindExecutionTimeout:
		return http.StatusGatewayTimeout
	case kind == pipeline.KindConnectorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
