package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/buildinfo"
	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/history"
)

// Response messages.
const (
	msgServerError = "服务器错误: "
	msgRateLimited = "请求过于频繁，请稍后再试"
	msgBadLimit    = "limit 参数必须是正整数"
)

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// upstreamFailure maps a backend client error to a status and message. A
// backend status is passed through with its detail; anything else is a 500
// naming the cause after prefix.
func upstreamFailure(err error, prefix string) (int, string) {
	if se, ok := backend.AsStatusError(err); ok {
		return se.Status, errors.UserMessage(err)
	}
	if errors.Is(err, errors.ErrCodeInvalidInput) {
		return http.StatusBadRequest, errors.UserMessage(err)
	}
	return http.StatusInternalServerError, prefix + causeOf(err)
}

// causeOf returns the innermost description of err.
func causeOf(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Cause != nil {
		return e.Cause.Error()
	}
	return errors.UserMessage(err)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q, err := backend.ParseRecommendQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: errors.UserMessage(err)})
		return
	}

	body, err := s.backend.Recommend(r.Context(), q)
	if err != nil {
		status, msg := upstreamFailure(err, msgServerError)
		s.logger.Warn("recommend failed", "name", q.Name, "status", status, "err", err,
			"request_id", requestIDFrom(r.Context()))
		writeJSON(w, status, messageBody{Message: msg})
		return
	}
	s.recordSearch(r.Context(), q, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// recordSearch adds a history entry for a payload that has a graph.
func (s *Server) recordSearch(ctx context.Context, q backend.RecommendQuery, body []byte) {
	g, err := graph.DecodeRecommend(body)
	if err != nil || g.IsError() || g.IsEmpty() {
		return
	}
	if err := s.history.Record(ctx, history.NewEntry(q.Type, q.Name, q.Find, len(g.Nodes), len(g.Links))); err != nil {
		s.logger.Warn("record history", "err", err)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q, err := backend.ParseAnalyzeQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, graph.AnalysisResult{Status: graph.AnalysisError, Message: errors.UserMessage(err)})
		return
	}
	if !s.limiter.allow(clientKey(r)) {
		if s.metrics != nil {
			s.metrics.rateLimited.Inc()
		}
		writeJSON(w, http.StatusTooManyRequests, graph.AnalysisResult{Status: graph.AnalysisError, Message: msgRateLimited})
		return
	}

	text, err := s.backend.Analyze(r.Context(), q.NodeA, q.NodeB)
	if err != nil {
		status, msg := upstreamFailure(err, msgServerError+"请求失败: ")
		s.logger.Warn("analyze failed", "node_a", q.NodeA, "node_b", q.NodeB, "status", status, "err", err,
			"request_id", requestIDFrom(r.Context()))
		writeJSON(w, status, graph.AnalysisResult{Status: graph.AnalysisError, Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, graph.AnalysisResult{Status: graph.AnalysisSuccess, Analysis: text})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, messageBody{Message: msgBadLimit})
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("read history", "err", err)
		writeJSON(w, errors.HTTPStatus(err), messageBody{Message: msgServerError + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
