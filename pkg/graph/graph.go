package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/openchain/pkg/errors"
)

// Fallback user-facing messages.
const (
	MsgFetchFailed = "获取推荐数据失败"
	MsgNoResults   = "没有找到推荐结果"
)

// =============================================================================
// Payload Decoding API
// =============================================================================

// DecodeRecommend decodes a recommend response body into GraphData.
//
// Two shapes are accepted: the {success, data, error} envelope and a bare
// GraphData. An envelope with success=false is turned into an error payload
// (Status "error") rather than a Go error, so the view can show its message.
// Only malformed JSON yields an error.
func DecodeRecommend(data []byte) (*GraphData, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode recommend response")
	}

	if _, ok := probe["success"]; !ok {
		var g GraphData
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode graph")
		}
		// {"message": ...} or {"detail": ...} without nodes is a proxy or
		// backend failure body.
		if _, hasNodes := probe["nodes"]; !hasNodes && g.Status == "" {
			var detail struct {
				Detail string `json:"detail"`
			}
			_ = json.Unmarshal(data, &detail)
			if msg := firstNonEmpty(g.Message, detail.Detail); msg != "" {
				g.Status = StatusError
				g.Message = msg
			}
		}
		return &g, nil
	}

	var res RecommendResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode recommend envelope")
	}
	if !res.Success || res.Data == nil {
		return &GraphData{
			Status:  StatusError,
			Message: firstNonEmpty(res.Error, res.Message, res.Detail, MsgFetchFailed),
		}, nil
	}
	return res.Data, nil
}

// DecodeAnalysis decodes an analyze response body. It fails only when data
// is not an analysis envelope; use [AnalysisResult.OK] to check the status.
func DecodeAnalysis(data []byte) (*AnalysisResult, error) {
	var res AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackend, err, "decode analysis response")
	}
	return &res, nil
}

// =============================================================================
// File API
// =============================================================================

// ReadFile reads a recommend response or bare GraphData from path.
func ReadFile(path string) (*GraphData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a recommend response or bare GraphData from r.
func Read(r io.Reader) (*GraphData, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return DecodeRecommend(data)
}

// Write encodes g as indented JSON.
func Write(g *GraphData, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
