package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/openchain/pkg/errors"
)

const samplePayload = `{
  "nodes": [
    {"id": "alice", "group": 1, "type": "user", "nodeType": "center", "metrics": {"size": 30}},
    {"id": "golang/go", "group": 2, "type": "repo", "nodeType": "core", "metrics": {"size": 8, "stars": 120000}},
    {"id": "gohugoio/hugo", "group": 2, "type": "repo", "nodeType": "core", "metrics": {"size": 35}},
    {"id": "spf13/cobra", "group": 3, "type": "repo", "nodeType": "extended", "metrics": {"size": 5}}
  ],
  "links": [
    {"source": "alice", "target": "golang/go", "value": 0.9},
    {"source": "alice", "target": {"id": "gohugoio/hugo"}, "value": 0.4},
    {"source": "golang/go", "target": "spf13/cobra", "value": 0.2}
  ],
  "center": {"id": "alice", "type": "user"}
}`

func TestRadius(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		size float64
		want float64
	}{
		{"center ignores size", TierCenter, 100, 45},
		{"core small", TierCore, 8, 28},
		{"core capped", TierCore, 35, 40},
		{"core exactly cap", TierCore, 20, 40},
		{"core negative size", TierCore, -5, 15},
		{"extended ignores size", TierExtended, 50, 10},
		{"unknown tier drawn as core", Tier(""), 5, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Radius(tt.tier, tt.size); got != tt.want {
				t.Errorf("Radius(%q, %v) = %v, want %v", tt.tier, tt.size, got, tt.want)
			}
		})
	}
}

func TestDecodeRecommend(t *testing.T) {
	t.Run("BareGraph", func(t *testing.T) {
		g, err := DecodeRecommend([]byte(samplePayload))
		if err != nil {
			t.Fatalf("DecodeRecommend: %v", err)
		}
		if len(g.Nodes) != 4 || len(g.Links) != 3 {
			t.Fatalf("got %d nodes, %d links, want 4, 3", len(g.Nodes), len(g.Links))
		}
		if g.Links[1].Target != "gohugoio/hugo" {
			t.Errorf("object endpoint = %q, want gohugoio/hugo", g.Links[1].Target)
		}
		if g.Nodes[1].Metrics.Stars == nil || *g.Nodes[1].Metrics.Stars != 120000 {
			t.Errorf("stars not decoded: %+v", g.Nodes[1].Metrics)
		}
	})

	t.Run("Envelope", func(t *testing.T) {
		body := `{"success": true, "data": ` + samplePayload + `}`
		g, err := DecodeRecommend([]byte(body))
		if err != nil {
			t.Fatalf("DecodeRecommend: %v", err)
		}
		if g.Center.ID != "alice" {
			t.Errorf("Center.ID = %q, want alice", g.Center.ID)
		}
	})

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"envelope failure", `{"success": false, "error": "用户 x 不存在"}`, "用户 x 不存在"},
		{"envelope without data", `{"success": true}`, MsgFetchFailed},
		{"status error", `{"status": "error", "message": "API 限制"}`, "API 限制"},
		{"proxy message", `{"message": "后端服务错误"}`, "后端服务错误"},
		{"backend detail", `{"detail": "Not Found"}`, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := DecodeRecommend([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeRecommend: %v", err)
			}
			if !g.IsError() {
				t.Fatalf("IsError() = false, want true")
			}
			if g.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", g.Message, tt.wantMsg)
			}
		})
	}

	t.Run("EmptySuccess", func(t *testing.T) {
		g, err := DecodeRecommend([]byte(`{"status": "success", "message": "", "nodes": []}`))
		if err != nil {
			t.Fatalf("DecodeRecommend: %v", err)
		}
		if g.IsError() || !g.IsEmpty() {
			t.Errorf("IsError() = %v, IsEmpty() = %v, want false, true", g.IsError(), g.IsEmpty())
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := DecodeRecommend([]byte(`{"nodes": [`))
		if !errors.Is(err, errors.ErrCodeInvalidGraph) {
			t.Errorf("err = %v, want code %v", err, errors.ErrCodeInvalidGraph)
		}
	})
}

func TestDecodeAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ok      bool
		message string
	}{
		{"success", `{"status": "success", "analysis": "both write Go"}`, true, ""},
		{"success without text", `{"status": "success"}`, false, ""},
		{"error with message", `{"status": "error", "message": "缺少必要参数"}`, false, "缺少必要参数"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DecodeAnalysis([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeAnalysis: %v", err)
			}
			if res.OK() != tt.ok {
				t.Errorf("OK() = %v, want %v", res.OK(), tt.ok)
			}
			if res.Message != tt.message {
				t.Errorf("Message = %q, want %q", res.Message, tt.message)
			}
		})
	}

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeAnalysis([]byte("oops"))
		if !errors.Is(err, errors.ErrCodeBackend) {
			t.Errorf("err = %v, want code %v", err, errors.ErrCodeBackend)
		}
	})
}

func TestResolve(t *testing.T) {
	g, err := DecodeRecommend([]byte(samplePayload))
	if err != nil {
		t.Fatal(err)
	}

	r, err := Resolve(g)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.CenterNode().ID != "alice" {
		t.Errorf("center = %q, want alice", r.CenterNode().ID)
	}
	if len(r.Edges) != 3 {
		t.Fatalf("edges = %d, want 3", len(r.Edges))
	}
	hugo, _ := r.Index("gohugoio/hugo")
	if r.Edges[1].Target != hugo {
		t.Errorf("edge target = %d, want %d", r.Edges[1].Target, hugo)
	}
	if n := r.Node("spf13/cobra"); n == nil || !n.IsExtended() {
		t.Errorf("Node(spf13/cobra) = %+v, want extended node", n)
	}
	if r.Node("missing") != nil {
		t.Error("Node(missing) != nil")
	}
}

func TestResolveErrors(t *testing.T) {
	center := Node{ID: "c", Tier: TierCenter}
	core := Node{ID: "a", Tier: TierCore}

	tests := []struct {
		name string
		data GraphData
		want string
	}{
		{
			name: "unknown target",
			data: GraphData{Nodes: []Node{center}, Links: []Link{{Source: "c", Target: "x"}}, Center: Center{ID: "c"}},
			want: "link target",
		},
		{
			name: "unknown source",
			data: GraphData{Nodes: []Node{center}, Links: []Link{{Source: "x", Target: "c"}}, Center: Center{ID: "c"}},
			want: "link source",
		},
		{
			name: "duplicate id",
			data: GraphData{Nodes: []Node{center, core, core}, Center: Center{ID: "c"}},
			want: "duplicate",
		},
		{
			name: "no center",
			data: GraphData{Nodes: []Node{core}, Center: Center{ID: "a"}},
			want: "no center",
		},
		{
			name: "two centers",
			data: GraphData{Nodes: []Node{center, {ID: "d", Tier: TierCenter}}, Center: Center{ID: "c"}},
			want: "multiple center",
		},
		{
			name: "center mismatch",
			data: GraphData{Nodes: []Node{center, core}, Center: Center{ID: "a"}},
			want: "does not match",
		},
		{
			name: "unknown tier",
			data: GraphData{Nodes: []Node{center, {ID: "w", Tier: "weird"}}, Center: Center{ID: "c"}},
			want: "unknown tier",
		},
		{
			name: "missing tier",
			data: GraphData{Nodes: []Node{center, {ID: "w"}}, Center: Center{ID: "c"}},
			want: "unknown tier",
		},
		{
			name: "error payload",
			data: GraphData{Status: StatusError, Message: "boom"},
			want: "boom",
		},
		{
			name: "empty payload",
			data: GraphData{},
			want: "no nodes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(&tt.data)
			if err == nil {
				t.Fatal("Resolve() error = nil, want error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidGraph) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidGraph)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	g, err := DecodeRecommend([]byte(samplePayload))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), `"id": "gohugoio/hugo"}`) {
		t.Error("object endpoint was not normalized to a bare id")
	}

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(back.Nodes) != len(g.Nodes) || back.Links[1].Target != "gohugoio/hugo" {
		t.Errorf("ReadFile mismatch: %+v", back)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadFile(missing) error = nil")
	}
}
