package graph_test

import (
	"fmt"

	"github.com/matzehuels/openchain/pkg/graph"
)

func ExampleResolve() {
	body := []byte(`{
	  "nodes": [
	    {"id": "golang/go", "type": "repo", "nodeType": "center", "metrics": {"size": 40}},
	    {"id": "rust-lang/rust", "type": "repo", "nodeType": "core", "metrics": {"size": 12}},
	    {"id": "ziglang/zig", "type": "repo", "nodeType": "extended", "metrics": {"size": 3}}
	  ],
	  "links": [
	    {"source": "golang/go", "target": "rust-lang/rust", "value": 0.8},
	    {"source": "rust-lang/rust", "target": "ziglang/zig", "value": 0.5}
	  ],
	  "center": {"id": "golang/go", "type": "repo"}
	}`)

	g, err := graph.DecodeRecommend(body)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	r, err := graph.Resolve(g)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Println("center:", r.CenterNode().ID)
	for _, n := range r.Nodes {
		fmt.Printf("%s %s r=%.0f\n", n.ID, n.Tier, n.Radius())
	}
	// Output:
	// center: golang/go
	// golang/go center r=45
	// rust-lang/rust core r=32
	// ziglang/zig extended r=10
}

func ExampleDecodeRecommend_error() {
	g, _ := graph.DecodeRecommend([]byte(`{"success": false, "error": "仓库 a/b 不存在或无法访问"}`))
	fmt.Println(g.IsError(), g.Message)
	// Output:
	// true 仓库 a/b 不存在或无法访问
}
