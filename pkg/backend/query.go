package backend

import (
	"net/url"
	"strings"

	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
)

// Validation messages, shown to users verbatim.
const (
	MsgMissingParams = "缺少必要参数"
	MsgInvalidType   = "type 参数必须是 user 或 repo"
	MsgInvalidFind   = "find 参数必须是 user 或 repo"
	MsgInvalidRepo   = "仓库名称格式错误，应为: owner/repo"
	MsgBackendError  = "后端服务错误"
)

// RecommendQuery is a recommendation search.
type RecommendQuery struct {
	Type  string // "user" or "repo": what Name is
	Name  string // user login or owner/repo
	Find  string // "user" or "repo": what to recommend
	Count string // optional result count, forwarded as-is
}

// ParseRecommendQuery reads a query from URL parameters and validates it.
func ParseRecommendQuery(v url.Values) (RecommendQuery, error) {
	q := RecommendQuery{
		Type:  v.Get("type"),
		Name:  v.Get("name"),
		Find:  v.Get("find"),
		Count: v.Get("count"),
	}
	return q, q.Validate()
}

// Validate checks the query in a fixed order: required parameters, type,
// find, then the owner/repo shape of repository names.
func (q RecommendQuery) Validate() error {
	switch {
	case q.Type == "" || q.Name == "" || q.Find == "":
		return errors.New(errors.ErrCodeInvalidInput, MsgMissingParams)
	case !isEntityType(q.Type):
		return errors.New(errors.ErrCodeInvalidInput, MsgInvalidType)
	case !isEntityType(q.Find):
		return errors.New(errors.ErrCodeInvalidInput, MsgInvalidFind)
	case q.Type == graph.TypeRepo && !strings.Contains(q.Name, "/"):
		return errors.New(errors.ErrCodeInvalidInput, MsgInvalidRepo)
	}
	return nil
}

// Values encodes the query for the backend. Count is omitted when empty.
func (q RecommendQuery) Values() url.Values {
	v := url.Values{}
	v.Set("type", q.Type)
	v.Set("name", q.Name)
	v.Set("find", q.Find)
	if q.Count != "" {
		v.Set("count", q.Count)
	}
	return v
}

func isEntityType(s string) bool {
	return s == graph.TypeUser || s == graph.TypeRepo
}

// AnalyzeQuery is a pairwise analysis request.
type AnalyzeQuery struct {
	NodeA string
	NodeB string
}

// ParseAnalyzeQuery reads node_a and node_b and requires both.
func ParseAnalyzeQuery(v url.Values) (AnalyzeQuery, error) {
	q := AnalyzeQuery{NodeA: v.Get("node_a"), NodeB: v.Get("node_b")}
	return q, q.Validate()
}

// Validate requires both nodes.
func (q AnalyzeQuery) Validate() error {
	if q.NodeA == "" || q.NodeB == "" {
		return errors.New(errors.ErrCodeInvalidInput, MsgMissingParams)
	}
	return nil
}
