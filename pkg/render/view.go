package render

import (
	"github.com/matzehuels/openchain/pkg/graph"
)

// ViewKind is what a graph view shows for a payload.
type ViewKind int

const (
	ViewGraph ViewKind = iota // interactive graph
	ViewError                 // application error message, no graph
	ViewEmpty                 // "no results" notice, no graph
)

func (k ViewKind) String() string {
	switch k {
	case ViewError:
		return "error"
	case ViewEmpty:
		return "empty"
	default:
		return "graph"
	}
}

// View is the classification of a payload.
type View struct {
	Kind    ViewKind
	Message string
}

// Classify decides how a payload is presented. An error payload shows its
// message (or a generic one) and an empty payload shows a no-results notice.
// Neither builds a partial graph.
func Classify(g *graph.GraphData) View {
	switch {
	case g == nil:
		return View{Kind: ViewError, Message: graph.MsgFetchFailed}
	case g.IsError():
		msg := g.Message
		if msg == "" {
			msg = graph.MsgFetchFailed
		}
		return View{Kind: ViewError, Message: msg}
	case g.IsEmpty():
		return View{Kind: ViewEmpty, Message: graph.MsgNoResults}
	default:
		return View{Kind: ViewGraph}
	}
}
