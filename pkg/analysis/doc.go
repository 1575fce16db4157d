// Package analysis manages the pairwise analysis shown when a node is clicked.
//
// A [Controller] holds the view model of the analysis popup. Each call to
// [Controller.Request] starts a new generation:
//
//	Idle → Loading → Loaded | Error
//
// Starting a generation cancels the request of the previous one, and a result
// that arrives for an older generation is dropped, so the popup always shows
// the answer for the most recent click. Every request is bounded by a timeout
// and resolves as Error when it expires. There is no automatic retry; calling
// Request again for the same pair re-issues the fetch.
//
// The controller does not know how analysis is fetched. Any [Fetcher] works:
// [*backend.Client] calls the recommendation backend directly, and
// [HTTPFetcher] calls an OpenChain server's /api/analyze endpoint.
//
//	ctrl := analysis.NewController(fetcher, analysis.WithOnChange(func(s analysis.Snapshot) {
//	    fmt.Println(s.State, s.Analysis, s.Message)
//	}))
//	defer ctrl.Close()
//	ctrl.Request(ctx, "alice", "golang/go")
package analysis
