// Package pkg provides the libraries behind OpenChain, a GitHub
// recommendation graph explorer.
//
// # Overview
//
// OpenChain asks a recommendation backend which users or repositories are
// related to a given user or repository, lays the answer out as a
// force-directed graph and, when a node is selected, asks the backend to
// explain the relationship.
//
// # Data Flow
//
//	/api/recommend (backend)
//	         ↓
//	    [backend] client (validation, retries, cache)
//	         ↓
//	    [graph] payload decoding and resolution
//	         ↓
//	    [layout] force simulation
//	         ↓
//	    [render] SVG, Graphviz images, gesture handling
//
// Selecting a node runs through [analysis], which keeps only the newest
// request's answer.
//
// # Packages
//
// [graph] - Wire types for recommendation payloads and their validation into
// index-resolved graphs.
//
// [layout] - A d3-force style simulation with link, many-body, centering,
// collision and radial forces, driven synchronously or on a timer.
//
// [render] - Visual encoding, SVG and DOT sinks, viewport maths and the
// drag, click and zoom bindings for a live scene.
//
// [analysis] - The generation-tracking controller for pairwise analysis.
//
// [backend] - HTTP client for the recommendation backend.
//
// [cache] - Response caches on disk or in Redis.
//
// [history] - Recent searches in memory or MongoDB.
//
// [config] - TOML configuration with .env and environment overrides.
//
// [errors] - Coded errors and input validation.
//
// [observability] - Hooks for metrics and tracing.
//
// [buildinfo] - Version information stamped at build time.
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/graph
// [layout]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/render
// [analysis]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/analysis
// [backend]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/backend
// [cache]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/cache
// [history]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/history
// [config]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/openchain/pkg/buildinfo
package pkg
