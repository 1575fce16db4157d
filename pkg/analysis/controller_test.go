package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/errors"
)

// fakeFetcher answers each call from its own function, in call order.
type fakeFetcher struct {
	mu    sync.Mutex
	calls [][2]string
	fn    func(ctx context.Context, a, b string) (string, error)
}

func (f *fakeFetcher) Analyze(ctx context.Context, a, b string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, [2]string{a, b})
	f.mu.Unlock()
	return f.fn(ctx, a, b)
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.State
	}
	return out
}

func TestControllerLoaded(t *testing.T) {
	f := &fakeFetcher{fn: func(context.Context, string, string) (string, error) {
		return "相似的技术栈", nil
	}}
	var rec recorder
	c := NewController(f, WithOnChange(rec.record))
	defer c.Close()

	if s := c.Snapshot(); s.State != Idle {
		t.Fatalf("initial state = %v, want idle", s.State)
	}

	gen := c.Request(context.Background(), "alice", "golang/go")
	c.Wait()

	s := c.Snapshot()
	if s.State != Loaded || s.Analysis != "相似的技术栈" || s.Generation != gen {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Phase != "loaded" {
		t.Errorf("Phase = %q, want loaded", s.Phase)
	}
	if got := rec.states(); len(got) != 2 || got[0] != Loading || got[1] != Loaded {
		t.Errorf("states = %v, want [loading loaded]", got)
	}
	if f.calls[0] != [2]string{"alice", "golang/go"} {
		t.Errorf("fetch args = %v", f.calls[0])
	}
}

func TestControllerErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
		want string
	}{
		{"generic failure", "", errors.New(errors.ErrCodeNetwork, "boom"), MsgFetchFailed},
		{"server message", "", errors.Wrap(errors.ErrCodeBackend, &backend.StatusError{Status: 503, Detail: "模型繁忙"}, "x"), "模型繁忙"},
		{"status without message", "", errors.Wrap(errors.ErrCodeBackend, &backend.StatusError{Status: 500}, "x"), MsgFetchFailed},
		{"no analysis", "", ErrNoAnalysis, MsgAnalysisFailed},
		{"rate limited", "", errors.New(errors.ErrCodeRateLimited, "请求过于频繁，请稍后再试"), "请求过于频繁，请稍后再试"},
		{"empty text", "", nil, MsgAnalysisFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{fn: func(context.Context, string, string) (string, error) { return tt.text, tt.err }}
			c := NewController(f)
			defer c.Close()

			c.Request(context.Background(), "alice", "bob")
			c.Wait()

			s := c.Snapshot()
			if s.State != Error {
				t.Fatalf("state = %v, want error", s.State)
			}
			if s.Message != tt.want {
				t.Errorf("message = %q, want %q", s.Message, tt.want)
			}
			if s.Analysis != "" {
				t.Errorf("analysis = %q, want empty", s.Analysis)
			}
		})
	}
}

func TestControllerTimeout(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := NewController(f, WithTimeout(20*time.Millisecond))
	defer c.Close()

	c.Request(context.Background(), "alice", "bob")
	c.Wait()

	if s := c.Snapshot(); s.State != Error || s.Message != MsgFetchFailed {
		t.Errorf("snapshot = %+v, want error with %q", s, MsgFetchFailed)
	}
}

func TestControllerDeadlineWithoutFetcherCooperation(t *testing.T) {
	returned := make(chan struct{})
	f := &fakeFetcher{fn: func(context.Context, string, string) (string, error) {
		defer close(returned)
		time.Sleep(300 * time.Millisecond)
		return "late", nil
	}}
	var rec recorder
	c := NewController(f, WithTimeout(20*time.Millisecond), WithOnChange(rec.record))
	defer c.Close()

	start := time.Now()
	c.Request(context.Background(), "alice", "bob")
	c.Wait()
	if elapsed := time.Since(start); elapsed >= 300*time.Millisecond {
		t.Errorf("Wait returned after %v, want it to return at the deadline", elapsed)
	}
	if s := c.Snapshot(); s.State != Error || s.Message != MsgFetchFailed {
		t.Fatalf("snapshot = %+v, want error with %q", s, MsgFetchFailed)
	}

	<-returned
	if s := c.Snapshot(); s.State != Error || s.Analysis != "" {
		t.Errorf("snapshot after late result = %+v, want error", s)
	}
	if got := rec.states(); len(got) != 2 || got[0] != Loading || got[1] != Error {
		t.Errorf("states = %v, want [loading error]", got)
	}
}

func TestControllerCloseWithBlockedFetcher(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := &fakeFetcher{fn: func(context.Context, string, string) (string, error) {
		<-release
		return "never", nil
	}}
	c := NewController(f)
	c.Request(context.Background(), "alice", "bob")

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return while the fetcher was blocked")
	}
}

func TestControllerStaleResultDropped(t *testing.T) {
	first := make(chan struct{})
	f := &fakeFetcher{}
	f.fn = func(ctx context.Context, _, b string) (string, error) {
		if b == "old" {
			<-first
			return "old analysis", nil
		}
		return "new analysis", nil
	}
	var rec recorder
	c := NewController(f, WithOnChange(rec.record))
	defer c.Close()

	c.Request(context.Background(), "alice", "old")
	gen := c.Request(context.Background(), "alice", "new")

	// Let the first request resolve after the second.
	deadline := time.Now().Add(time.Second)
	for c.Snapshot().State != Loaded && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(first)
	c.Wait()

	s := c.Snapshot()
	if s.Generation != gen || s.Analysis != "new analysis" {
		t.Errorf("snapshot = %+v, want generation %d with new analysis", s, gen)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, snap := range rec.snaps {
		if snap.Analysis == "old analysis" {
			t.Error("stale result was published")
		}
	}
}

func TestControllerCancelsPrevious(t *testing.T) {
	cancelled := make(chan struct{})
	f := &fakeFetcher{}
	f.fn = func(ctx context.Context, _, b string) (string, error) {
		if b == "first" {
			<-ctx.Done()
			close(cancelled)
			return "", ctx.Err()
		}
		return "ok", nil
	}
	c := NewController(f)
	defer c.Close()

	c.Request(context.Background(), "alice", "first")
	c.Request(context.Background(), "alice", "second")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("previous request was not cancelled")
	}
	c.Wait()
	if s := c.Snapshot(); s.State != Loaded || s.Selected != "second" {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestControllerReclickRefetches(t *testing.T) {
	f := &fakeFetcher{fn: func(context.Context, string, string) (string, error) { return "x", nil }}
	c := NewController(f)
	defer c.Close()

	for range 3 {
		c.Request(context.Background(), "alice", "bob")
		c.Wait()
	}
	if n := f.count(); n != 3 {
		t.Errorf("fetches = %d, want 3", n)
	}
}

func TestControllerResetAndClose(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c := NewController(f)

	c.Request(context.Background(), "alice", "bob")
	c.Reset()
	c.Wait()
	if s := c.Snapshot(); s.State != Idle {
		t.Errorf("after Reset state = %v, want idle", s.State)
	}

	c.Request(context.Background(), "alice", "bob")
	c.Close()
	c.Close()
	if gen := c.Request(context.Background(), "alice", "bob"); gen != 0 {
		t.Errorf("Request after Close = %d, want 0", gen)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Loading: "loading", Loaded: "loaded", Error: "error", State(9): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}

func TestHTTPFetcher(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     string
		wantCode errors.Code
		wantMsg  string
	}{
		{"success", 200, `{"status":"success","analysis":"都是 Go 项目"}`, "都是 Go 项目", "", ""},
		{"server error message", 500, `{"status":"error","message":"服务器错误: 请求失败: refused"}`, "", errors.ErrCodeBackend, "服务器错误: 请求失败: refused"},
		{"status error no body", 502, `oops`, "", errors.ErrCodeBackend, MsgFetchFailed},
		{"success without analysis", 200, `{"status":"success"}`, "", "", MsgAnalysisFailed},
		{"malformed body", 200, `oops`, "", errors.ErrCodeBackend, MsgFetchFailed},
		{"error status with message", 200, `{"status":"error","message":"额度不足"}`, "", errors.ErrCodeBackend, "额度不足"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/analyze" || r.URL.Query().Get("node_b") != "golang/go" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewHTTPFetcher(srv.URL+"/", srv.Client())
			got, err := f.Analyze(context.Background(), "alice", "golang/go")
			if tt.wantMsg == "" {
				if err != nil || got != tt.want {
					t.Fatalf("Analyze = %q, %v; want %q", got, err, tt.want)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantCode != "" && !errors.Is(err, tt.wantCode) {
				t.Errorf("err = %v, want code %s", err, tt.wantCode)
			}
			if msg := messageFor(err); msg != tt.wantMsg {
				t.Errorf("messageFor = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}
