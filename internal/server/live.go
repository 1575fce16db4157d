package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/openchain/pkg/analysis"
	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/layout"
	"github.com/matzehuels/openchain/pkg/render"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = 54 * time.Second

	// Largest client message accepted.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// Client message types.
const (
	msgLoad      = "load"
	msgDragStart = "drag_start"
	msgDrag      = "drag"
	msgDragEnd   = "drag_end"
	msgClick     = "click"
	msgDismiss   = "dismiss"
	msgZoom      = "zoom"
	msgPan       = "pan"
)

// clientMessage is a gesture or command from the page. Coordinates are in
// screen space; the session maps them through its viewport.
type clientMessage struct {
	Type   string       `json:"type"`
	Search *searchQuery `json:"search,omitempty"`
	ID     string       `json:"id,omitempty"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	DX     float64      `json:"dx"`
	DY     float64      `json:"dy"`
	Factor float64      `json:"factor"`
}

type searchQuery struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Find  string `json:"find"`
	Count string `json:"count,omitempty"`
}

func (q *searchQuery) recommend() backend.RecommendQuery {
	if q == nil {
		return backend.RecommendQuery{}
	}
	return backend.RecommendQuery{Type: q.Type, Name: q.Name, Find: q.Find, Count: q.Count}
}

// serverMessage is everything the session sends. Type is one of hello,
// loading, view, frame, selected, analysis or error.
type serverMessage struct {
	Type     string             `json:"type"`
	Session  string             `json:"session,omitempty"`
	View     string             `json:"view,omitempty"`
	Message  string             `json:"message,omitempty"`
	SVG      string             `json:"svg,omitempty"`
	Tick     int                `json:"tick,omitempty"`
	Alpha    float64            `json:"alpha,omitempty"`
	Viewport string             `json:"viewport,omitempty"`
	Node     *graph.Node        `json:"node,omitempty"`
	Analysis *analysis.Snapshot `json:"analysis,omitempty"`
}

type loadResult struct {
	gen  uint64
	data *graph.GraphData
	err  error
}

type sceneFrame struct {
	gen   uint64
	frame layout.Frame
}

// session is one live graph view. Its run loop is the only goroutine that
// touches the scene, the viewport or the connection's write side.
type session struct {
	id     string
	srv    *Server
	conn   *websocket.Conn
	logger *log.Logger
	cancel context.CancelFunc

	in       chan clientMessage
	loaded   chan loadResult
	frames   chan sceneFrame
	analyses chan analysis.Snapshot

	ctrl      *analysis.Controller
	scene     *render.Scene
	sceneGen  uint64
	stopScene context.CancelFunc
	viewport  render.Viewport
	selected  string
	loadGen   uint64
	wg        sync.WaitGroup
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.liveSessions.Inc()
		defer s.metrics.liveSessions.Dec()
	}

	sess := &session{
		id:       uuid.NewString(),
		srv:      s,
		conn:     conn,
		in:       make(chan clientMessage),
		loaded:   make(chan loadResult, 1),
		frames:   make(chan sceneFrame, 1),
		analyses: make(chan analysis.Snapshot, 1),
		viewport: render.Identity,
	}
	sess.logger = s.logger.With("session", sess.id)
	sess.ctrl = analysis.NewController(
		limitedFetcher{next: s.backend, lim: s.limiter, key: clientKey(r)},
		analysis.WithTimeout(s.timeout),
		analysis.WithLogger(sess.logger),
		analysis.WithOnChange(func(snap analysis.Snapshot) { offer(sess.analyses, snap) }),
	)
	sess.run(r.Context())
}

// limitedFetcher applies the analyze rate limit to live session clicks.
type limitedFetcher struct {
	next analysis.Fetcher
	lim  *limiter
	key  string
}

func (f limitedFetcher) Analyze(ctx context.Context, a, b string) (string, error) {
	if !f.lim.allow(f.key) {
		return "", errors.New(errors.ErrCodeRateLimited, msgRateLimited)
	}
	return f.next.Analyze(ctx, a, b)
}

// offer puts v into a one-slot channel, replacing an unread value.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	defer s.close()

	s.logger.Debug("session opened")
	go s.readPump(ctx)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	s.write(serverMessage{Type: "hello", Session: s.id})
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.in:
			s.handle(ctx, msg)
		case res := <-s.loaded:
			s.apply(ctx, res)
		case sf := <-s.frames:
			if sf.gen == s.sceneGen {
				s.sendFrame(sf.frame)
			}
		case snap := <-s.analyses:
			s.write(serverMessage{Type: "analysis", Analysis: &snap})
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) close() {
	s.cancel()
	s.closeScene()
	s.ctrl.Close()
	s.wg.Wait()
	s.conn.Close()
	s.logger.Debug("session closed")
}

func (s *session) readPump(ctx context.Context) {
	defer s.cancel()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Warn("websocket read", "err", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = clientMessage{Type: "invalid"}
		}
		select {
		case s.in <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// write sends v. A failed write ends the session.
func (s *session) write(v serverMessage) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		s.logger.Debug("websocket write", "err", err)
		s.cancel()
	}
}

func (s *session) fail(err error) {
	s.write(serverMessage{Type: "error", Message: errors.UserMessage(err)})
}

func (s *session) handle(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case msgLoad:
		s.load(ctx, msg.Search.recommend())
		return
	case msgDragStart, msgDrag, msgDragEnd, msgClick, msgDismiss, msgZoom, msgPan:
	default:
		s.fail(errors.New(errors.ErrCodeInvalidInput, "unknown message type %q", msg.Type))
		return
	}
	if s.scene == nil || !s.scene.Renderable() {
		s.fail(errors.New(errors.ErrCodeInvalidInput, "no graph loaded"))
		return
	}

	in := s.scene.Interaction
	var err error
	switch msg.Type {
	case msgDragStart:
		err = in.DragStart(msg.ID)
	case msgDrag:
		x, y := s.viewport.Invert(msg.X, msg.Y)
		err = in.DragMove(msg.ID, x, y)
	case msgDragEnd:
		err = in.DragEnd(msg.ID)
	case msgClick:
		_, err = in.Click(ctx, msg.ID)
		if err == nil {
			s.sendFrame(s.scene.Engine.Frame())
		}
	case msgDismiss:
		s.selected = ""
		s.ctrl.Reset()
		s.sendFrame(s.scene.Engine.Frame())
	case msgZoom:
		factor := msg.Factor
		if factor <= 0 {
			factor = 1
		}
		s.viewport = s.viewport.ZoomAt(factor, msg.X, msg.Y)
		s.sendFrame(s.scene.Engine.Frame())
	case msgPan:
		s.viewport = s.viewport.Pan(msg.DX, msg.DY)
		s.sendFrame(s.scene.Engine.Frame())
	}
	if err != nil {
		s.fail(err)
	}
}

// load starts fetching a recommendation. A newer load supersedes any fetch
// still in flight.
func (s *session) load(ctx context.Context, q backend.RecommendQuery) {
	if err := q.Validate(); err != nil {
		s.fail(err)
		return
	}
	s.loadGen++
	gen := s.loadGen
	s.write(serverMessage{Type: "loading"})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := loadResult{gen: gen}
		body, err := s.srv.backend.Recommend(ctx, q)
		if err == nil {
			s.srv.recordSearch(ctx, q, body)
			res.data, err = graph.DecodeRecommend(body)
		}
		res.err = err
		offer(s.loaded, res)
	}()
}

// apply replaces the current scene with the loaded payload.
func (s *session) apply(ctx context.Context, res loadResult) {
	if res.gen != s.loadGen {
		return
	}
	s.closeScene()
	s.ctrl.Reset()
	s.selected = ""
	s.viewport = render.Identity

	if res.err != nil {
		_, msg := upstreamFailure(res.err, msgServerError)
		s.logger.Warn("load failed", "err", res.err)
		s.write(serverMessage{Type: "view", View: render.ViewError.String(), Message: msg})
		return
	}
	scene, err := render.NewScene(res.data, render.SceneOptions{
		Layout:   s.srv.layout,
		Analyzer: s.ctrl,
		OnSelect: s.onSelect,
	})
	if err != nil {
		s.write(serverMessage{Type: "view", View: render.ViewError.String(), Message: errors.UserMessage(err)})
		return
	}
	s.scene = scene
	s.sceneGen = res.gen
	s.write(serverMessage{Type: "view", View: scene.View.Kind.String(), Message: scene.View.Message})
	if !scene.Renderable() {
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	s.stopScene = cancel
	gen := res.gen
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = scene.Run(sctx, func(f layout.Frame) { offer(s.frames, sceneFrame{gen: gen, frame: f}) })
	}()
}

func (s *session) closeScene() {
	if s.scene == nil {
		return
	}
	s.scene.Close()
	s.sceneGen = 0
	if s.stopScene != nil {
		s.stopScene()
		s.stopScene = nil
	}
	s.scene = nil
}

func (s *session) onSelect(n graph.Node) {
	s.selected = n.ID
	s.write(serverMessage{Type: "selected", Node: &n})
}

func (s *session) sendFrame(f layout.Frame) {
	svg := render.RenderSVG(f, render.WithViewport(s.viewport), render.WithSelected(s.selected))
	s.write(serverMessage{
		Type:     "frame",
		SVG:      string(svg),
		Tick:     f.Tick,
		Alpha:    f.Alpha,
		Viewport: s.viewport.String(),
	})
}
