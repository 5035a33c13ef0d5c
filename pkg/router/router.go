// Package router serves LiveView components over HTTP and WebSocket.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vendapay/teamwizard/pkg/core"
	"github.com/vendapay/teamwizard/pkg/limits"
	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/metrics"
	"github.com/vendapay/teamwizard/pkg/protocol"
	"github.com/vendapay/teamwizard/pkg/transport"
)

// Common router errors.
var (
	ErrNilRenderer       = errors.New("component returned nil renderer")
	ErrNotMounted        = errors.New("component not mounted")
	ErrWebSocketRequired = errors.New("websocket connection required")
)

// Router handles HTTP routing and the LiveView connection lifecycle.
type Router struct {
	mux          *http.ServeMux
	liveRoutes   map[string]*LiveRoute
	middleware   []Middleware
	errorHandler ErrorHandler

	config         core.Config
	codec          protocol.Codec
	logger         logging.Logger
	sessionManager *LiveViewSessionManager
	socketManager  *core.SocketManager
	metrics        *metrics.Metrics
	limiter        EventLimiter

	wg sync.WaitGroup
	mu sync.RWMutex
}

// LiveRoute defines a route that renders a LiveView component.
type LiveRoute struct {
	// Path is the URL pattern.
	Path string

	// Component creates a fresh component for every request and connection.
	Component func() core.Component

	// Middleware are route specific middleware.
	Middleware []Middleware
}

// Middleware is a function that wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// ErrorHandler handles errors during request processing.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// EventLimiter throttles client events per connection.
type EventLimiter interface {
	Allow(key string) bool
	Forget(key string)
}

// Option configures a Router.
type Option func(*Router)

// WithCodec sets the codec used on WebSocket connections.
func WithCodec(codec protocol.Codec) Option {
	return func(r *Router) {
		r.codec = codec
	}
}

// WithConfig sets timeouts, limits and origin policy.
func WithConfig(cfg core.Config) Option {
	return func(r *Router) {
		r.config = cfg
	}
}

// WithLogger sets the router logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics records connections and event handling.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithEventLimiter drops user events over the limiter's rate. Joins,
// heartbeats and leaves are never limited.
func WithEventLimiter(l EventLimiter) Option {
	return func(r *Router) {
		r.limiter = l
	}
}

// New creates a new router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:            http.NewServeMux(),
		liveRoutes:     make(map[string]*LiveRoute),
		config:         core.DefaultConfig(),
		codec:          protocol.NewPhoenixCodec(),
		logger:         logging.NopLogger{},
		sessionManager: NewLiveViewSessionManager(),
	}
	r.errorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		r.logger.Error("request failed", logging.String("path", req.URL.Path), logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	for _, opt := range opts {
		opt(r)
	}
	r.socketManager = core.NewSocketManager(r.config.MaxConnections)
	return r
}

// Use adds global middleware. It applies to routes registered afterwards.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// SetErrorHandler sets the error handler.
func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.errorHandler = handler
}

// SessionManager returns the session manager.
func (r *Router) SessionManager() *LiveViewSessionManager {
	return r.sessionManager
}

// SocketManager returns the socket manager.
func (r *Router) SocketManager() *core.SocketManager {
	return r.socketManager
}

// Codec returns the codec used on WebSocket connections.
func (r *Router) Codec() protocol.Codec {
	return r.codec
}

// Live registers a LiveView route.
func (r *Router) Live(path string, component func() core.Component, mw ...Middleware) {
	route := &LiveRoute{
		Path:       path,
		Component:  component,
		Middleware: mw,
	}

	r.mu.Lock()
	r.liveRoutes[path] = route
	r.mu.Unlock()

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.renderLive(w, req, route)
	})
	for i := len(route.Middleware) - 1; i >= 0; i-- {
		h = route.Middleware[i](h)
	}
	r.Handle(path, h)
}

// Handle registers a standard HTTP handler wrapped in the global middleware.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mu.RLock()
	middleware := make([]Middleware, len(r.middleware))
	copy(middleware, r.middleware)
	r.mu.RUnlock()

	h := handler
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	r.mux.Handle(pattern, h)
}

// HandleFunc registers a standard HTTP handler function.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// renderLive serves the initial HTML render or upgrades to WebSocket.
func (r *Router) renderLive(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	if isWebSocketRequest(req) {
		r.handleWebSocket(w, req, route.Component())
		return
	}

	component := route.Component()
	params := extractParams(req)
	session := extractSession(req)
	ctx := core.BuildContext(req.Context(), nil, session, params)

	if err := component.Mount(ctx, params, session); err != nil {
		r.errorHandler(w, req, fmt.Errorf("mount %s: %w", component.Name(), err))
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	html, err := renderString(ctx, component)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// handleWebSocket upgrades the request and starts the connection's
// message loop.
func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request, component core.Component) {
	if r.socketManager.IsShutdown() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	cfg := r.config
	ws := transport.NewWebSocketTransport(
		&transport.TransportConfig{
			ReadTimeout:       cfg.Timeouts.WebSocketRead,
			WriteTimeout:      cfg.Timeouts.WebSocketWrite,
			PingInterval:      cfg.Timeouts.WebSocketPing,
			MaxMessageSize:    cfg.MaxMessageSize,
			SendBufferSize:    64,
			ReceiveBufferSize: 64,
		},
		&transport.WebSocketConfig{
			AllowedOrigins:  cfg.Security.AllowedOrigins,
			InsecureDevMode: cfg.Security.InsecureDevMode,
		},
		r.codec,
		r.logger,
	)

	if err := ws.Upgrade(w, req); err != nil {
		r.logger.Warn("websocket upgrade failed",
			logging.String("origin", req.Header.Get("Origin")),
			logging.Err(err),
		)
		return
	}

	socket := core.NewSocket(uuid.NewString(), NewTransportAdapter(ws))
	socket.SetMetadata("remote_addr", req.RemoteAddr)
	if err := r.socketManager.Add(socket); err != nil {
		r.logger.Warn("rejecting websocket", logging.Err(err))
		ws.Close()
		return
	}
	r.metrics.ConnectionOpened()

	if bc, ok := component.(interface{ SetSocket(*core.Socket) }); ok {
		bc.SetSocket(socket)
	}

	params := extractParams(req)
	session := extractSession(req)
	lv := r.sessionManager.Create(socket.ID(), component, params, session)
	lv.Socket = socket
	lv.Transport = ws

	// The connection outlives the HTTP request, so its context must not
	// derive from req.Context().
	logger := r.logger.With(
		logging.String("socket_id", socket.ID()),
		logging.String("component", component.Name()),
	)
	ctx, cancel := context.WithCancel(logging.ContextWithLogger(context.Background(), logger))
	lv.setCancel(cancel)
	ctx = core.BuildContext(ctx, socket, session, params)

	logger.Debug("websocket connected", logging.String("remote_addr", req.RemoteAddr))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		reason := r.messageLoop(ctx, lv)
		r.handleDisconnect(lv, reason)
	}()
}

// messageLoop processes incoming messages until the client leaves, the
// connection drops or the router shuts down. Every call into the component
// happens on this goroutine.
func (r *Router) messageLoop(ctx context.Context, session *LiveViewSession) core.TerminateReason {
	recvCh := session.Transport.Receive()
	closeCh := session.Transport.CloseChan()

	for {
		select {
		case msg, ok := <-recvCh:
			if !ok {
				return core.TerminateNormal
			}
			session.UpdateActivity()
			session.Socket.UpdateActivity()

			switch protocol.TypeOf(msg.Event) {
			case protocol.MsgHeartbeat:
				r.sendReply(session, msg, nil)

			case protocol.MsgJoin:
				r.handleJoin(ctx, session, msg)

			case protocol.MsgLeave:
				r.sendReply(session, msg, nil)
				return core.TerminateNormal

			default:
				if r.limiter != nil && !r.limiter.Allow(session.SocketID) {
					r.metrics.EventThrottled()
					r.sendError(session, msg, limits.ErrRateLimitExceeded)
					continue
				}
				start := time.Now()
				err := r.handleEvent(ctx, session, msg)
				r.metrics.EventHandled(msg.Event, time.Since(start), err)
			}

		case <-closeCh:
			return core.TerminateNormal

		case <-ctx.Done():
			return core.TerminateShutdown
		}
	}
}

// handleJoin mounts the component and replies with its first render.
func (r *Router) handleJoin(ctx context.Context, session *LiveViewSession, msg *protocol.Message) {
	session.SetJoinRef(msg.JoinRef)

	if !session.IsMounted() {
		if err := session.Component.Mount(ctx, session.Params, session.Session); err != nil {
			logging.L(ctx).Error("mount failed", logging.Err(err))
			r.sendError(session, msg, err)
			return
		}
		session.SetMounted(true)
	}

	html, err := renderString(ctx, session.Component)
	if err != nil {
		r.sendError(session, msg, err)
		return
	}
	session.swapRender(html)
	r.resetAssigns(session.Component)

	r.sendReply(session, msg, map[string]any{
		"topic": session.Topic,
		"html":  html,
	})
}

// handleEvent dispatches a user event and pushes the new render when the
// HTML changed. The returned error has already been sent to the client.
func (r *Router) handleEvent(ctx context.Context, session *LiveViewSession, msg *protocol.Message) error {
	if !session.IsMounted() {
		r.sendError(session, msg, ErrNotMounted)
		return ErrNotMounted
	}

	payload := msg.Payload
	if payload == nil {
		payload = make(map[string]any)
	}

	evCtx := ctx
	if d := r.config.Timeouts.ComponentEvent; d > 0 {
		var cancel context.CancelFunc
		evCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := session.Component.HandleEvent(evCtx, msg.Event, payload); err != nil {
		logging.L(ctx).Warn("event failed", logging.String("event", msg.Event), logging.Err(err))
		r.sendError(session, msg, err)
		return err
	}

	html, err := renderString(ctx, session.Component)
	if err != nil {
		r.sendError(session, msg, err)
		return err
	}
	r.resetAssigns(session.Component)

	r.sendReply(session, msg, nil)
	if session.swapRender(html) {
		if err := session.Socket.Push(protocol.EventRender, map[string]any{"html": html}); err != nil {
			logging.L(ctx).Debug("render push failed", logging.Err(err))
		}
	}
	return nil
}

func (r *Router) resetAssigns(component core.Component) {
	if a, ok := component.(interface{ Assigns() *core.Assigns }); ok {
		a.Assigns().ResetChanges()
	}
}

// handleDisconnect terminates the component and releases the connection.
func (r *Router) handleDisconnect(session *LiveViewSession, reason core.TerminateReason) {
	if session.IsMounted() {
		if err := session.Component.Terminate(context.Background(), reason); err != nil {
			r.logger.Warn("terminate failed", logging.String("socket_id", session.SocketID), logging.Err(err))
		}
	}

	r.sessionManager.Remove(session.ID)
	r.socketManager.Remove(session.SocketID)
	session.Socket.Close()
	if r.limiter != nil {
		r.limiter.Forget(session.SocketID)
	}
	r.metrics.ConnectionClosed()

	r.logger.Debug("websocket disconnected",
		logging.String("socket_id", session.SocketID),
		logging.String("reason", reason.String()),
	)
}

// Shutdown stops accepting connections, stops every message loop and waits
// for components to terminate or ctx to expire.
func (r *Router) Shutdown(ctx context.Context) error {
	for _, s := range r.sessionManager.All() {
		s.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.socketManager.Shutdown(ctx)
}

func (r *Router) sendReply(session *LiveViewSession, msg *protocol.Message, response map[string]any) {
	if response == nil {
		response = map[string]any{}
	}
	reply := protocol.OkReply(msg.Ref, msg.Topic, response).WithJoinRef(session.JoinRef())
	if err := session.Transport.Send(reply); err != nil {
		r.logger.Debug("reply failed", logging.String("socket_id", session.SocketID), logging.Err(err))
	}
}

func (r *Router) sendError(session *LiveViewSession, msg *protocol.Message, err error) {
	reply := protocol.ErrorReply(msg.Ref, msg.Topic, err.Error()).WithJoinRef(session.JoinRef())
	if sendErr := session.Transport.Send(reply); sendErr != nil {
		r.logger.Debug("error reply failed", logging.String("socket_id", session.SocketID), logging.Err(sendErr))
	}
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// renderString renders component into a pooled buffer.
func renderString(ctx context.Context, component core.Component) (string, error) {
	renderer := component.Render(ctx)
	if renderer == nil {
		return "", ErrNilRenderer
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := renderer.Render(ctx, buf); err != nil {
		return "", fmt.Errorf("render %s: %w", component.Name(), err)
	}
	return buf.String(), nil
}

// extractSession copies cookies into the component session.
func extractSession(req *http.Request) core.Session {
	session := make(core.Session)
	for _, cookie := range req.Cookies() {
		session["cookie:"+cookie.Name] = cookie.Value
	}
	if id := logging.RequestIDFromContext(req.Context()); id != "" {
		session["request_id"] = id
	}
	return session
}

// extractParams extracts query parameters.
func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// isWebSocketRequest checks if this is a WebSocket upgrade request.
func isWebSocketRequest(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Upgrade")), "websocket")
}
