// Package ws serves subscribers over websocket connections.
//
// Every connection becomes a broadcast subscriber. Text frames received from
// the client are control requests, see package control.
package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/transport/control"
	"github.com/mpapenbr/iracehud-go/pkg/utils/broadcast"
)

const defaultWriteTimeout = 5 * time.Second

type Server struct {
	log          *log.Logger
	bcst         *broadcast.Broadcaster
	control      *control.Handler
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	messageType  int

	mu  sync.Mutex
	srv *http.Server
}

type Option func(s *Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// WithCheckOrigin replaces the default same-origin check
func WithCheckOrigin(f func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = f
	}
}

func NewServer(bcst *broadcast.Broadcaster, ctrl *control.Handler, opts ...Option) *Server {
	ret := &Server{
		log:          log.Default().Named("ws"),
		bcst:         bcst,
		control:      ctrl,
		writeTimeout: defaultWriteTimeout,
		messageType:  websocket.BinaryMessage,
	}
	if bcst.Codec().Name() == "json" {
		ret.messageType = websocket.TextMessage
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// ServeHTTP upgrades the request and keeps the connection until the client
// goes away or the broadcaster drops it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", log.ErrorField(err))
		return
	}
	sink := &connSink{conn: conn, messageType: s.messageType, timeout: s.writeTimeout}
	id, err := s.bcst.Subscribe(sink)
	if err != nil {
		s.log.Warn("could not subscribe", log.ErrorField(err))
		//nolint:errcheck // connection is discarded
		conn.Close()
		return
	}
	l := s.log.With(log.String("id", id.String()), log.String("remote", r.RemoteAddr))
	l.Info("client connected")
	defer func() {
		if err := s.bcst.Unsubscribe(id); err != nil && !errors.Is(err, broadcast.ErrSubscriberNotFound) {
			l.Warn("unsubscribe", log.ErrorField(err))
		}
		l.Info("client disconnected")
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Debug("read loop ended", log.ErrorField(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		answer := s.control.HandleRaw(data)
		l.Debug("control request", log.Any("reply", answer))
		if err := s.bcst.Send(id, control.ReplyEvent, answer); err != nil {
			return
		}
	}
}

// ListenAndServe serves the websocket endpoint on addr at path "/" until
// ctx is done or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/", s)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
	s.log.Info("websocket server listening", log.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections. Open connections are closed by
// the broadcaster.
func (s *Server) Shutdown() {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Debug("shutdown", log.ErrorField(err))
	}
}

type connSink struct {
	conn        *websocket.Conn
	messageType int
	timeout     time.Duration
}

func (c *connSink) Write(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(c.messageType, payload)
}

func (c *connSink) Close() error {
	//nolint:errcheck // peer may already be gone
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
