package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/workspace"
)

const (
	writeTimeout      = 30 * time.Second
	heartbeatInterval = 30 * time.Second
)

// update is the message pushed to every websocket client.
type update struct {
	Session string `json:"session"`
	Project string `json:"project"`
	Seq     uint64 `json:"seq"`
	edges.Report
}

// hub re-routes the session's edges after every change and fans the result
// out to websocket clients. Routing requests are coalesced: a burst of rect
// reports produces one routing pass.
type hub struct {
	sess   *workspace.Session
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	routeCh chan struct{}

	clientsMu sync.Mutex
	closing   bool
	clientsWG sync.WaitGroup
	clients   map[*wsclient]struct{}

	resMu sync.Mutex
	seq   uint64
	res   *update
}

func newHub(sess *workspace.Session, logger *log.Logger) *hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &hub{
		sess:    sess,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		routeCh: make(chan struct{}, 1),
		clients: make(map[*wsclient]struct{}),
	}
}

// run routes and broadcasts until ctx is done.
func (h *hub) run(ctx context.Context) error {
	stop := h.sess.Watch(h.requestRoute)
	defer stop()

	h.requestRoute()
	for {
		select {
		case <-h.routeCh:
		case <-ctx.Done():
			return nil
		}
		h.broadcast(h.route())
	}
}

func (h *hub) requestRoute() {
	select {
	case h.routeCh <- struct{}{}:
	default:
	}
}

func (h *hub) route() *update {
	rep := h.sess.RenderedReport()
	h.resMu.Lock()
	h.seq++
	seq := h.seq
	h.resMu.Unlock()
	return &update{
		Session: h.sess.ID(),
		Project: h.sess.ProjectID(),
		Seq:     seq,
		Report:  rep,
	}
}

// latest returns the last broadcast result, routing once if nothing has
// been broadcast yet.
func (h *hub) latest() *update {
	h.resMu.Lock()
	res := h.res
	h.resMu.Unlock()
	if res != nil {
		return res
	}
	res = h.route()
	h.resMu.Lock()
	if h.res == nil {
		h.res = res
	}
	res = h.res
	h.resMu.Unlock()
	return res
}

func (h *hub) broadcast(res *update) {
	h.resMu.Lock()
	h.res = res
	h.resMu.Unlock()

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.logger.Debug("broadcasting edges", "clients", len(h.clients), "edges", len(res.Edges), "dropped", len(res.Dropped), "seq", res.Seq)
	for cl := range h.clients {
		select {
		case cl.resultsCh <- struct{}{}:
		default:
		}
	}
}

// close stops accepting clients and waits for connected ones to exit.
func (h *hub) close() {
	h.clientsMu.Lock()
	if h.closing {
		h.clientsMu.Unlock()
		return
	}
	h.closing = true
	h.clientsMu.Unlock()

	h.cancel()
	h.clientsWG.Wait()
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	h := s.hub
	h.clientsMu.Lock()
	if h.closing {
		h.clientsMu.Unlock()
		writeDetail(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	// Register before the upgrade so close waits for this client.
	h.clientsWG.Add(1)
	h.clientsMu.Unlock()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
		OriginPatterns:  s.origins,
	})
	if err != nil {
		h.clientsWG.Done()
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	go func() {
		defer h.clientsWG.Done()
		defer c.Close(websocket.StatusInternalError, "unexpected exit")

		ctx := c.CloseRead(h.ctx)
		cl := &wsclient{h: h, c: c, resultsCh: make(chan struct{}, 1)}

		h.clientsMu.Lock()
		h.clients[cl] = struct{}{}
		h.clientsMu.Unlock()
		defer func() {
			h.clientsMu.Lock()
			delete(h.clients, cl)
			h.clientsMu.Unlock()
		}()

		go heartbeat(ctx, c)
		if err := cl.writeLoop(ctx); err != nil && ctx.Err() == nil {
			h.logger.Debug("websocket client gone", "err", err)
		}
	}()
}

type wsclient struct {
	h         *hub
	c         *websocket.Conn
	resultsCh chan struct{}
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	for {
		if err := cl.write(ctx, cl.h.latest()); err != nil {
			return err
		}
		select {
		case <-cl.resultsCh:
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down")
			return ctx.Err()
		}
	}
}

func (cl *wsclient) write(ctx context.Context, res *update) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, cl.c, res)
}

func heartbeat(ctx context.Context, c *websocket.Conn) {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := c.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
