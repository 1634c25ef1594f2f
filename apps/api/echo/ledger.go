package echoapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/ledger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
	defaultPage    = 50
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // origins are enforced by the CORS middleware
}

type ledgerApi struct {
	svcs    *di.Container
	svc     *ledger.Service
	metrics *httpMetrics
}

func registerLedgerAPI(g *echo.Group, svcs *di.Container, metrics *httpMetrics) {
	api := ledgerApi{svcs: svcs, svc: svcs.Ledger, metrics: metrics}

	g.GET("/status", api.status)
	g.GET("/blocks", api.blocks)
	g.GET("/blocks/verify", api.verify)
	g.GET("/blocks/:height", api.block)
	g.GET("/ws/blocks", api.subscribe)
}

type StatusResponse struct {
	ledger.Status
	Counts map[string]int `json:"counts"`
}

func (api *ledgerApi) status(ctx echo.Context) error {
	c := ctx.Request().Context()
	status, err := api.svc.Status(c)
	if err != nil {
		return errors.Wrap(err, "getting ledger status")
	}

	counters := []struct {
		name  string
		count func() (int, error)
	}{
		{"institutions", func() (int, error) { return api.svcs.Institutions.Count(c) }},
		{"courses", func() (int, error) { return api.svcs.Courses.Count(c) }},
		{"subjects", func() (int, error) { return api.svcs.Subjects.Count(c) }},
		{"students", func() (int, error) { return api.svcs.Students.Count(c) }},
		{"tokens", func() (int, error) { return api.svcs.Tokens.Count(c) }},
	}
	counts := make(map[string]int, len(counters))
	for _, counter := range counters {
		n, err := counter.count()
		if err != nil {
			return errors.Wrapf(err, "counting %s", counter.name)
		}
		counts[counter.name] = n
	}
	return ctx.JSON(http.StatusOK, StatusResponse{Status: status, Counts: counts})
}

// blocks lists `?limit=` blocks from `?from=` upwards.
func (api *ledgerApi) blocks(ctx echo.Context) error {
	from := intQuery(ctx, "from", 1)
	if from < 1 {
		from = 1
	}
	blocks, err := api.svc.Blocks(ctx.Request().Context(), uint64(from), intQuery(ctx, "limit", defaultPage))
	if err != nil {
		return errors.Wrap(err, "querying blocks")
	}
	return list(ctx, blocks)
}

func (api *ledgerApi) block(ctx echo.Context) error {
	height, err := uintParam(ctx, "height")
	if err != nil {
		return err
	}
	b, err := api.svc.GetBlock(ctx.Request().Context(), height)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *ledgerApi) verify(ctx echo.Context) error {
	res, err := api.svc.Verify(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "verifying ledger")
	}
	return ctx.JSON(http.StatusOK, res)
}

// subscribe streams every new block to a websocket client until either side closes.
func (api *ledgerApi) subscribe(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer func() { _ = conn.Close() }()

	blocks, cancel := api.svc.Hub().Subscribe()
	defer cancel()
	api.metrics.sockets.Inc()
	defer api.metrics.sockets.Dec()

	// the read pump only handles control frames; it stops when the client goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case b, ok := <-blocks:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return nil
			}
			if err := conn.WriteJSON(b); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
