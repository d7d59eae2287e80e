package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tfkr-ae/gantry"
	"github.com/tfkr-ae/gantry/core"
	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/render"
	"github.com/tfkr-ae/gantry/table"
)

var (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 50 * time.Second
	maxMessageSize = int64(4096)
)

var errUnknownField = errors.New("unknown sort field")

// Persisted log messages. Setup failures are configuration errors and are
// kept apart from failed fetches.
const (
	fetchFailedMessage = "table fetch failed"
	setupFailedMessage = "table setup failed"
)

// clientMessage is a view change sent by the browser.
//
//	{"type":"page","index":n,"size":n}
//	{"type":"next"} {"type":"previous"} {"type":"first"} {"type":"last"}
//	{"type":"sort","active":f,"direction":"asc"|"desc"|""}
//	{"type":"toggle","active":f}
//	{"type":"filter","text":s}
//	{"type":"refresh"}
type clientMessage struct {
	Type      string `json:"type"`
	Index     int    `json:"index"`
	Size      int    `json:"size"`
	Active    string `json:"active"`
	Direction string `json:"direction"`
	Text      string `json:"text"`
}

// tableMessage is one emission as sent to the browser, with the rows also
// flattened to display cells.
type tableMessage[T any] struct {
	table.Emission[T]
	Cells     [][]string `json:"cells"`
	PageCount int        `json:"pageCount"`
}

type errorMessage struct {
	Error string `json:"error"`
}

// tableSocket binds one websocket to one data source and its controls.
type tableSocket[T any] struct {
	server    *Server
	conn      *websocket.Conn
	writeMu   sync.Mutex
	logger    *slog.Logger
	scope     string
	source    *table.DataSource[T]
	paginator *table.Paginator
	sorter    *table.Sorter
	fields    []string
	grid      func([]T) render.Grid
	connect   func(context.Context) (<-chan table.Emission[T], error)
}

func (s *Server) handleLaunchpadSocket(w http.ResponseWriter, r *http.Request) {
	source, paginator, sorter, err := s.app.NewLaunchpadSource()
	if err != nil {
		s.logger.Error("creating launchpad source", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	serveTable(s, w, r, &tableSocket[domain.Launchpad]{
		scope:     gantry.LaunchpadsScope,
		source:    source.DataSource,
		paginator: paginator,
		sorter:    sorter,
		fields:    gantry.LaunchpadFields,
		grid:      render.LaunchpadGrid,
		connect:   source.Connect,
	})
}

func (s *Server) handleLaunchSocket(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "missing launchpad id", http.StatusBadRequest)
		return
	}
	source, paginator, sorter, err := s.app.NewLaunchSource(id)
	if err != nil {
		s.logger.Error("creating launch source", "launchpad", id, "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	serveTable(s, w, r, &tableSocket[domain.Launch]{
		scope:     id,
		source:    source.DataSource,
		paginator: paginator,
		sorter:    sorter,
		fields:    gantry.LaunchFields,
		grid:      render.LaunchGrid,
		connect:   source.Connect,
	})
}

// serveTable upgrades the request and runs the session until the browser
// leaves or the server shuts down.
func serveTable[T any](s *Server, w http.ResponseWriter, r *http.Request, ts *tableSocket[T]) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading websocket", "error", err)
		return
	}
	defer conn.Close()

	sessionID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error("generating session id", "error", err)
		return
	}
	ctx := gantry.ContextWithScope(gantry.ContextWithSessionID(r.Context(), sessionID), ts.scope)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer ts.source.Disconnect()

	ts.server = s
	ts.conn = conn
	ts.logger = s.logger.With("session", sessionID, "scope", ts.scope)
	ts.logger.Debug("table session opened")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go ts.pingLoop(ctx)

	ts.start(ctx)
	ts.readLoop(ctx)
	ts.logger.Debug("table session closed")
}

// start connects the data source and forwards its stream to the browser.
func (ts *tableSocket[T]) start(ctx context.Context) {
	stream, err := ts.connect(ctx)
	if err != nil {
		ts.persist(ctx, setupFailedMessage, err)
		if err := ts.send(errorMessage{Error: err.Error()}); err != nil {
			ts.logger.Debug("writing error", "error", err)
		}
		return
	}
	go ts.writeLoop(ctx, stream)
}

func (ts *tableSocket[T]) writeLoop(ctx context.Context, stream <-chan table.Emission[T]) {
	for e := range stream {
		if e.Err != nil {
			ts.fail(ctx, e.Err)
			continue
		}
		ts.paginator.SetLength(e.FilteredCount)
		msg := tableMessage[T]{
			Emission:  e,
			Cells:     ts.grid(e.Rows).Rows,
			PageCount: ts.paginator.PageCount(),
		}
		if err := ts.send(msg); err != nil {
			ts.logger.Debug("writing emission", "error", err)
			return
		}
	}
}

// fail reports a failed fetch to the browser and the log store. The browser
// only ever sees the generic backend message.
func (ts *tableSocket[T]) fail(ctx context.Context, err error) {
	ts.persist(ctx, fetchFailedMessage, err)
	if err := ts.send(errorMessage{Error: render.BackendFailed}); err != nil {
		ts.logger.Debug("writing error", "error", err)
	}
}

func (ts *tableSocket[T]) persist(ctx context.Context, message string, err error) {
	logOptions := append(gantry.LogOptionsFromContext(ctx), core.LogWithContext(map[string]any{"error": err.Error()}))
	if logErr := ts.server.app.WriteLog("ERROR", message, logOptions...); logErr != nil {
		ts.logger.Error("persisting table failure", "message", message, "error", logErr)
	}
}

func (ts *tableSocket[T]) send(v any) error {
	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()
	ts.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ts.conn.WriteJSON(v)
}

func (ts *tableSocket[T]) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ts.writeMu.Lock()
			err := ts.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			ts.writeMu.Unlock()
			if err != nil {
				ts.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (ts *tableSocket[T]) readLoop(ctx context.Context) {
	ts.conn.SetReadLimit(maxMessageSize)
	ts.conn.SetReadDeadline(time.Now().Add(pongWait))
	ts.conn.SetPongHandler(func(string) error {
		return ts.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ts.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				ts.logger.Warn("reading table message", "error", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ts.reject(fmt.Errorf("decoding message : %w", err))
			continue
		}
		if err := ts.apply(ctx, msg); err != nil {
			ts.reject(err)
		}
	}
}

func (ts *tableSocket[T]) reject(err error) {
	ts.logger.Debug("rejecting table message", "error", err)
	if err := ts.send(errorMessage{Error: err.Error()}); err != nil {
		ts.logger.Debug("writing error", "error", err)
	}
}

// apply turns a browser message into a control change. The data source emits
// the result on its own.
func (ts *tableSocket[T]) apply(ctx context.Context, msg clientMessage) error {
	switch msg.Type {
	case "page":
		if msg.Size != 0 && msg.Size != ts.paginator.Page().Size {
			if err := ts.paginator.SetPageSize(msg.Size); err != nil {
				return err
			}
		}
		return ts.paginator.SetPage(msg.Index)
	case "next":
		ts.paginator.NextPage()
	case "previous":
		ts.paginator.PreviousPage()
	case "first":
		ts.paginator.FirstPage()
	case "last":
		ts.paginator.LastPage()
	case "sort":
		direction, err := table.ParseDirection(msg.Direction)
		if err != nil {
			return err
		}
		if msg.Active != "" && !slices.Contains(ts.fields, msg.Active) {
			return fmt.Errorf("%w: %q", errUnknownField, msg.Active)
		}
		ts.sorter.SetSort(msg.Active, direction)
	case "toggle":
		if !slices.Contains(ts.fields, msg.Active) {
			return fmt.Errorf("%w: %q", errUnknownField, msg.Active)
		}
		ts.sorter.Toggle(msg.Active)
	case "filter":
		ts.source.SetFilter(msg.Text)
	case "refresh":
		ts.start(ctx)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}
