package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer. Acks are tiny.
	maxMessageSize = 8192

	pingResolution = time.Millisecond * 500
	// By definition, it encompasses the number of pings to tolerate losing before
	// concluding the peer is gone.
	pongWait = pingResolution * 6
)

var upgrader = websocket.Upgrader{}

// A client pumps a stage's commands to one page and feeds the page's acks back to the stage.
type client struct {
	stage *Stage
	// gen is the stage generation this client was attached as.
	gen   uint64
	ws    *websock
	pongs chan struct{}
}

// NewClient upgrades the request to a websocket serving the passed stage.
func NewClient(
	stage *Stage,
	w http.ResponseWriter,
	r *http.Request,
) (*client, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the request.
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	cli := &client{
		stage: stage,
		ws:    NewWebSocket(ws),
		pongs: make(chan struct{}, 1),
	}
	// Set before any read, since pongs are handled by the reader.
	ws.SetPongHandler(func(_ string) error {
		select {
		case cli.pongs <- struct{}{}:
		default:
		}
		return nil
	})
	return cli, nil
}

// Sync runs the client until the page disconnects or ctx is cancelled, and then closes the
// websocket. Sync returns nil upon client disconnect or cancellation, or an error if an
// unexpected error occurred.
func (cli *client) Sync(ctx context.Context) error {
	// Any routine returning ends the session, including on graceful closure.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.publish(groupCtx)
	})
	group.Go(func() error {
		// Reads block regardless of context; closing the socket releases them.
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})

	return group.Wait()
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// Runs the ping-pong for the client liveness check.
// NOTE: This function requires that readMessages is running to ensure the pong handler is called.
func (cli *client) pingPong(ctx context.Context) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-cli.pongs:
			lastPong = time.Now()
		}
	}
}

func (cli *client) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				err = fmt.Errorf("ping failed: %T %w", err, err)
			}
			return
		})
}

// readMessages decodes acks from the page and resolves them on the stage.
// Errors returned by websocket Read methods are permanent, hence any error
// must trigger full teardown.
func (cli *client) readMessages(ctx context.Context) error {
	for {
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) error {
				var ack Ack
				if readErr := ws.ReadJSON(&ack); readErr != nil {
					return readErr
				}
				cli.stage.resolve(ack)
				return nil
			})

		switch {
		case err == nil:
			if ctx.Err() != nil {
				return nil
			}
		case ctx.Err() != nil, isClosure(err):
			return nil
		case errors.Is(err, ErrSockCongestion):
			// Only this routine reads; congestion cannot persist.
		default:
			return fmt.Errorf("read ack: %w", err)
		}
	}
}

// publish sends queued commands to the page as json arrays, in submission order.
func (cli *client) publish(ctx context.Context) error {
	for {
		cmds, err := cli.stage.next(ctx, cli.gen)
		if err != nil {
			return nil
		}

		err = cli.ws.Write(
			ctx,
			func(ws *websocket.Conn) (writeErr error) {
				if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
					writeErr = fmt.Errorf("failed to set deadline: %T %w", writeErr, writeErr)
					return
				}

				if writeErr = ws.WriteJSON(cmds); writeErr != nil {
					writeErr = fmt.Errorf("publish failed: %T %w", writeErr, writeErr)
				}
				return
			})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	readDeadline  = time.Second
	writeDeadline = time.Second
)

// websock merely serializes reads and writes to the websocket, whose requirements
// are that there may be only one concurrent read and writer at a time.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func NewWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Close sends a close frame, if the writer is free in time, and closes the connection.
// A blocked reader is released with an error.
func (sock *websock) Close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = sock.ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-sock.writeSem
	case <-time.After(writeDeadline):
	}
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(readDeadline):
		return ErrSockCongestion
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
