package mazeapi

import (
	"context"
	"errors"
	"time"

	"github.com/beka-birhanu/mazegen/config"
	"github.com/beka-birhanu/mazegen/maze"
	"github.com/beka-birhanu/mazegen/service/i"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var errClientClosed = errors.New("stream client closed the connection")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// stream upgrades the request to a websocket and pushes the maze snapshot
// followed by every step event. Events that carry a whole maze (after complete
// or reset) are sent as snapshot frames. The socket is closed normally once the
// maze is complete, and with going-away when the session ends or the client
// falls behind.
func (mc *MazeController) stream(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	// Subscribe before taking the snapshot so no step falls between the two.
	events, unsubscribe, err := mc.sessions.Subscribe(id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	defer unsubscribe()

	snapshot, err := mc.sessions.Snapshot(id)
	if err != nil {
		writeError(ctx, err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		mc.logger.Printf("%s[ERROR]%s upgrading stream of maze %s: %s", config.LogErrorColor, config.LogColorReset, id, err)
		return
	}
	mc.logger.Printf("%s[INFO]%s streaming maze %s to %s", config.LogInfoColor, config.LogColorReset, id, conn.RemoteAddr())

	done := make(chan struct{})
	group, groupCtx := errgroup.WithContext(ctx.Request.Context())
	group.Go(func() error {
		return readStream(conn, done)
	})
	group.Go(func() error {
		defer func() {
			close(done)
			conn.Close()
		}()
		return writeStream(groupCtx, conn, snapshot, events)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errClientClosed) {
		mc.logger.Printf("%s[WARN]%s stream of maze %s ended: %s", config.LogWarnColor, config.LogColorReset, id, err)
		return
	}
	mc.logger.Printf("%s[INFO]%s stream of maze %s closed", config.LogInfoColor, config.LogColorReset, id)
}

// readStream drains client frames so pongs and close frames are handled.
// Errors from websocket reads are permanent, so it returns on the first one.
func readStream(conn *websocket.Conn, done <-chan struct{}) error {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case <-done:
				// the writer closed the socket
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errClientClosed
			}
			return err
		}
	}
}

// writeStream is the only writer on conn.
func writeStream(ctx context.Context, conn *websocket.Conn, snapshot i.MazeSnapshot, events <-chan i.StepEvent) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeMessage(conn, StreamMessage{Type: streamSnapshot, Maze: &snapshot}); err != nil {
		return err
	}
	if snapshot.State == maze.Complete {
		return writeClose(conn, websocket.CloseNormalClosure, "maze complete")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return writeClose(conn, websocket.CloseGoingAway, "maze subscription ended")
			}
			msg := StreamMessage{Type: streamStep, Event: &event}
			if event.Maze != nil {
				// complete and reset replace the client's view wholesale
				msg = StreamMessage{Type: streamSnapshot, Maze: event.Maze}
			}
			if err := writeMessage(conn, msg); err != nil {
				return err
			}
			if event.Result.Complete {
				return writeClose(conn, websocket.CloseNormalClosure, "maze complete")
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func writeClose(conn *websocket.Conn, code int, text string) error {
	return conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait),
	)
}
