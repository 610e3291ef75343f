package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("ws is closed")

const writeWait = 10 * time.Second

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Message struct {
	MsgType int
	Message []byte
}

// Client serializes writes to a websocket connection through a buffered queue.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeChan chan *Message
	readChan  chan *Message

	closed bool
	lock   sync.Mutex
}

func (ws *Client) Close() error {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	if ws.closed {
		return nil
	}

	metrics.Connections.Dec()
	ws.closed = true
	close(ws.writeChan)

	return nil
}

// NewWsClient starts the read and write loops. done is closed once the write
// loop has flushed its queue and the connection is closed.
func NewWsClient(conn *websocket.Conn, logger *slog.Logger) (client *Client, done chan struct{}) {
	if logger == nil {
		logger = slog.Default()
	}

	client = &Client{
		conn:   conn,
		logger: logger,

		writeChan: make(chan *Message, 32),
		readChan:  make(chan *Message),
	}

	metrics.Connections.Inc()

	done = make(chan struct{})

	go func() {
		defer close(client.readChan)
		defer client.Close()

		for {
			msg := &Message{}
			var err error

			msg.MsgType, msg.Message, err = conn.ReadMessage()
			if err != nil {
				break
			}

			client.readChan <- msg
		}
	}()

	go func() {
		defer close(done)
		defer conn.Close()
		defer func() {
			for range client.writeChan {
			}
		}()

		for msg := range client.writeChan {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(msg.MsgType, msg.Message); err != nil {
				metrics.WriteErrors.Inc()
				client.logger.Warn("ws write failed", "err", err)
				_ = conn.Close()
				break
			}
			metrics.MessagesSent.Inc()
		}

		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	}()

	return client, done
}

func (ws *Client) Send(msg *Message) error {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	if ws.closed {
		return ErrClosed
	}

	ws.writeChan <- msg

	return nil
}

func (ws *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal ws message: %w", err)
	}

	return ws.Send(&Message{MsgType: websocket.TextMessage, Message: data})
}

func (ws *Client) Read() (*Message, error) {
	msg, ok := <-ws.readChan
	if !ok {
		return nil, ErrClosed
	}

	return msg, nil
}

// DrainRead discards incoming messages until the peer goes away.
func (ws *Client) DrainRead() {
	for {
		_, err := ws.Read()
		if err != nil {
			return
		}
	}
}
