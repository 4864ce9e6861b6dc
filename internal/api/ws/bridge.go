package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/infrastructure/monitoring"
	"github.com/swarmlens/backend/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

var (
	// ErrNoRenderer is returned when no visual client is attached
	ErrNoRenderer = errors.New("no renderer connected")
	// ErrAckTimeout is returned when the renderer did not ack in time
	ErrAckTimeout = errors.New("renderer ack timeout")
)

// stageMessage is the wire format for both commands and client replies
type stageMessage struct {
	Type      string `json:"type"`
	OpID      string `json:"op_id,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	Task      string `json:"task,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Bridge connects the stage queue to the browser renderer. It implements
// stage.Renderer: Focus and Unfocus push a command over the attached
// WebSocket and block until the client acks completion. At most one
// renderer is active; a new connection replaces the previous one.
type Bridge struct {
	mu      sync.Mutex
	conn    *websocket.Conn          // Protected by mu
	acks    map[string]chan struct{} // Protected by mu
	writeMu sync.Mutex               // Serializes writes to conn

	ackWait time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewBridge creates a renderer bridge with the given ack deadline
func NewBridge(ackWait time.Duration, logger *logging.Logger) *Bridge {
	if ackWait <= 0 {
		ackWait = 5 * time.Second
	}
	return &Bridge{
		acks:    make(map[string]chan struct{}),
		ackWait: ackWait,
		logger:  logger,
	}
}

// WithMetrics adds metrics tracking to the bridge
func (b *Bridge) WithMetrics(metrics *monitoring.Metrics) *Bridge {
	b.metrics = metrics
	return b
}

// HandleRenderer handles the renderer's WebSocket upgrade and reply loop
func (b *Bridge) HandleRenderer(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("renderer upgrade failed", zap.Error(err))
		return
	}

	b.attach(conn)
	if b.metrics != nil {
		b.metrics.IncWSConnections("stage")
	}
	defer func() {
		b.detach(conn)
		conn.Close()
		if b.metrics != nil {
			b.metrics.DecWSConnections("stage")
		}
	}()

	b.write(conn, stageMessage{
		Type:    "system",
		Message: "connected to swarmlens stage",
	})

	for {
		var msg stageMessage
		if err := conn.ReadJSON(&msg); err != nil {
			b.logger.Debug("renderer read closed", zap.Error(err))
			return
		}
		if b.metrics != nil {
			b.metrics.RecordWSMessage("stage", msg.Type)
		}

		switch msg.Type {
		case "ack":
			b.resolve(msg.OpID)
		case "ping":
			b.write(conn, stageMessage{Type: "pong"})
		default:
			b.write(conn, stageMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

// Focus pushes a focus command and waits for the renderer's ack
func (b *Bridge) Focus(ctx context.Context, agentID, task string) error {
	return b.command(ctx, stageMessage{
		Type:    "focus",
		OpID:    id.NewOpID().String(),
		AgentID: agentID,
		Task:    task,
	})
}

// Unfocus pushes an unfocus command and waits for the renderer's ack
func (b *Bridge) Unfocus(ctx context.Context, agentID string) error {
	return b.command(ctx, stageMessage{
		Type:    "unfocus",
		OpID:    id.NewOpID().String(),
		AgentID: agentID,
	})
}

// Reset tells the renderer to drop all visual state. Fire-and-forget: the
// force-stop path must not block on a client that may be the reason for
// the reset in the first place.
func (b *Bridge) Reset() {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	if err := b.write(conn, stageMessage{Type: "reset", Timestamp: time.Now().Unix()}); err != nil {
		b.logger.Warn("renderer reset write failed", zap.Error(err))
	}
}

// Connected reports whether a renderer is attached
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) command(ctx context.Context, msg stageMessage) error {
	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return ErrNoRenderer
	}
	ackCh := make(chan struct{}, 1)
	b.acks[msg.OpID] = ackCh
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.acks, msg.OpID)
		b.mu.Unlock()
	}()

	msg.Timestamp = time.Now().Unix()
	if err := b.write(conn, msg); err != nil {
		return err
	}

	timer := time.NewTimer(b.ackWait)
	defer timer.Stop()
	select {
	case <-ackCh:
		return nil
	case <-timer.C:
		return ErrAckTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) resolve(opID string) {
	b.mu.Lock()
	ackCh, ok := b.acks[opID]
	b.mu.Unlock()
	if ok {
		select {
		case ackCh <- struct{}{}:
		default:
		}
	}
}

// attach registers a renderer connection, displacing any previous one
func (b *Bridge) attach(conn *websocket.Conn) {
	b.mu.Lock()
	prev := b.conn
	b.conn = conn
	b.mu.Unlock()

	if prev != nil {
		b.logger.Info("renderer replaced, closing previous connection")
		prev.Close()
	}
}

// detach unregisters a connection if it is still the active one
func (b *Bridge) detach(conn *websocket.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
}

func (b *Bridge) write(conn *websocket.Conn, msg stageMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return conn.WriteJSON(msg)
}
