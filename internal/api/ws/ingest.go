package ws

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swarmlens/backend/internal/domain/stage"
	"github.com/swarmlens/backend/internal/domain/swarm"
	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/infrastructure/monitoring"
	"github.com/swarmlens/backend/internal/shared/types"
)

// feedMessage is the wire format pushed by the upstream feed bridge
type feedMessage struct {
	Type  string           `json:"type"`
	Kind  types.ChangeKind `json:"kind,omitempty"`
	Agent types.Agent      `json:"agent,omitempty"`
}

// Ingest consumes agent record changes pushed by the upstream feed bridge.
// The handler applies changes in the order the connection delivers them;
// the single read loop is what preserves the store's single-writer path.
type Ingest struct {
	store   *swarm.Store
	queue   *stage.Queue
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewIngest creates a feed ingest handler
func NewIngest(store *swarm.Store, queue *stage.Queue, logger *logging.Logger) *Ingest {
	return &Ingest{
		store:  store,
		queue:  queue,
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the ingest handler
func (h *Ingest) WithMetrics(metrics *monitoring.Metrics) *Ingest {
	h.metrics = metrics
	return h
}

// HandleFeed handles the feed bridge's WebSocket upgrade and change loop
func (h *Ingest) HandleFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("feed upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections("ingest")
		defer h.metrics.DecWSConnections("ingest")
	}

	conn.WriteJSON(stageMessage{Type: "system", Message: "feed connected"})

	for {
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.logger.Debug("feed read closed", zap.Error(err))
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("ingest", msg.Type)
		}

		switch msg.Type {
		case "change":
			h.applyChange(conn, msg)
		case "reset":
			// Project switched upstream: stale agents and pending
			// animations must not leak into the new context
			h.logger.Info("feed reset, clearing mirrored state")
			h.store.Reset()
			h.queue.ForceStop()
		case "ping":
			conn.WriteJSON(stageMessage{Type: "pong"})
		default:
			conn.WriteJSON(stageMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Ingest) applyChange(conn connWriter, msg feedMessage) {
	switch msg.Kind {
	case types.ChangeAdded, types.ChangeModified, types.ChangeRemoved:
	default:
		conn.WriteJSON(stageMessage{Type: "error", Message: "unknown change kind"})
		return
	}
	if msg.Agent.ID == "" {
		conn.WriteJSON(stageMessage{Type: "error", Message: "change missing agent id"})
		return
	}

	h.store.Apply(types.Change{Kind: msg.Kind, Agent: msg.Agent})
}

// connWriter is the slice of *websocket.Conn the change path needs
type connWriter interface {
	WriteJSON(v interface{}) error
}
