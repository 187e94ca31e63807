package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/catalog-approvals/backend/internal/events"
	"github.com/catalog-approvals/backend/internal/middleware"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// eventSink is the part of a websocket connection the hub writes to.
type eventSink interface {
	WriteMessage(messageType int, data []byte) error
}

type wsClient struct {
	sink eventSink
	role rbac.Role
	mu   sync.Mutex
}

func (c *wsClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink.WriteMessage(websocket.TextMessage, data)
}

// WSHub fans catalog events out to connected reviewers. Approvers receive
// every event, editors only events about their own change requests.
type WSHub struct {
	subscriber events.Subscriber
	log        *zap.Logger
	mu         sync.RWMutex
	clients    map[uuid.UUID][]*wsClient
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber: subscriber,
		log:        log,
		clients:    make(map[uuid.UUID][]*wsClient),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamCatalog, h.broadcast)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal ws event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	requester := event.RequesterID()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, clients := range h.clients {
		for _, cl := range clients {
			if !visibleTo(cl.role, userID, requester) {
				continue
			}
			if err := cl.send(data); err != nil {
				h.log.Debug("ws write failed", zap.String("user_id", userID.String()), zap.Error(err))
			}
		}
	}
}

func visibleTo(role rbac.Role, userID uuid.UUID, requester string) bool {
	if rbac.HasPermission(role, rbac.RoleApprover) {
		return true
	}
	return requester != "" && requester == userID.String()
}

func (h *WSHub) register(userID uuid.UUID, cl *wsClient) {
	h.mu.Lock()
	h.clients[userID] = append(h.clients[userID], cl)
	h.mu.Unlock()
}

func (h *WSHub) unregister(userID uuid.UUID, cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[userID]
	for i, c := range clients {
		if c == cl {
			h.clients[userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleWS expects AuthMiddleware to have run before the upgrade.
func (h *WSHub) HandleWS(conn *websocket.Conn) {
	actor, _ := conn.Locals(middleware.CtxActor).(models.Actor)
	role, _ := conn.Locals(middleware.CtxRole).(rbac.Role)
	if actor.ID == uuid.Nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
		conn.Close()
		return
	}

	cl := &wsClient{sink: conn, role: role}
	h.register(actor.ID, cl)
	defer func() {
		h.unregister(actor.ID, cl)
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
