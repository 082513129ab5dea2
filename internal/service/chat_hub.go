package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pawfinder/pawfinder-api/internal/apperr"
	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/observability"
)

const (
	hubSendBufferSize = 32
	hubCacheTTL       = 30 * time.Minute
)

// Client-to-server event names.
const (
	eventJoinChat    = "join_chat"
	eventSendMessage = "send_message"
)

// Server-to-client event names.
const (
	eventNewMessage = "new_message"
	eventError      = "error"
)

// HubInbound is the envelope clients send over the websocket.
type HubInbound struct {
	Event  string `json:"event"`
	ChatID uint   `json:"chat_id"`
	Text   string `json:"text"`
}

// HubOutbound is the envelope the hub writes back to clients.
type HubOutbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// HubErrorPayload carries a domain error over the realtime channel.
type HubErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type hubEvent struct {
	Source  string              `json:"source"`
	ChatID  uint                `json:"chat_id"`
	Message dto.MessageResponse `json:"message"`
	SentAt  time.Time           `json:"sent_at"`
}

// ChatHub tracks live websocket connections grouped into per-chat rooms
// and fans out newly sent messages. Cross-node delivery goes through the
// Redis channel and NATS subject; events tagged with this node's id are
// skipped on consumption. The latest message of each chat is kept in
// Redis and replayed to clients joining a room.
type ChatHub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*hubClient]struct{}

	service      ChatService
	redis        *redis.Client
	redisChannel string
	cacheKeyBase string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

type hubClient struct {
	conn    *websocket.Conn
	userID  uint
	send    chan HubOutbound
	rooms   map[uint]struct{}
	closed  chan struct{}
	once    sync.Once
	hub     *ChatHub
	baseCtx context.Context
}

// NewChatHub constructs the realtime hub. Redis and NATS are optional;
// a nil client disables that fan-out path.
func NewChatHub(service ChatService, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *ChatHub {
	redisChannel := ""
	cacheKeyBase := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":chat"
		cacheKeyBase = channelBase + ":chat:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &ChatHub{
		rooms:        make(map[uint]map[*hubClient]struct{}),
		service:      service,
		redis:        redisClient,
		redisChannel: redisChannel,
		cacheKeyBase: cacheKeyBase,
		nats:         natsConn,
		natsSubject:  natsSubject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "chat_hub").Logger(),
	}
}

// Start launches the cross-node event consumers.
func (h *ChatHub) Start(ctx context.Context) {
	if h.redis != nil && h.redisChannel != "" {
		go h.consumeRedis(ctx)
	}
	if h.nats != nil && h.natsSubject != "" {
		go h.consumeNATS(ctx)
	}
}

// ServeConnection runs the read loop for an authenticated connection and
// blocks until the client disconnects.
func (h *ChatHub) ServeConnection(conn *websocket.Conn, userID uint, baseCtx context.Context) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &hubClient{
		conn:    conn,
		userID:  userID,
		send:    make(chan HubOutbound, hubSendBufferSize),
		rooms:   make(map[uint]struct{}),
		closed:  make(chan struct{}),
		hub:     h,
		baseCtx: baseCtx,
	}

	observability.ChatConnectionsTotal().Inc()

	go client.writer()
	client.reader()
}

func (h *ChatHub) handleInbound(client *hubClient, inbound HubInbound) {
	switch inbound.Event {
	case eventJoinChat:
		h.handleJoin(client, inbound.ChatID)
	case eventSendMessage:
		h.handleSend(client, inbound)
	default:
		client.unicastError(apperr.InvalidInput("unknown event %q", inbound.Event))
	}
}

// handleJoin admits the connection to a room only after the same
// participancy check the REST history endpoint applies.
func (h *ChatHub) handleJoin(client *hubClient, chatID uint) {
	if chatID == 0 {
		client.unicastError(apperr.InvalidInput("chat_id must be positive"))
		return
	}

	ok, err := h.service.IsParticipant(client.baseCtx, chatID, client.userID)
	if err != nil {
		client.unicastError(err)
		return
	}
	if !ok {
		client.unicastError(apperr.NoPermission("user %d is not a participant of chat %d", client.userID, chatID))
		return
	}

	h.mu.Lock()
	if _, exists := h.rooms[chatID]; !exists {
		h.rooms[chatID] = make(map[*hubClient]struct{})
	}
	h.rooms[chatID][client] = struct{}{}
	client.rooms[chatID] = struct{}{}
	h.mu.Unlock()

	// A freshly joined client gets the chat's latest message so its view
	// is current before the next live broadcast arrives.
	if last := h.fetchLastMessage(client.baseCtx, chatID); last != nil {
		select {
		case client.send <- HubOutbound{Event: eventNewMessage, Data: *last}:
		default:
			h.logger.Debug().Uint("chat_id", chatID).Msg("dropping cached chat message for slow client")
		}
	}

	h.logger.Debug().Uint("chat_id", chatID).Uint("user_id", client.userID).Msg("client joined room")
}

func (h *ChatHub) handleSend(client *hubClient, inbound HubInbound) {
	message, err := h.service.SendMessage(client.baseCtx, client.userID, inbound.ChatID, inbound.Text)
	if err != nil {
		client.unicastError(err)
		return
	}

	h.Dispatch(client.baseCtx, inbound.ChatID, message)
}

// Dispatch delivers a freshly stored message to local room members and
// publishes it for the other nodes. Used by both the websocket send path
// and the REST send endpoint so clients see one stream.
func (h *ChatHub) Dispatch(ctx context.Context, chatID uint, message dto.MessageResponse) {
	h.Broadcast(chatID, message)
	h.cacheLastMessage(ctx, chatID, message)
	if err := h.publish(ctx, chatID, message); err != nil {
		h.logger.Warn().Err(err).Msg("failed to publish chat event")
	}
}

func (h *ChatHub) cacheLastMessage(ctx context.Context, chatID uint, message dto.MessageResponse) {
	if h.redis == nil || h.cacheKeyBase == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to marshal chat message for cache")
		return
	}

	key := fmt.Sprintf("%s:%d", h.cacheKeyBase, chatID)
	if err := h.redis.Set(ctx, key, payload, hubCacheTTL).Err(); err != nil {
		h.logger.Warn().Err(err).Msg("failed to cache chat message")
	}
}

func (h *ChatHub) fetchLastMessage(ctx context.Context, chatID uint) *dto.MessageResponse {
	if h.redis == nil || h.cacheKeyBase == "" {
		return nil
	}

	result, err := h.redis.Get(ctx, fmt.Sprintf("%s:%d", h.cacheKeyBase, chatID)).Result()
	if err != nil {
		return nil
	}

	var message dto.MessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		h.logger.Warn().Err(err).Msg("failed to unmarshal cached chat message")
		return nil
	}

	return &message
}

// Broadcast delivers the message to every connection in the chat's room,
// the sender included. Delivery is best effort; slow consumers are skipped.
func (h *ChatHub) Broadcast(chatID uint, message dto.MessageResponse) {
	frame := HubOutbound{Event: eventNewMessage, Data: message}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[chatID] {
		select {
		case client.send <- frame:
		default:
			h.logger.Warn().Uint("chat_id", chatID).Uint("user_id", client.userID).Msg("dropping message for slow client")
		}
	}
}

func (h *ChatHub) unregister(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for chatID := range client.rooms {
		if clients, ok := h.rooms[chatID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	h.logger.Debug().Uint("user_id", client.userID).Msg("client disconnected")
}

func (h *ChatHub) publish(ctx context.Context, chatID uint, message dto.MessageResponse) error {
	event := hubEvent{
		Source:  h.nodeID,
		ChatID:  chatID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if h.redis != nil && h.redisChannel != "" {
		if err := h.redis.Publish(ctx, h.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if h.nats != nil && h.natsSubject != "" {
		if err := h.nats.Publish(h.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (h *ChatHub) consumeRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			h.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		h.handleEvent([]byte(msg.Payload))
	}
}

func (h *ChatHub) consumeNATS(ctx context.Context) {
	sub, err := h.nats.QueueSubscribe(h.natsSubject, "pawfinder-chat", func(msg *nats.Msg) {
		h.handleEvent(msg.Data)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (h *ChatHub) handleEvent(data []byte) {
	var event hubEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == h.nodeID {
		return
	}

	h.Broadcast(event.ChatID, event.Message)
}

func (c *hubClient) reader() {
	defer c.close()

	for {
		var inbound HubInbound
		if err := c.conn.ReadJSON(&inbound); err != nil {
			c.hub.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		c.hub.handleInbound(c, inbound)

		select {
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *hubClient) writer() {
	defer c.close()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.hub.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.hub.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// unicastError reports a failure to the originating connection only. The
// connection stays open.
func (c *hubClient) unicastError(err error) {
	domainErr := apperr.From(err)
	frame := HubOutbound{Event: eventError, Data: HubErrorPayload{Code: string(domainErr.Code), Message: domainErr.Message}}

	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn().Uint("user_id", c.userID).Msg("dropping error frame for slow client")
	}
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.hub.unregister(c)
		_ = c.conn.Close()
	})
}
