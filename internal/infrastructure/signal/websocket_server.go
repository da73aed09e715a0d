package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"
	"roomcast/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Connection states. A connection starts out connected-but-roomless, becomes
// joining while its token is being minted, and joined once the join ack has
// been sent. Disconnect is terminal from any state.
type clientState int

const (
	stateConnected clientState = iota
	stateJoining
	stateJoined
)

type SignalMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	RoomID   string `json:"roomId"`
	Name     string `json:"name"`
	Identity string `json:"identity,omitempty"`
}

type SpeakingPayload struct {
	Speaking bool `json:"speaking"`
}

type MuteStatePayload struct {
	IsMuted bool `json:"isMuted"`
}

type AudioStatePayload struct {
	IsEnabled bool `json:"isEnabled"`
}

type AudioDisabledPayload struct {
	IsAudioDisabled bool `json:"isAudioDisabled"`
}

type JoinedPayload struct {
	Token         string            `json:"token"`
	URL           string            `json:"url"`
	ExistingPeers []domain.PeerInfo `json:"existingPeers"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// Metrics is the collector surface the server reports into.
type Metrics interface {
	RecordPeerJoined(roomCreated bool)
	RecordPeerLeft(roomDeleted bool)
	RecordSignalEvent(eventType string)
	RecordDroppedEvent(reason string)
	RecordJoinFailure(reason string)
	RecordJoinDuration(seconds float64)
}

type client struct {
	id    domain.PeerID
	conn  *websocket.Conn
	send  chan []byte
	state clientState
	// pending holds the tentative registration between the join event and
	// its token completion. Hub-goroutine access only.
	pending     *ports.JoinResult
	joinStarted time.Time
}

type eventKind int

const (
	eventInbound eventKind = iota
	eventTokenResult
	eventDisconnect
)

type event struct {
	kind   eventKind
	client *client
	msg    SignalMessage
	cred   *ports.Credential
	err    error
}

type WebSocketServer struct {
	roomService  ports.RoomService
	tokenService ports.TokenService
	metrics      Metrics

	upgrader websocket.Upgrader
	events   chan event

	clients map[domain.PeerID]*client
	mu      sync.RWMutex

	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration
	tokenTimeout time.Duration
	sendBuffer   int

	newID func() domain.PeerID

	logger *zap.SugaredLogger
}

type Options struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	TokenTimeout time.Duration
	SendBuffer   int
	// NewID overrides connection id generation (tests).
	NewID func() domain.PeerID
}

func NewWebSocketServer(roomService ports.RoomService, tokenService ports.TokenService, metrics Metrics, newID func() domain.PeerID, logger *zap.SugaredLogger, opts Options) *WebSocketServer {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.TokenTimeout <= 0 {
		opts.TokenTimeout = 5 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if opts.NewID != nil {
		newID = opts.NewID
	}

	return &WebSocketServer{
		roomService:  roomService,
		tokenService: tokenService,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Should be configured properly for production
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		events:       make(chan event, 256),
		clients:      make(map[domain.PeerID]*client),
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
		writeTimeout: 10 * time.Second,
		tokenTimeout: opts.TokenTimeout,
		sendBuffer:   opts.SendBuffer,
		newID:        newID,
		logger:       logger,
	}
}

// Run drives the dispatch loop. Every signaling event is handled here, one at
// a time, so registry mutations and broadcast ordering need no further
// locking: recipients observe events in exactly the order this loop processed
// them.
func (s *WebSocketServer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{
		id:    s.newID(),
		conn:  conn,
		send:  make(chan []byte, s.sendBuffer),
		state: stateConnected,
	}

	s.mu.Lock()
	s.clients[cl.id] = cl
	s.mu.Unlock()

	s.logger.Infow("client connected", "peer_id", cl.id, "remote_addr", r.RemoteAddr)

	go s.writePump(cl)
	s.readPump(cl)
}

func (s *WebSocketServer) readPump(cl *client) {
	defer func() {
		s.events <- event{kind: eventDisconnect, client: cl}
	}()

	cl.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	for {
		var msg SignalMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("error reading message from client", "peer_id", cl.id, "error", err)
			}
			return
		}
		cl.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		s.events <- event{kind: eventInbound, client: cl, msg: msg}
	}
}

func (s *WebSocketServer) writePump(cl *client) {
	pingTicker := time.NewTicker(s.pingInterval)
	defer func() {
		pingTicker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			if !ok {
				cl.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			cl.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pingTicker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketServer) dispatch(ev event) {
	switch ev.kind {
	case eventInbound:
		s.handleMessage(ev.client, ev.msg)
	case eventTokenResult:
		s.handleTokenResult(ev.client, ev.cred, ev.err)
	case eventDisconnect:
		s.handleDisconnect(ev.client)
	}
}

func (s *WebSocketServer) handleMessage(cl *client, msg SignalMessage) {
	if s.metrics != nil && msg.Type != "" {
		s.metrics.RecordSignalEvent(msg.Type)
	}

	switch msg.Type {
	case "join":
		s.handleJoin(cl, msg)
	case "speaking":
		s.handleSpeaking(cl, msg)
	case "muteState":
		s.handleMuteState(cl, msg)
	case "audioState":
		s.handleAudioState(cl, msg)
	case "audioDisabledStateChanged":
		s.handleAudioDisabled(cl, msg)
	default:
		s.drop(cl, "unknown_type", msg.Type)
	}
}

func (s *WebSocketServer) handleJoin(cl *client, msg SignalMessage) {
	if cl.state != stateConnected {
		s.drop(cl, "already_joined", msg.Type)
		return
	}

	var payload JoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.joinError(cl, "invalid join payload", "invalid_payload")
		return
	}
	if err := validation.ValidateRoomID(payload.RoomID); err != nil {
		s.joinError(cl, err.Error(), "validation")
		return
	}
	if err := validation.ValidateDisplayName(payload.Name); err != nil {
		s.joinError(cl, err.Error(), "validation")
		return
	}
	if err := validation.ValidateIdentity(payload.Identity); err != nil {
		s.joinError(cl, err.Error(), "validation")
		return
	}

	ctx := context.Background()
	res, err := s.roomService.Join(ctx, cl.id, domain.RoomID(payload.RoomID), payload.Name, payload.Identity)
	if err != nil {
		s.joinError(cl, err.Error(), "registry")
		return
	}

	if res.Evicted != nil {
		s.evict(res.Evicted)
	}

	cl.state = stateJoining
	cl.pending = res
	cl.joinStarted = time.Now()

	// Token signing is the only blocking call in the protocol; it runs off
	// the dispatch loop and its result comes back as an event.
	go func() {
		tokenCtx, cancel := context.WithTimeout(context.Background(), s.tokenTimeout)
		defer cancel()
		cred, err := s.tokenService.MintJoinToken(tokenCtx, res.Peer.RoomID, res.Peer.Name, res.Peer.Identity)
		s.events <- event{kind: eventTokenResult, client: cl, cred: cred, err: err}
	}()
}

func (s *WebSocketServer) handleTokenResult(cl *client, cred *ports.Credential, err error) {
	if cl.state != stateJoining || cl.pending == nil {
		// The connection dropped while the token was pending; rollback
		// already happened in handleDisconnect.
		return
	}

	res := cl.pending
	cl.pending = nil

	if err != nil {
		// Transactional join: the tentative registration is rolled back and
		// the requester gets a single error. Nothing is broadcast.
		if _, leaveErr := s.roomService.Leave(context.Background(), cl.id); leaveErr != nil {
			s.logger.Errorw("failed to roll back registration", "peer_id", cl.id, "error", leaveErr)
		}
		cl.state = stateConnected
		s.logger.Warnw("token issuance failed", "peer_id", cl.id, "room_id", res.Peer.RoomID, "error", err)
		if s.metrics != nil {
			s.metrics.RecordJoinFailure(failureReason(err))
		}
		s.sendMessage(cl, "error", ErrorPayload{Error: err.Error()})
		return
	}

	cl.state = stateJoined
	if s.metrics != nil {
		s.metrics.RecordPeerJoined(res.RoomCreated)
		s.metrics.RecordJoinDuration(time.Since(cl.joinStarted).Seconds())
	}

	s.sendMessage(cl, "joined", JoinedPayload{
		Token:         cred.Token,
		URL:           cred.URL,
		ExistingPeers: res.ExistingPeers,
	})

	s.broadcastToRoom(res.Peer.RoomID, cl.id, "peerJoined", map[string]interface{}{
		"peerId":         res.Peer.ID,
		"name":           res.Peer.Name,
		"isMuted":        res.Peer.Muted,
		"isAudioEnabled": res.Peer.AudioEnabled,
	})
}

func (s *WebSocketServer) handleSpeaking(cl *client, msg SignalMessage) {
	if cl.state != stateJoined {
		s.drop(cl, dropReason(cl), msg.Type)
		return
	}

	var payload SpeakingPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.drop(cl, "invalid_payload", msg.Type)
		return
	}

	res, err := s.roomService.SetSpeaking(context.Background(), cl.id, payload.Speaking)
	if err != nil {
		s.drop(cl, "not_joined", msg.Type)
		return
	}
	if !res.Broadcast {
		// Muted peers cannot report voice activity.
		s.drop(cl, "muted", msg.Type)
		return
	}

	s.broadcastToRoom(res.Peer.RoomID, cl.id, "speakingStateChanged", map[string]interface{}{
		"peerId":   cl.id,
		"speaking": res.Speaking,
	})
}

func (s *WebSocketServer) handleMuteState(cl *client, msg SignalMessage) {
	if cl.state != stateJoined {
		s.drop(cl, dropReason(cl), msg.Type)
		return
	}

	var payload MuteStatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.drop(cl, "invalid_payload", msg.Type)
		return
	}

	res, err := s.roomService.SetMuted(context.Background(), cl.id, payload.IsMuted)
	if err != nil {
		s.drop(cl, "not_joined", msg.Type)
		return
	}

	s.broadcastToRoom(res.Peer.RoomID, cl.id, "peerMuteStateChanged", map[string]interface{}{
		"peerId":  cl.id,
		"isMuted": res.Muted,
	})

	// Muting implies speaking stopped; recipients learn both, in this order.
	if res.Muted {
		s.broadcastToRoom(res.Peer.RoomID, cl.id, "speakingStateChanged", map[string]interface{}{
			"peerId":   cl.id,
			"speaking": false,
		})
	}
}

func (s *WebSocketServer) handleAudioState(cl *client, msg SignalMessage) {
	if cl.state != stateJoined {
		s.drop(cl, dropReason(cl), msg.Type)
		return
	}

	var payload AudioStatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.drop(cl, "invalid_payload", msg.Type)
		return
	}

	res, err := s.roomService.SetAudioEnabled(context.Background(), cl.id, payload.IsEnabled)
	if err != nil {
		s.drop(cl, "not_joined", msg.Type)
		return
	}

	s.broadcastToRoom(res.Peer.RoomID, cl.id, "peerAudioStateChanged", map[string]interface{}{
		"peerId":    cl.id,
		"isEnabled": res.Enabled,
	})
}

// handleAudioDisabled relays the event verbatim; no server-side state exists
// for it.
func (s *WebSocketServer) handleAudioDisabled(cl *client, msg SignalMessage) {
	if cl.state != stateJoined {
		s.drop(cl, dropReason(cl), msg.Type)
		return
	}

	var payload AudioDisabledPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.drop(cl, "invalid_payload", msg.Type)
		return
	}

	peer, err := s.roomService.GetPeer(context.Background(), cl.id)
	if err != nil {
		s.drop(cl, "not_joined", msg.Type)
		return
	}

	s.broadcastToRoom(peer.RoomID, cl.id, "peerAudioDisabledStateChanged", map[string]interface{}{
		"peerId":          cl.id,
		"isAudioDisabled": payload.IsAudioDisabled,
	})
}

func (s *WebSocketServer) handleDisconnect(cl *client) {
	s.mu.Lock()
	_, known := s.clients[cl.id]
	delete(s.clients, cl.id)
	s.mu.Unlock()

	if !known {
		// Already evicted; nothing left to clean up.
		return
	}

	close(cl.send)

	if cl.state == stateConnected {
		s.logger.Infow("client disconnected", "peer_id", cl.id)
		return
	}

	wasPending := cl.state == stateJoining
	cl.state = stateConnected
	cl.pending = nil

	res, err := s.roomService.Leave(context.Background(), cl.id)
	if err != nil {
		if !errors.Is(err, domain.ErrPeerNotFound) {
			s.logger.Errorw("failed to remove peer on disconnect", "peer_id", cl.id, "error", err)
		}
		return
	}

	if s.metrics != nil && !wasPending {
		s.metrics.RecordPeerLeft(res.RoomDeleted)
	}

	s.broadcastToRoom(res.RoomID, cl.id, "peerLeft", map[string]interface{}{
		"peerId": cl.id,
	})

	s.logger.Infow("peer disconnected",
		"peer_id", cl.id,
		"room_id", res.RoomID,
		"room_deleted", res.RoomDeleted,
	)
}

// evict closes the displaced connection of a peer whose room+identity was
// claimed again. The registry entry is already gone; remaining members get a
// peerLeft for it.
func (s *WebSocketServer) evict(evicted *domain.Peer) {
	s.mu.Lock()
	old, ok := s.clients[evicted.ID]
	if ok {
		delete(s.clients, evicted.ID)
	}
	s.mu.Unlock()

	if ok {
		close(old.send)
		if s.metrics != nil {
			s.metrics.RecordPeerLeft(false)
		}
	}

	s.broadcastToRoom(evicted.RoomID, evicted.ID, "peerLeft", map[string]interface{}{
		"peerId": evicted.ID,
	})

	s.logger.Infow("evicted duplicate identity", "peer_id", evicted.ID, "room_id", evicted.RoomID)
}

func (s *WebSocketServer) joinError(cl *client, message, reason string) {
	if s.metrics != nil {
		s.metrics.RecordJoinFailure(reason)
	}
	s.sendMessage(cl, "error", ErrorPayload{Error: message})
}

// drop records an event that arrived outside its valid state. The sender gets
// no reply; the relay stays permissive on the wire, but the drop is visible
// in logs and metrics.
func (s *WebSocketServer) drop(cl *client, reason, eventType string) {
	if s.metrics != nil {
		s.metrics.RecordDroppedEvent(reason)
	}
	s.logger.Debugw("dropped signaling event",
		"peer_id", cl.id,
		"event_type", eventType,
		"reason", reason,
	)
}

func dropReason(cl *client) string {
	if cl.state == stateJoining {
		return "join_pending"
	}
	return "not_joined"
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrTokenUnavailable):
		return "token"
	default:
		return "internal"
	}
}

func (s *WebSocketServer) sendMessage(cl *client, msgType string, payload interface{}) {
	data, err := encodeMessage(msgType, payload)
	if err != nil {
		s.logger.Errorw("failed to encode message", "type", msgType, "error", err)
		return
	}
	s.sendRaw(cl, data)
}

func (s *WebSocketServer) sendRaw(cl *client, data []byte) {
	select {
	case cl.send <- data:
	default:
		// Slow consumer; drop the connection rather than block the loop.
		s.logger.Warnw("send buffer full, closing connection", "peer_id", cl.id)
		cl.conn.Close()
	}
}

func (s *WebSocketServer) broadcastToRoom(roomID domain.RoomID, exclude domain.PeerID, msgType string, payload interface{}) {
	members, err := s.roomService.GetRoomMembers(context.Background(), roomID)
	if err != nil {
		return
	}

	data, err := encodeMessage(msgType, payload)
	if err != nil {
		s.logger.Errorw("failed to encode broadcast", "type", msgType, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, member := range members {
		if member.ID == exclude {
			continue
		}
		if cl, ok := s.clients[member.ID]; ok {
			s.sendRaw(cl, data)
		}
	}
}

func encodeMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(SignalMessage{Type: msgType, Payload: raw})
}

// ConnectionCount reports live signaling connections (for health reporting).
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *WebSocketServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cl := range s.clients {
		cl.conn.Close()
		delete(s.clients, id)
	}
}
