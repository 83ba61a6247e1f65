package game

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/quizgen/pkg/http/errors"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

// WSHandler streams quiz events to websocket clients and accepts intents.
type WSHandler struct {
	svc      *Service
	hub      *ws.Hub
	upgrader *websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(svc *Service, hub *ws.Hub, upgrader *websocket.Upgrader, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		svc:      svc,
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "game_ws").Logger(),
	}
}

// HandleWebSocket upgrades GET /ws/quiz.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.HandleConnection(r.Context(), conn)
}

// HandleConnection serves one client until it disconnects.
func (h *WSHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	wsConn := ws.NewConnection(conn, h.logger)
	id := h.hub.Register(wsConn)
	go wsConn.WritePump()

	// a new client gets the current state straight away
	if status, err := h.svc.Status(ctx); err == nil {
		h.send(id, ws.TypeState, status, "")
	}

	ctx = context.WithoutCancel(ctx)
	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(ctx, id, msg)
	})

	h.hub.Unregister(id)
}

func (h *WSHandler) handleMessage(ctx context.Context, id uuid.UUID, msg ws.Message) error {
	var err error
	switch msg.Type {
	case ws.TypeSelectAnswer:
		var p ws.SelectAnswerPayload
		if uerr := json.Unmarshal(msg.Payload, &p); uerr != nil {
			return h.sendError(id, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid select_answer payload")
		}
		err = h.svc.SelectAnswer(ctx, p.Question, p.Option)
	case ws.TypeAdvance:
		err = h.svc.Advance(ctx)
	case ws.TypeRetreat:
		err = h.svc.Retreat(ctx)
	case ws.TypeSubmit:
		// the completed event is broadcast by the service
		_, err = h.svc.Submit(ctx)
	case ws.TypeRequestState:
		var status interface{}
		status, err = h.svc.Status(ctx)
		if err == nil {
			return h.send(id, ws.TypeState, status, msg.RequestID)
		}
	case ws.TypePing:
		return h.send(id, ws.TypePong, nil, msg.RequestID)
	default:
		return h.sendError(id, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}

	if err != nil {
		code, _, message := classify(err)
		if code == "" {
			code, message = httperrors.ErrCodeInternalError, err.Error()
		}
		return h.sendError(id, msg.RequestID, code, message)
	}
	return nil
}

func (h *WSHandler) send(id uuid.UUID, msgType string, payload interface{}, requestID string) error {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return h.hub.SendTo(id, msg)
}

func (h *WSHandler) sendError(id uuid.UUID, requestID, code, message string) error {
	return h.send(id, ws.TypeError, ws.ErrorPayload{Code: code, Message: message}, requestID)
}
