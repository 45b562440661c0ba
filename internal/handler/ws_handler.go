package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
	ws "github.com/stemsi/quizhub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams proctoring decisions to a student taking a quiz.
type WSHandler struct {
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(proctorService *service.ProctorService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/quizzes/:id/proctor?token=...
// Accepts violation and ping actions; answers each violation with a warning or a
// force_submit event.
func (h *WSHandler) ProctorStream(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	quizID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if who.Role != model.RoleStudent {
		response.Fail(c, http.StatusForbidden, response.ErrRoleNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", who.ID.String()).
		Str("quiz_id", quizID.String()).
		Logger()

	wsLog.Info().Msg("Proctor stream connected")

	ctx := c.Request.Context()
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionViolation:
			if msg.Kind != model.ViolationTabHidden && msg.Kind != model.ViolationFullscreenExit {
				_ = ws.WriteError(conn, "unknown violation kind: "+string(msg.Kind))
				continue
			}
			decision, err := h.proctorService.Report(ctx, quizID, who, msg.Kind)
			if err != nil {
				h.writeServiceError(conn, wsLog, err)
				if errors.Is(err, service.ErrQuizEnded) || errors.Is(err, service.ErrNotFound) {
					return
				}
				continue
			}
			_ = ws.WriteTyped(conn, ws.DecisionResponse{
				Event: ws.DecisionEvent(decision.Action),
				Count: decision.Count,
			})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			_ = ws.WriteError(conn, response.GetMessage(m.code))
			return
		}
	}
	wsLog.Error().Err(err).Msg("Violation report failed")
	_ = ws.WriteError(conn, response.GetMessage(response.ErrInternal))
}
