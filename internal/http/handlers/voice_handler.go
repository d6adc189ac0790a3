// README: Voice handlers: transcript parsing and the streaming recognition socket.
package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wayfarer/internal/itinerary"
	"wayfarer/internal/voice"
)

const (
	maxAudioFrame    = 1 << 20
	maxRecordingTime = 5 * time.Minute
)

type VoiceHandler struct {
	recognizer *voice.Recognizer
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	now        func() time.Time
}

// NewVoiceHandler creates a VoiceHandler. recognizer may be nil, in which case
// only transcript parsing is served.
func NewVoiceHandler(recognizer *voice.Recognizer, allowOrigins []string, logger *zap.Logger) *VoiceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoiceHandler{
		recognizer: recognizer,
		upgrader:   websocket.Upgrader{CheckOrigin: originChecker(allowOrigins)},
		logger:     logger,
		now:        time.Now,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

type parseVoiceReq struct {
	Text    string                     `json:"text"`
	Current *itinerary.PlanningRequest `json:"current"`
}

// Parse handles POST /api/voice/parse. When current is given the recognised
// fields are merged into it without overwriting what is already filled in.
func (h *VoiceHandler) Parse(c *gin.Context) {
	var req parseVoiceReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(c, http.StatusBadRequest, "missing text")
		return
	}
	draft := voice.ParseTranscript(req.Text, h.now())
	resp := gin.H{"draft": draft, "recognized": !draft.Empty()}
	if req.Current != nil {
		merged := *req.Current
		draft.Apply(&merged)
		resp["request"] = merged
	}
	writeJSON(c, http.StatusOK, resp)
}

type streamMessage struct {
	Type       string            `json:"type"`
	Transcript *voice.Transcript `json:"transcript,omitempty"`
	Draft      *voice.Draft      `json:"draft,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Stream handles GET /api/voice/stream. Binary frames carry 16 kHz LINEAR16
// audio; a text frame "stop" (or closing the socket) ends the recording.
func (h *VoiceHandler) Stream(c *gin.Context) {
	if h.recognizer == nil {
		writeError(c, http.StatusServiceUnavailable, "speech recognition not configured")
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxAudioFrame)
	_ = conn.SetReadDeadline(time.Now().Add(maxRecordingTime))

	var (
		writeMu sync.Mutex
		finals  []string
	)
	send := func(m streamMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(m); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}

	session := h.recognizer.NewSession(voice.Handlers{
		OnResult: func(t voice.Transcript) {
			msg := streamMessage{Type: "transcript", Transcript: &t}
			if t.Final {
				finals = append(finals, t.Text)
				draft := voice.ParseTranscript(strings.Join(finals, ""), h.now())
				msg.Draft = &draft
			}
			send(msg)
		},
		OnError: func(err error) {
			send(streamMessage{Type: "error", Error: err.Error()})
		},
	})
	if err := session.Start(c.Request.Context()); err != nil {
		h.logger.Warn("speech session start failed", zap.Error(err))
		send(streamMessage{Type: "error", Error: "speech recognition unavailable"})
		return
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if kind == websocket.TextMessage && strings.TrimSpace(string(data)) == "stop" {
			break
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if err := session.Write(data); err != nil {
			send(streamMessage{Type: "error", Error: err.Error()})
			break
		}
	}

	if err := session.Stop(); err != nil {
		h.logger.Debug("speech session stop", zap.Error(err))
	}
	send(streamMessage{Type: "done"})
}
