package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"forestcover/ml"
)

const (
	liveReadLimit    = 4096
	liveWriteTimeout = 10 * time.Second
)

type LiveMessageType string

const (
	LivePrediction LiveMessageType = "prediction"
	LiveError      LiveMessageType = "error"
)

// LiveMessage is one server frame on the live channel.
type LiveMessage struct {
	Type       LiveMessageType `json:"type"`
	Prediction *ml.Prediction  `json:"prediction,omitempty"`
	Error      string          `json:"error,omitempty"`
	Details    []fieldDetail   `json:"details,omitempty"`
}

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origins, origin)
		},
	}
}

// handleLive answers every input frame with one prediction or error frame.
// Frames are handled in order; live previews are not written to history.
func (h *handlers) handleLive(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(liveReadLimit)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}

		reply := h.livePredict(data)
		conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write failed", zap.String("request_id", requestID), zap.Error(err))
			return
		}
	}
}

func (h *handlers) livePredict(data []byte) LiveMessage {
	var in ml.Input
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&in); err != nil {
		return LiveMessage{Type: LiveError, Error: "invalid message: " + err.Error()}
	}

	prediction, err := h.predictor.Predict(in)
	if fieldErrs := ml.FieldErrors(err); len(fieldErrs) > 0 {
		h.observe(routeLive, outcomeInvalid, nil)
		return LiveMessage{Type: LiveError, Error: "invalid input", Details: details(fieldErrs)}
	}
	if err != nil {
		h.observe(routeLive, outcomeError, nil)
		h.logger.Error("live prediction failed", zap.Error(err))
		return LiveMessage{Type: LiveError, Error: "prediction failed"}
	}
	h.observe(routeLive, outcomeOK, &prediction)
	return LiveMessage{Type: LivePrediction, Prediction: &prediction}
}
