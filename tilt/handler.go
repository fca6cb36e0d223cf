package tilt

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Module exposes the tilt calibration stream over websocket. Each connected
// device pushes its raw orientation samples and receives the calibrated,
// clamped lighting tilt back.
type Module struct {
	upgrader websocket.Upgrader
}

// RegisterRoutes mounts the stream endpoint under /tilt.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	module := &Module{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	router.GET("/tilt/stream", module.handleStream)

	return module, nil
}

type streamMessage struct {
	Type  string  `json:"type,omitempty"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Unit  string  `json:"unit,omitempty"`
}

func (m *Module) handleStream(c *gin.Context) {
	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("tilt: upgrade stream connection: %v", err)
		return
	}
	defer conn.Close()

	calibrator := NewCalibrator()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				if ce.Code != websocket.CloseNormalClosure && ce.Code != websocket.CloseGoingAway {
					log.Printf("tilt: stream closed: %v", err)
				}
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg streamMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		if msg.Type == "recalibrate" {
			calibrator.Reset()
			continue
		}

		state, emit := calibrator.Observe(Sample{Pitch: msg.Pitch, Roll: msg.Roll, Unit: msg.Unit})
		if !emit {
			continue
		}

		if err := conn.WriteJSON(state); err != nil {
			log.Printf("tilt: write stream state: %v", err)
			return
		}
	}
}
