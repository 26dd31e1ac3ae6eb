package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StreamMessage 推送给前端的消息
type StreamMessage struct {
	Type  string `json:"type"` // meta / row / trade / stats / done / error
	ID    string `json:"id,omitempty"`
	Index int    `json:"index,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamBacktest 每收到一个 BacktestRequest 就执行回测，逐行推送结果
func (h *Handler) StreamBacktest(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v\n", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		var req BacktestRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[WS] read error: %v\n", err)
			}
			return
		}

		run, err := h.execute(ctx, req)
		if err != nil {
			if werr := conn.WriteJSON(StreamMessage{Type: "error", Error: err.Error()}); werr != nil {
				log.Printf("[WS] write error: %v\n", werr)
				return
			}
			continue
		}

		rep := run.Report
		msgs := make([]StreamMessage, 0, len(rep.Rows)+len(rep.Trades)+3)
		msgs = append(msgs, StreamMessage{Type: "meta", ID: run.ID, Data: gin.H{
			"source": rep.Source,
			"ticker": rep.Ticker,
			"start":  rep.Start,
			"end":    rep.End,
			"bars":   rep.Bars,
			"config": rep.Config,
		}})
		for i, row := range rep.Rows {
			msgs = append(msgs, StreamMessage{Type: "row", ID: run.ID, Index: i, Data: row})
		}
		for _, tr := range rep.Trades {
			msgs = append(msgs, StreamMessage{Type: "trade", ID: run.ID, Index: tr.Index, Data: tr})
		}
		msgs = append(msgs,
			StreamMessage{Type: "stats", ID: run.ID, Data: rep.Display},
			StreamMessage{Type: "done", ID: run.ID},
		)

		for _, m := range msgs {
			if err := conn.WriteJSON(m); err != nil {
				log.Printf("[WS] write error: %v\n", err)
				return
			}
		}
	}
}
