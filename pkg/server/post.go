package server

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"marquee/pkg/schema"
	"marquee/pkg/utils"
)

type chatReq struct {
	Text string `json:"text"`
}

// POST /api/chat
//
// Runs one dialogue turn and streams its events: "agent" for each
// active-agent change, "messages" for each appended batch, "error" if the
// generation fails, "done" with the resulting stage. Returns 409 while
// another turn is in flight; the client resubmits a failed turn itself.
func (s *Server) handlePostChat(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	if !s.turnMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	}
	defer s.turnMu.Unlock()

	user := schema.NewMessage(schema.RoleUser, req.Text, "")
	s.Conversation.Messages = append(s.Conversation.Messages, user)
	s.agent.SetHistory(s.Conversation.Messages)

	w := utils.NewSSEWriter(c)
	defer w.Close()
	s.sink = w
	defer func() { s.sink = nil }()

	err := s.agent.ProcessUserMessage(c.Request().Context(), req.Text)
	if err != nil {
		log.Error("turn failed", "stage", s.agent.Stage(), "error", err)
		_ = w.Event("error", map[string]string{"error": err.Error()})
	}

	if err := utils.Save(conversationFile, s.Conversation); err != nil {
		log.Warn("failed saving conversation", "error", err)
	}

	_ = w.Event("done", map[string]string{"stage": string(s.agent.Stage())})
	return nil
}
