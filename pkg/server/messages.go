package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"marquee/pkg/schema"
	"marquee/pkg/utils"
)

// The message and settings handlers share turnMu with the chat handler:
// history may only be read or replaced between turns, never during one.

// GET /api/messages
func (s *Server) handleGetMessages(c echo.Context) error {
	if !s.turnMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	}
	defer s.turnMu.Unlock()

	return c.JSON(http.StatusOK, s.Conversation)
}

// PUT /api/messages replaces the history wholesale. The orchestrator reads
// the replaced snapshot before building its next prompt.
func (s *Server) handlePutMessages(c echo.Context) error {
	var conv schema.Conversation
	if err := c.Bind(&conv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	if !s.turnMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	}
	defer s.turnMu.Unlock()

	s.Conversation = conv
	s.agent.SetHistory(conv.Messages)
	if err := utils.Save(conversationFile, s.Conversation); err != nil {
		log.Warn("failed saving conversation", "error", err)
	}
	return c.JSON(http.StatusOK, s.Conversation)
}

// DELETE /api/messages starts the dialogue over: default history, initial stage.
func (s *Server) handleDeleteMessages(c echo.Context) error {
	if !s.turnMu.TryLock() {
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	}
	defer s.turnMu.Unlock()

	s.Conversation = schema.DefaultConversation()
	s.agent.Reset()
	s.agent.SetHistory(s.Conversation.Messages)
	if err := utils.Save(conversationFile, s.Conversation); err != nil {
		log.Warn("failed saving conversation", "error", err)
	}
	return c.JSON(http.StatusOK, s.Conversation)
}
