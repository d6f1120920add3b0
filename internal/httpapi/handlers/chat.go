package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/brands-digger/internal/common"
	"github.com/suPer8Hu/brands-digger/internal/conversation"
	"github.com/suPer8Hu/brands-digger/internal/log"
)

// fail maps controller errors onto the envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, conversation.ErrChatNotFound):
		common.Fail(c, http.StatusNotFound, 40004, "chat not found")
	case errors.Is(err, conversation.ErrOperationNotFound):
		common.Fail(c, http.StatusNotFound, 40402, "operation not found")
	case errors.Is(err, conversation.ErrEmptyPrompt):
		common.Fail(c, http.StatusBadRequest, 40001, "message is empty")
	case errors.Is(err, conversation.ErrPromptTooLong):
		common.Fail(c, http.StatusBadRequest, 40002, "message is too long")
	case errors.Is(err, conversation.ErrSuggestMoreUnavailable):
		common.Fail(c, http.StatusConflict, 40901, "suggest more is not available")
	default:
		h.log.Error().Err(err).Str("request_id", c.GetString(log.RequestIDKey)).Msg("unhandled error")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
	}
}

func async(c *gin.Context) bool {
	switch c.Query("async") {
	case "1", "true":
		return true
	}
	return false
}

func (h *Handler) ListChats(c *gin.Context) {
	common.OK(c, h.Conv.Snapshot())
}

func (h *Handler) CreateChat(c *gin.Context) {
	common.OK(c, h.Conv.NewChat(c.Request.Context()))
}

func (h *Handler) GetChat(c *gin.Context) {
	ch, err := h.Conv.Chat(c.Param("chat_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{
		"chat":             ch,
		"in_flight":        h.Conv.InFlight(ch.ID),
		"can_suggest_more": h.Conv.CanSuggestMore(ch.ID),
	})
}

// DeleteChat answers with the session after deletion so the caller sees
// which chat became active.
func (h *Handler) DeleteChat(c *gin.Context) {
	if err := h.Conv.DeleteChat(c.Request.Context(), c.Param("chat_id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, h.Conv.Snapshot())
}

type selectChatReq struct {
	ChatID string `json:"chat_id" binding:"required"`
}

func (h *Handler) SelectChat(c *gin.Context) {
	var req selectChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if err := h.Conv.SelectChat(c.Request.Context(), req.ChatID); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, h.Conv.Snapshot())
}

type sendMessageReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	chatID := c.Param("chat_id")

	if async(c) {
		op, err := h.Conv.SendAsync(chatID, req.Message)
		if err != nil {
			h.fail(c, err)
			return
		}
		common.Accepted(c, gin.H{"operation": op})
		return
	}

	res, err := h.Conv.Send(c.Request.Context(), chatID, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, res)
}

func (h *Handler) SuggestMore(c *gin.Context) {
	chatID := c.Param("chat_id")

	if async(c) {
		op, err := h.Conv.SuggestMoreAsync(chatID)
		if err != nil {
			h.fail(c, err)
			return
		}
		common.Accepted(c, gin.H{"operation": op})
		return
	}

	res, err := h.Conv.SuggestMore(c.Request.Context(), chatID)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, res)
}

func (h *Handler) GetOperation(c *gin.Context) {
	op, err := h.Conv.Operation(c.Param("op_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"operation": op})
}
