package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"campusmarket/internal/app/dto"
	authsvc "campusmarket/internal/app/services/auth"
	"campusmarket/internal/app/services/messaging"
	domainlistings "campusmarket/internal/domain/listings"
	domainmessaging "campusmarket/internal/domain/messaging"
	domainuser "campusmarket/internal/domain/user"
)

type ChatHTTP interface {
	ListConversations(c *gin.Context)
	StartConversation(c *gin.Context)
	GetConversation(c *gin.Context)
	ListMessages(c *gin.Context)
	Reply(c *gin.Context)
	ReadConversation(c *gin.Context)
	Send(c *gin.Context)
	ReadMessage(c *gin.Context)
	EditMessage(c *gin.Context)
	DeleteMessage(c *gin.Context)
}

type ChatHandler struct {
	Service *messaging.Service
	Logger  *slog.Logger
}

type sendMessageRequest struct {
	ListingID  string `json:"listing_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

type textRequest struct {
	Text string `json:"text"`
}

func (h ChatHandler) ListConversations(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	limit := parseIntWithDefault(c.Query("limit"), 0)
	offset := parseIntWithDefault(c.Query("offset"), 0)
	convs, err := h.Service.ListConversations(c.Request.Context(), principal.UserID, limit, offset)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversations(convs, principal.UserID))
}

func (h ChatHandler) StartConversation(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	var req struct {
		ListingID   string `json:"listing_id"`
		OtherUserID string `json:"other_user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	conv, err := h.Service.StartConversation(c.Request.Context(), principal.UserID, domainuser.ID(req.OtherUserID), domainlistings.ListingID(req.ListingID))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conv, principal.UserID))
}

func (h ChatHandler) GetConversation(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	conv, err := h.Service.Conversation(c.Request.Context(), domainmessaging.ConversationID(c.Param("id")), principal.UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conv, principal.UserID))
}

func (h ChatHandler) ListMessages(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			badRequest(c, "before must be an RFC3339 timestamp")
			return
		}
		before = parsed
	}
	limit := messaging.PageSize(parseIntWithDefault(c.Query("limit"), 0))
	_, msgs, err := h.Service.ListMessages(c.Request.Context(), messaging.ListMessagesParams{
		ConversationID: domainmessaging.ConversationID(c.Param("id")),
		CallerID:       principal.UserID,
		Limit:          limit,
		Before:         before,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapChatMessages(msgs, limit))
}

func (h ChatHandler) Reply(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := h.Service.SendToConversation(c.Request.Context(), domainmessaging.ConversationID(c.Param("id")), principal.UserID, req.Text)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, mapSent(result, principal.UserID))
}

func (h ChatHandler) ReadConversation(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	marked, err := h.Service.MarkConversationRead(c.Request.Context(), domainmessaging.ConversationID(c.Param("id")), principal.UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

func (h ChatHandler) Send(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := h.Service.Send(c.Request.Context(), messaging.SendParams{
		SenderID:   principal.UserID,
		ReceiverID: domainuser.ID(req.ReceiverID),
		ListingID:  domainlistings.ListingID(req.ListingID),
		Body:       req.Text,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, mapSent(result, principal.UserID))
}

func (h ChatHandler) ReadMessage(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	changed, err := h.Service.MarkRead(c.Request.Context(), domainmessaging.MessageID(c.Param("id")), principal.UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h ChatHandler) EditMessage(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	msg, err := h.Service.Edit(c.Request.Context(), domainmessaging.MessageID(c.Param("id")), principal.UserID, req.Text)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapChatMessage(msg))
}

func (h ChatHandler) DeleteMessage(c *gin.Context) {
	principal, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), domainmessaging.MessageID(c.Param("id")), principal.UserID); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) caller(c *gin.Context) (principal authsvc.Principal, ok bool) {
	principal, ok = requirePrincipal(c)
	if !ok {
		return principal, false
	}
	if h.Service == nil {
		unavailable(c, "messaging service")
		return principal, false
	}
	return principal, true
}

func mapSent(result *messaging.SendResult, viewer domainuser.ID) dto.SentMessage {
	return dto.SentMessage{
		Message:      dto.MapChatMessage(result.Message),
		Conversation: dto.MapConversation(result.Conversation, viewer),
	}
}

var _ ChatHTTP = (*ChatHandler)(nil)
