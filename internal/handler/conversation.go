package handler

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/response"
	"marketplace-rest-api/pkg/uid"

	"go.uber.org/zap"
)

const (
	maxMessageLength    = 2000
	defaultMessageLimit = 100
	maxMessageLimit     = 200
)

// ConversationHandler handles buyer/seller messaging.
type ConversationHandler struct {
	conversations repository.ConversationRepository
	listings      repository.ListingRepository
	logger        *zap.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(
	conversations repository.ConversationRepository,
	listings repository.ListingRepository,
	logger *zap.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		listings:      listings,
		logger:        logger,
	}
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	conversations, err := h.conversations.ListForUser(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to list conversations", err)
		return
	}
	response.OK(w, conversations)
}

// StartConversationRequest is the body of POST /api/conversations.
type StartConversationRequest struct {
	ListingID string `json:"listing_id"`
}

// Start handles POST /api/conversations
func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req StartConversationRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	listingID := uid.Normalize(req.ListingID)
	if listingID == "" {
		response.Error(w, apierror.BadRequest("listing_id must be a valid id"))
		return
	}

	listing, err := h.listings.GetByID(r.Context(), listingID)
	if err != nil {
		repoError(w, r, h.logger, "listing not found", err)
		return
	}
	if listing.UserID == user.ID {
		response.Error(w, apierror.BadRequest("you cannot message yourself about your own listing"))
		return
	}

	conv, created, err := h.conversations.FindOrCreate(r.Context(), listing.ID, user.ID, listing.UserID)
	if err != nil {
		serverError(w, r, h.logger, "failed to start conversation", err)
		return
	}

	if created {
		response.Created(w, conv)
		return
	}
	response.OK(w, conv)
}

// participantConversation loads the conversation in the URL and checks
// the caller takes part in it.
func (h *ConversationHandler) participantConversation(w http.ResponseWriter, r *http.Request, userID string) (*model.Conversation, bool) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return nil, false
	}

	conv, err := h.conversations.GetByID(r.Context(), id)
	if err != nil {
		repoError(w, r, h.logger, "conversation not found", err)
		return nil, false
	}
	if !conv.HasParticipant(userID) {
		response.Error(w, apierror.Forbidden("you are not part of this conversation"))
		return nil, false
	}
	return conv, true
}

// Messages handles GET /api/conversations/{id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, apiErr := queryInt(r, "limit", defaultMessageLimit)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	conv, ok := h.participantConversation(w, r, user.ID)
	if !ok {
		return
	}

	messages, err := h.conversations.ListMessages(r.Context(), conv.ID, limit)
	if err != nil {
		serverError(w, r, h.logger, "failed to list messages", err)
		return
	}
	response.OK(w, messages)
}

// SendMessageRequest is the body of POST /api/conversations/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Send handles POST /api/conversations/{id}/messages
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	content := strings.TrimSpace(req.Content)
	if n := utf8.RuneCountInString(content); n == 0 || n > maxMessageLength {
		response.Error(w, apierror.ValidationError("invalid message",
			apierror.FieldError{Field: "content", Message: "must be between 1 and 2000 characters"}))
		return
	}

	conv, ok := h.participantConversation(w, r, user.ID)
	if !ok {
		return
	}

	msg, err := h.conversations.SendMessage(r.Context(), conv.ID, user.ID, content)
	if err != nil {
		serverError(w, r, h.logger, "failed to send message", err)
		return
	}
	response.Created(w, msg)
}
