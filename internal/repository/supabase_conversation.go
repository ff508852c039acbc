package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/supabase"

	"go.uber.org/zap"
)

// SupabaseConversationRepository implements ConversationRepository.
type SupabaseConversationRepository struct {
	db     *supabase.Client
	logger *zap.Logger
}

// NewSupabaseConversationRepository creates a new conversation repository.
func NewSupabaseConversationRepository(db *supabase.Client, logger *zap.Logger) *SupabaseConversationRepository {
	return &SupabaseConversationRepository{db: db, logger: logger}
}

// ListForUser returns conversations where userID is buyer or seller, most recent first.
func (r *SupabaseConversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	resp, err := r.db.From("conversations").
		Select("*").
		Or(fmt.Sprintf("buyer_id.eq.%[1]s,seller_id.eq.%[1]s", userID)).
		Order("updated_at", false).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	conversations := []model.Conversation{}
	if err := resp.Decode(&conversations); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// GetByID retrieves a conversation.
func (r *SupabaseConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	resp, err := r.db.From("conversations").Select("*").Eq("id", id).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv model.Conversation
	if err := resp.Decode(&conv); err != nil {
		return nil, wrapNotFound(err, "failed to get conversation")
	}
	return &conv, nil
}

// FindOrCreate returns the buyer's conversation about a listing, creating
// it if needed. The bool reports whether a row was created.
func (r *SupabaseConversationRepository) FindOrCreate(ctx context.Context, listingID, buyerID, sellerID string) (*model.Conversation, bool, error) {
	existing, err := r.find(ctx, listingID, buyerID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	row := map[string]string{
		"listing_id": listingID,
		"buyer_id":   buyerID,
		"seller_id":  sellerID,
	}
	resp, err := r.db.From("conversations").Single().Insert(ctx, row)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	var conv model.Conversation
	if err := resp.Decode(&conv); err != nil {
		// lost a race against a concurrent create
		if supabase.IsConflict(err) {
			existing, findErr := r.find(ctx, listingID, buyerID)
			if findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, true, nil
}

func (r *SupabaseConversationRepository) find(ctx context.Context, listingID, buyerID string) (*model.Conversation, error) {
	resp, err := r.db.From("conversations").
		Select("*").
		Eq("listing_id", listingID).
		Eq("buyer_id", buyerID).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	var rows []model.Conversation
	if err := resp.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListMessages returns up to limit messages, oldest first.
func (r *SupabaseConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	resp, err := r.db.From("messages").
		Select("*").
		Eq("conversation_id", conversationID).
		Order("created_at", true).
		Limit(limit).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := []model.Message{}
	if err := resp.Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// SendMessage inserts a message and bumps the conversation's updated_at.
func (r *SupabaseConversationRepository) SendMessage(ctx context.Context, conversationID, senderID, content string) (*model.Message, error) {
	row := map[string]string{
		"conversation_id": conversationID,
		"sender_id":       senderID,
		"content":         content,
	}
	resp, err := r.db.From("messages").Single().Insert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	var msg model.Message
	if err := resp.Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	// ordering hint only; the message is already stored
	touch, err := r.db.From("conversations").
		Eq("id", conversationID).
		Update(ctx, map[string]any{"updated_at": time.Now().UTC()})
	if err == nil {
		err = touch.Err()
	}
	if err != nil {
		r.logger.Warn("failed to touch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}

	return &msg, nil
}

// Ensure SupabaseConversationRepository implements ConversationRepository
var _ ConversationRepository = (*SupabaseConversationRepository)(nil)
