package service

import (
	"context"
	"log"
	"time"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/cache"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/repository"
	"github.com/sethshivam11/social-media-backend/internal/validation"
)

// MessageService validates and persists one message per call, keeps the
// owning chat's last-message pointer current, and hands every mutation to
// fan-out addressed to the other participants.
type MessageService struct {
	messageRepo  repository.MessageRepositoryInterface
	chatRepo     repository.ChatRepositoryInterface
	notify       *NotifyService
	store        ObjectRemover
	messageCache *cache.MessageCache
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	chatRepo repository.ChatRepositoryInterface,
	notify *NotifyService,
	store ObjectRemover,
	messageCache *cache.MessageCache,
) *MessageService {
	return &MessageService{
		messageRepo:  messageRepo,
		chatRepo:     chatRepo,
		notify:       notify,
		store:        store,
		messageCache: messageCache,
	}
}

type SendMessageInput struct {
	ChatID        uint               `json:"chat_id"`
	Content       string             `json:"content"`
	Kind          models.MessageKind `json:"kind"`
	AttachmentKey string             `json:"-"`
	SharedPostID  *uint              `json:"shared_post_id"`
	ReplyExcerpt  string             `json:"reply_excerpt"`
}

func (s *MessageService) Send(senderID uint, input SendMessageInput) (*models.Message, error) {
	// Attachments are uploaded before validation; a rejected send must
	// release the orphaned object, its key is recorded nowhere else.
	stored := false
	if input.AttachmentKey != "" {
		defer func() {
			if !stored {
				s.releaseAttachment(input.AttachmentKey)
			}
		}()
	}

	chat, err := s.chatRepo.FindByID(input.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(senderID) {
		return nil, apperr.ErrForbidden
	}

	content := validation.TrimAndLimit(input.Content, validation.MaxMessageLength())
	if content == "" && input.AttachmentKey == "" && input.SharedPostID == nil {
		return nil, apperr.Wrap(apperr.ErrConflict, "a message needs text, an attachment, or a shared post")
	}

	kind := input.Kind
	if kind == "" {
		kind = models.TextMessage
	}

	message := &models.Message{
		ChatID:        chat.ID,
		SenderID:      senderID,
		Content:       content,
		Kind:          kind,
		AttachmentKey: input.AttachmentKey,
		SharedPostID:  input.SharedPostID,
		ReplyExcerpt:  validation.TrimAndLimit(input.ReplyExcerpt, 500),
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}
	stored = true
	if err := s.chatRepo.SetLastMessage(chat.ID, message.ID); err != nil {
		log.Printf("last-message pointer update failed chat_id=%d: %v", chat.ID, err)
	}
	s.messageCache.InvalidateChat(chat.ID)

	recipients := without(chat.UserIDs(), senderID)
	s.notify.Dispatch(recipients, recipients, Event{
		Name:      EventMessageReceived,
		Kind:      models.KindNewMessage,
		Toggle:    models.ToggleNewMessages,
		ActorID:   senderID,
		ChatID:    &chat.ID,
		MessageID: &message.ID,
		Body:      pushBody(message),
		Payload:   message.ToResponse(),
	})
	return message, nil
}

// Edit replaces the content in place; no history is kept.
func (s *MessageService) Edit(messageID, editorID uint, content string) (*models.Message, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != editorID {
		return nil, apperr.ErrForbidden
	}

	content = validation.TrimAndLimit(content, validation.MaxMessageLength())
	if content == "" {
		return nil, apperr.Wrap(apperr.ErrConflict, "edited content cannot be empty")
	}
	if err := s.messageRepo.UpdateContent(messageID, content); err != nil {
		return nil, err
	}
	s.messageCache.InvalidateChat(message.ChatID)

	updated, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	chat, err := s.chatRepo.FindByID(message.ChatID)
	if err != nil {
		return nil, err
	}

	s.notify.Dispatch(without(chat.UserIDs(), editorID), nil, Event{
		Name:      EventMessageEdited,
		ActorID:   editorID,
		ChatID:    &chat.ID,
		MessageID: &updated.ID,
		Payload:   updated.ToResponse(),
	})
	return updated, nil
}

// Delete releases the attachment and clears the chat's last-message pointer
// when it targeted the deleted message. The pointer is left empty, never
// reassigned to an older message.
func (s *MessageService) Delete(messageID, userID uint) error {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return apperr.ErrForbidden
	}

	if err := s.messageRepo.Delete(messageID); err != nil {
		return err
	}
	if err := s.chatRepo.ClearLastMessageIf(message.ChatID, messageID); err != nil {
		log.Printf("last-message pointer clear failed chat_id=%d: %v", message.ChatID, err)
	}
	if message.AttachmentKey != "" {
		s.releaseAttachment(message.AttachmentKey)
	}
	s.messageCache.InvalidateChat(message.ChatID)

	chat, err := s.chatRepo.FindByID(message.ChatID)
	if err != nil {
		return nil
	}
	s.notify.Dispatch(without(chat.UserIDs(), userID), nil, Event{
		Name:      EventMessageDeleted,
		ActorID:   userID,
		ChatID:    &chat.ID,
		MessageID: &messageID,
		Payload:   MessageDeletedPayload{MessageID: messageID, ChatID: chat.ID},
	})
	return nil
}

// React stores at most one reaction per user per message; reacting again
// replaces the stored content.
func (s *MessageService) React(messageID, userID uint, content string) error {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return err
	}
	chat, err := s.chatRepo.FindByID(message.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(userID) {
		return apperr.ErrForbidden
	}

	content = validation.TrimAndLimit(content, 64)
	if content == "" {
		return apperr.Wrap(apperr.ErrConflict, "reaction content is required")
	}
	if err := s.messageRepo.UpsertReact(&models.MessageReact{
		MessageID: messageID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}); err != nil {
		return err
	}
	s.messageCache.InvalidateChat(chat.ID)

	// Only the message author gets a durable record; everyone else just
	// sees the live event.
	var durable []uint
	if message.SenderID != userID {
		durable = []uint{message.SenderID}
	}
	s.notify.Dispatch(without(chat.UserIDs(), userID), durable, Event{
		Name:      EventReactionAdded,
		Kind:      models.KindReaction,
		Toggle:    models.ToggleReactions,
		ActorID:   userID,
		ChatID:    &chat.ID,
		MessageID: &messageID,
		Body:      "Someone reacted to your message",
		Payload:   ReactionPayload{MessageID: messageID, ChatID: chat.ID, UserID: userID, Content: content},
	})
	return nil
}

func (s *MessageService) Unreact(messageID, userID uint) error {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return err
	}
	removed, err := s.messageRepo.DeleteReact(messageID, userID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "no reaction to remove")
	}
	s.messageCache.InvalidateChat(message.ChatID)

	chat, err := s.chatRepo.FindByID(message.ChatID)
	if err != nil {
		return nil
	}
	s.notify.Dispatch(without(chat.UserIDs(), userID), nil, Event{
		Name:      EventReactionRemoved,
		ActorID:   userID,
		ChatID:    &chat.ID,
		MessageID: &messageID,
		Payload:   ReactionPayload{MessageID: messageID, ChatID: chat.ID, UserID: userID},
	})
	return nil
}

func (s *MessageService) ListMessages(chatID, userID uint, cursor uint, limit int) ([]models.Message, error) {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		return nil, apperr.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Cache only serves the newest page.
	if cursor == 0 {
		if cached, ok := s.messageCache.GetChatPage(chatID); ok {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
	}

	messages, err := s.messageRepo.ListByChat(chatID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if cursor == 0 && len(messages) > 0 {
		_ = s.messageCache.SetChatPage(chatID, messages)
	}
	return messages, nil
}

// SharePost drops one post-share message into each target chat the sender
// belongs to. Per-chat failures are isolated; the call reports which chats
// accepted the share.
func (s *MessageService) SharePost(senderID, postID uint, chatIDs []uint) ([]models.Message, error) {
	if postID == 0 || len(chatIDs) == 0 {
		return nil, apperr.ErrNoOp
	}

	shared := make([]models.Message, 0, len(chatIDs))
	var firstErr error
	for _, chatID := range dedupe(chatIDs, 0) {
		message, err := s.Send(senderID, SendMessageInput{
			ChatID:       chatID,
			Kind:         models.PostMessage,
			SharedPostID: &postID,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Printf("post share skipped chat_id=%d post_id=%d: %v", chatID, postID, err)
			continue
		}
		shared = append(shared, *message)
	}
	if len(shared) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, apperr.ErrNoOp
	}
	return shared, nil
}

func (s *MessageService) releaseAttachment(key string) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.store.DeleteObject(ctx, key); err != nil {
			log.Printf("attachment release failed key=%s: %v", key, err)
		}
	}()
}

func pushBody(m *models.Message) string {
	switch m.Kind {
	case models.TextMessage:
		return validation.TrimAndLimit(m.Content, 120)
	case models.PostMessage:
		return "Shared a post with you"
	default:
		return "Sent you a " + string(m.Kind)
	}
}
