package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/repository"
	"github.com/sethshivam11/social-media-backend/internal/validation"
)

// ObjectRemover releases stored attachments and icons. Implemented by the
// S3 storage; nil disables release (objects are leaked, not errors raised).
type ObjectRemover interface {
	DeleteObject(ctx context.Context, key string) error
}

// ChatService enforces the group invariants that the store's primitives
// cannot guarantee alone: admin subset of members, admin succession, and
// cascade deletes with attachment release.
type ChatService struct {
	chatRepo    repository.ChatRepositoryInterface
	messageRepo repository.MessageRepositoryInterface
	notify      *NotifyService
	store       ObjectRemover
}

func NewChatService(
	chatRepo repository.ChatRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	notify *NotifyService,
	store ObjectRemover,
) *ChatService {
	return &ChatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		notify:      notify,
		store:       store,
	}
}

func (s *ChatService) CreateDirect(creatorID, peerID uint) (*models.Chat, error) {
	if peerID == 0 || peerID == creatorID {
		return nil, apperr.Wrap(apperr.ErrConflict, "cannot open a chat with yourself")
	}
	if existing, err := s.chatRepo.FindDirect(creatorID, peerID); err == nil {
		return existing, apperr.Wrap(apperr.ErrConflict, "chat already exists")
	}

	chat := &models.Chat{
		IsGroup: false,
		Members: []models.ChatMember{
			{UserID: creatorID, Role: models.RoleMember},
			{UserID: peerID, Role: models.RoleMember},
		},
	}
	if err := s.chatRepo.Create(chat); err != nil {
		return nil, err
	}
	return s.chatRepo.FindByID(chat.ID)
}

func (s *ChatService) CreateGroup(creatorID uint, name, description string, memberIDs []uint) (*models.Chat, error) {
	name = validation.TrimAndLimit(name, validation.MaxGroupNameLength())
	if !validation.ValidateGroupName(name) {
		return nil, apperr.Wrap(apperr.ErrConflict, "group name is required")
	}

	others := dedupe(memberIDs, creatorID)
	if len(others) == 0 {
		return nil, apperr.Wrap(apperr.ErrConflict, "a group needs at least one participant besides the creator")
	}

	members := make([]models.ChatMember, 0, len(others)+1)
	members = append(members, models.ChatMember{UserID: creatorID, Role: models.RoleAdmin})
	for _, id := range others {
		members = append(members, models.ChatMember{UserID: id, Role: models.RoleMember})
	}

	chat := &models.Chat{
		IsGroup:          true,
		GroupName:        name,
		GroupDescription: validation.TrimAndLimit(description, 255),
		GroupIcon:        models.DefaultGroupIcon,
		Members:          members,
	}
	if err := s.chatRepo.Create(chat); err != nil {
		return nil, err
	}

	created, err := s.chatRepo.FindByID(chat.ID)
	if err != nil {
		return nil, err
	}

	chatID := created.ID
	s.notify.Dispatch(others, others, Event{
		Name:    EventGroupCreated,
		Kind:    models.KindGroupCreated,
		Toggle:  models.ToggleGroupActivity,
		ActorID: creatorID,
		ChatID:  &chatID,
		Body:    "You were added to " + created.GroupName,
		Payload: ChatDelta{Chat: created.ToResponse(), ActorID: creatorID, AddedIDs: others},
	})
	return created, nil
}

func (s *ChatService) GetChat(chatID, userID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		return nil, apperr.ErrForbidden
	}
	return chat, nil
}

func (s *ChatService) ListForUser(userID uint) ([]models.Chat, error) {
	return s.chatRepo.FindForUser(userID)
}

// IsMember reports whether userID belongs to the chat. Used by the socket
// gateway to gate room joins; an unknown chat is simply not a membership.
func (s *ChatService) IsMember(chatID, userID uint) (bool, error) {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return chat.HasMember(userID), nil
}

// AddMembers is idempotent over already-present users: they are skipped and
// an all-present call reports NoOp, not an error.
func (s *ChatService) AddMembers(chatID, actorID uint, userIDs []uint) (*models.Chat, []uint, error) {
	chat, err := s.adminGate(chatID, actorID)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]uint, 0, len(userIDs))
	for _, id := range dedupe(userIDs, actorID) {
		if !chat.HasMember(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return chat, nil, apperr.ErrNoOp
	}

	if _, err := s.chatRepo.AddMembers(chatID, candidates, models.RoleMember); err != nil {
		return nil, nil, err
	}

	updated, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, nil, err
	}

	s.notify.Dispatch(without(updated.UserIDs(), actorID), candidates, Event{
		Name:    EventParticipantAdded,
		Kind:    models.KindParticipantAdded,
		Toggle:  models.ToggleGroupActivity,
		ActorID: actorID,
		ChatID:  &updated.ID,
		Body:    "You were added to " + updated.GroupName,
		Payload: ChatDelta{Chat: updated.ToResponse(), ActorID: actorID, AddedIDs: candidates},
	})
	return updated, candidates, nil
}

// RemoveMembers drops membership rows; because role lives on the same row,
// removed admins lose admin status atomically. The caller cannot remove
// themselves (that is Leave).
func (s *ChatService) RemoveMembers(chatID, actorID uint, userIDs []uint) (*models.Chat, []uint, error) {
	chat, err := s.adminGate(chatID, actorID)
	if err != nil {
		return nil, nil, err
	}

	targets := make([]uint, 0, len(userIDs))
	for _, id := range dedupe(userIDs, actorID) {
		if chat.HasMember(id) {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return chat, nil, apperr.ErrNoOp
	}

	if _, err := s.chatRepo.RemoveMembers(chatID, targets); err != nil {
		return nil, nil, err
	}

	updated, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, nil, err
	}

	recipients := append(without(updated.UserIDs(), actorID), targets...)
	s.notify.Dispatch(recipients, targets, Event{
		Name:    EventParticipantRemoved,
		Kind:    models.KindParticipantRemoved,
		Toggle:  models.ToggleGroupActivity,
		ActorID: actorID,
		ChatID:  &updated.ID,
		Body:    "You were removed from " + updated.GroupName,
		Payload: ChatDelta{Chat: updated.ToResponse(), ActorID: actorID, RemovedIDs: targets},
	})
	return updated, targets, nil
}

// Leave handles the three membership-count cases:
//   - last member leaving deletes the chat and everything it owns;
//   - a 2-member chat leaves the single survivor as admin;
//   - otherwise the leaver is removed, and if no admin remains the first
//     member in membership order is promoted.
func (s *ChatService) Leave(chatID, userID uint) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(userID) {
		return apperr.ErrForbidden
	}

	if len(chat.Members) == 1 {
		return s.cascadeDelete(chat)
	}

	var newAdmins []uint
	err = s.chatRepo.WithTx(func(tx repository.ChatRepositoryInterface) error {
		if _, err := tx.RemoveMembers(chatID, []uint{userID}); err != nil {
			return err
		}
		remaining := without(chat.UserIDs(), userID)
		if len(chat.Members) == 2 {
			// Degenerate two-member case: the survivor runs the chat.
			for _, id := range remaining {
				if _, err := tx.SetRole(chatID, id, models.RoleAdmin); err != nil {
					return err
				}
				newAdmins = append(newAdmins, id)
			}
			return nil
		}
		if len(without(chat.AdminIDs(), userID)) == 0 {
			// Succession policy: first remaining member in membership order.
			successor := remaining[0]
			if _, err := tx.SetRole(chatID, successor, models.RoleAdmin); err != nil {
				return err
			}
			newAdmins = append(newAdmins, successor)
		}
		return nil
	})
	if err != nil {
		return err
	}

	updated, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return err
	}

	recipients := updated.UserIDs()
	s.notify.Dispatch(recipients, recipients, Event{
		Name:    EventGroupLeft,
		Kind:    models.KindGroupLeft,
		Toggle:  models.ToggleGroupActivity,
		ActorID: userID,
		ChatID:  &updated.ID,
		Body:    "A participant left " + updated.GroupName,
		Payload: ChatDelta{Chat: updated.ToResponse(), ActorID: userID, RemovedIDs: []uint{userID}, AdminIDs: newAdmins},
	})
	return nil
}

func (s *ChatService) DeleteGroup(chatID, actorID uint) error {
	chat, err := s.adminGate(chatID, actorID)
	if err != nil {
		return err
	}

	former := without(chat.UserIDs(), actorID)
	if err := s.cascadeDelete(chat); err != nil {
		return err
	}

	s.notify.Dispatch(former, former, Event{
		Name:    EventGroupDeleted,
		Kind:    models.KindGroupDeleted,
		Toggle:  models.ToggleGroupActivity,
		ActorID: actorID,
		ChatID:  &chat.ID,
		Body:    chat.GroupName + " was deleted",
		Payload: ChatDelta{Chat: chat.ToResponse(), ActorID: actorID},
	})
	return nil
}

type UpdateChatInput struct {
	Name        *string
	Description *string
	IconKey     *string
}

func (s *ChatService) UpdateDetails(chatID, actorID uint, input UpdateChatInput) (*models.Chat, error) {
	chat, err := s.adminGate(chatID, actorID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := validation.TrimAndLimit(*input.Name, validation.MaxGroupNameLength())
		if !validation.ValidateGroupName(name) {
			return nil, apperr.Wrap(apperr.ErrConflict, "group name is required")
		}
		updates["group_name"] = name
	}
	if input.Description != nil {
		updates["group_description"] = validation.TrimAndLimit(*input.Description, 255)
	}
	if input.IconKey != nil {
		updates["group_icon"] = *input.IconKey
	}
	if len(updates) == 0 {
		return chat, apperr.ErrNoOp
	}

	if err := s.chatRepo.UpdateDetails(chatID, updates); err != nil {
		return nil, err
	}

	// New icon supersedes the old object.
	if input.IconKey != nil && chat.GroupIcon != "" &&
		chat.GroupIcon != models.DefaultGroupIcon && chat.GroupIcon != *input.IconKey {
		s.releaseObjects([]string{chat.GroupIcon})
	}

	updated, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, err
	}

	s.notify.Dispatch(without(updated.UserIDs(), actorID), nil, Event{
		Name:    EventGroupUpdated,
		ActorID: actorID,
		ChatID:  &updated.ID,
		Payload: ChatDelta{Chat: updated.ToResponse(), ActorID: actorID},
	})
	return updated, nil
}

func (s *ChatService) PromoteAdmin(chatID, actorID, targetID uint) error {
	chat, err := s.adminGate(chatID, actorID)
	if err != nil {
		return err
	}
	if !chat.HasMember(targetID) {
		return apperr.Wrap(apperr.ErrNotFound, "user is not a participant")
	}
	if chat.IsAdmin(targetID) {
		return apperr.ErrNoOp
	}
	if _, err := s.chatRepo.SetRole(chatID, targetID, models.RoleAdmin); err != nil {
		return err
	}

	s.notify.Dispatch(without(chat.UserIDs(), actorID), []uint{targetID}, Event{
		Name:    EventAdminAdded,
		Kind:    models.KindAdminAdded,
		Toggle:  models.ToggleGroupActivity,
		ActorID: actorID,
		ChatID:  &chat.ID,
		Body:    "You are now an admin of " + chat.GroupName,
		Payload: ChatDelta{Chat: chat.ToResponse(), ActorID: actorID, AdminIDs: []uint{targetID}},
	})
	return nil
}

func (s *ChatService) DemoteAdmin(chatID, actorID, targetID uint) error {
	chat, err := s.adminGate(chatID, actorID)
	if err != nil {
		return err
	}
	if !chat.HasMember(targetID) {
		return apperr.Wrap(apperr.ErrNotFound, "user is not a participant")
	}
	if !chat.IsAdmin(targetID) {
		return apperr.ErrNoOp
	}
	if len(chat.AdminIDs()) == 1 {
		return apperr.Wrap(apperr.ErrConflict, "a group must keep at least one admin")
	}
	if _, err := s.chatRepo.SetRole(chatID, targetID, models.RoleMember); err != nil {
		return err
	}

	s.notify.Dispatch(without(chat.UserIDs(), actorID), []uint{targetID}, Event{
		Name:    EventAdminRemoved,
		Kind:    models.KindAdminRemoved,
		Toggle:  models.ToggleGroupActivity,
		ActorID: actorID,
		ChatID:  &chat.ID,
		Body:    "You are no longer an admin of " + chat.GroupName,
		Payload: ChatDelta{Chat: chat.ToResponse(), ActorID: actorID, AdminIDs: []uint{targetID}},
	})
	return nil
}

// adminGate loads a group chat and verifies the actor is one of its admins.
func (s *ChatService) adminGate(chatID, actorID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, apperr.Wrap(apperr.ErrConflict, "not a group chat")
	}
	if !chat.HasMember(actorID) {
		return nil, apperr.ErrForbidden
	}
	if !chat.IsAdmin(actorID) {
		return nil, apperr.ErrForbidden
	}
	return chat, nil
}

// cascadeDelete removes the chat, its messages, and releases every stored
// object the chat owned.
func (s *ChatService) cascadeDelete(chat *models.Chat) error {
	keys, err := s.messageRepo.ListAttachmentKeys(chat.ID)
	if err != nil {
		return err
	}
	if chat.GroupIcon != "" && chat.GroupIcon != models.DefaultGroupIcon {
		keys = append(keys, chat.GroupIcon)
	}
	if err := s.chatRepo.Delete(chat.ID); err != nil {
		return err
	}
	s.releaseObjects(keys)
	return nil
}

// releaseObjects deletes stored objects in the background under a bounded
// timeout. Failures are logged; a stuck object store cannot stall or fail
// the mutation that released the keys.
func (s *ChatService) releaseObjects(keys []string) {
	if s.store == nil || len(keys) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, key := range keys {
			if err := s.store.DeleteObject(ctx, key); err != nil {
				log.Printf("object release failed key=%s: %v", key, err)
			}
		}
	}()
}

func dedupe(ids []uint, exclude uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func without(ids []uint, exclude uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
