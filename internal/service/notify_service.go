package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/events"
	"github.com/sethshivam11/social-media-backend/internal/models"
	"github.com/sethshivam11/social-media-backend/internal/push"
	"github.com/sethshivam11/social-media-backend/internal/repository"
)

// Gateway is the live-connection directory the fan-out consults. Implemented
// by the websocket hub.
type Gateway interface {
	IsOnline(userID uint) bool
	EmitToUser(userID uint, event string, payload interface{})
}

// NotifyService turns one mutation into per-recipient deliveries: a live
// socket event for connected users, a durable Notification row for durable
// event classes, and an external push when preferences allow. No failure in
// here ever propagates to the mutation that triggered it.
type NotifyService struct {
	notificationRepo repository.NotificationRepositoryInterface
	preferenceRepo   repository.PreferenceRepositoryInterface
	gateway          Gateway
	pushSender       push.Sender
	publisher        *events.Publisher
	pushTimeout      time.Duration
}

func NewNotifyService(
	notificationRepo repository.NotificationRepositoryInterface,
	preferenceRepo repository.PreferenceRepositoryInterface,
	gateway Gateway,
	pushSender push.Sender,
	publisher *events.Publisher,
) *NotifyService {
	return &NotifyService{
		notificationRepo: notificationRepo,
		preferenceRepo:   preferenceRepo,
		gateway:          gateway,
		pushSender:       pushSender,
		publisher:        publisher,
		pushTimeout:      10 * time.Second,
	}
}

// SetGateway wires the hub after construction (the hub needs services too,
// so one side attaches late).
func (s *NotifyService) SetGateway(g Gateway) {
	s.gateway = g
}

// Dispatch delivers ev to recipients. Every live recipient gets exactly one
// socket event; ids in durable additionally get a Notification row and,
// preferences permitting, an external push. Ephemeral events pass an empty
// durable set.
func (s *NotifyService) Dispatch(recipients []uint, durable []uint, ev Event) {
	for _, userID := range recipients {
		if s.gateway != nil && s.gateway.IsOnline(userID) {
			s.gateway.EmitToUser(userID, ev.Name, ev.Payload)
		}
	}

	for _, userID := range durable {
		n := &models.Notification{
			UserID:    userID,
			Kind:      ev.Kind,
			ActorID:   ev.ActorID,
			ChatID:    ev.ChatID,
			MessageID: ev.MessageID,
			Body:      ev.Body,
		}
		if err := s.notificationRepo.Create(n); err != nil {
			log.Printf("notification record failed user_id=%d kind=%s: %v", userID, ev.Kind, err)
		}
	}

	if len(durable) > 0 {
		if s.publisher != nil {
			s.publisher.Publish(context.Background(), events.Envelope{
				Event:      ev.Name,
				ActorID:    ev.ActorID,
				Recipients: durable,
				Payload:    ev.Payload,
			})
		}
		if s.pushSender != nil {
			targets := make([]uint, len(durable))
			copy(targets, durable)
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
				defer cancel()
				for _, userID := range targets {
					s.pushToUser(ctx, userID, ev)
				}
			}()
		}
	}
}

// ListNotifications returns one page of a user's inbox, newest first,
// together with the unread count.
func (s *NotifyService) ListNotifications(userID, cursor uint, limit int) ([]models.Notification, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	list, err := s.notificationRepo.ListForUser(userID, cursor, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.notificationRepo.CountUnread(userID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

// MarkRead flips the named notifications read; an empty id list marks the
// whole inbox.
func (s *NotifyService) MarkRead(userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return s.notificationRepo.MarkAllRead(userID)
	}
	return s.notificationRepo.MarkRead(userID, ids)
}

func (s *NotifyService) GetPreferences(userID uint) (*models.NotificationPreference, error) {
	return s.preferenceRepo.GetOrDefault(userID)
}

// UpdatePreferences applies the named toggles. Unknown toggle names are
// ignored, matching the fail-open read side.
func (s *NotifyService) UpdatePreferences(userID uint, toggles map[string]bool) (*models.NotificationPreference, error) {
	pref, err := s.preferenceRepo.GetOrDefault(userID)
	if err != nil {
		return nil, err
	}
	for name, enabled := range toggles {
		switch name {
		case models.ToggleNewMessages:
			pref.NewMessages = enabled
		case models.ToggleGroupActivity:
			pref.GroupActivity = enabled
		case models.ToggleReactions:
			pref.Reactions = enabled
		}
	}
	if err := s.preferenceRepo.Upsert(pref); err != nil {
		return nil, err
	}
	return s.preferenceRepo.GetOrDefault(userID)
}

// RegisterToken records a push endpoint. Re-registering an existing token
// reports NoOp.
func (s *NotifyService) RegisterToken(userID uint, token, platform string) error {
	added, err := s.preferenceRepo.AddToken(&models.PushToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	})
	if err != nil {
		return err
	}
	if !added {
		return apperr.ErrNoOp
	}
	return nil
}

// UnregisterToken deletes a push endpoint; an unknown token is NotFound.
func (s *NotifyService) UnregisterToken(userID uint, token string) error {
	rows, err := s.preferenceRepo.RemoveToken(userID, token)
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// pushToUser attempts external push delivery to every registered token of
// one user, concurrently. A token rejected as unregistered is pruned so it
// is never retried.
func (s *NotifyService) pushToUser(ctx context.Context, userID uint, ev Event) {
	pref, err := s.preferenceRepo.GetOrDefault(userID)
	if err != nil {
		log.Printf("push preference lookup failed user_id=%d: %v", userID, err)
		return
	}
	if ev.Toggle != "" && !pref.Toggle(ev.Toggle) {
		return
	}

	tokens, err := s.preferenceRepo.ListTokens(userID)
	if err != nil {
		log.Printf("push token lookup failed user_id=%d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	payload := push.Payload{
		Title: string(ev.Kind),
		Body:  ev.Body,
		Data:  map[string]string{"event": ev.Name},
	}

	var wg sync.WaitGroup
	for _, t := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			err := s.pushSender.Send(ctx, token, payload)
			if err == nil {
				return
			}
			if errors.Is(err, push.ErrUnregistered) {
				if _, pruneErr := s.preferenceRepo.RemoveToken(userID, token); pruneErr != nil {
					log.Printf("push token prune failed user_id=%d: %v", userID, pruneErr)
				}
				return
			}
			log.Printf("push delivery failed user_id=%d: %v", userID, err)
		}(t.Token)
	}
	wg.Wait()
}
