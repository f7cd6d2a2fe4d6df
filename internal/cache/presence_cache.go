package cache

import (
	"fmt"
	"strconv"
	"time"
)

// OnlineTTL matches the hub's pong timeout so a crashed process's entries
// age out on their own.
const OnlineTTL = 90 * time.Second

// PresenceCache mirrors the hub's presence directory into Redis so other
// processes can answer "is this user reachable" cheaply. The in-process hub
// stays the source of truth for delivery decisions.
type PresenceCache struct {
	redis *RedisCache
}

func NewPresenceCache(redis *RedisCache) *PresenceCache {
	return &PresenceCache{redis: redis}
}

// MarkOnline records a user as reachable.
func (pc *PresenceCache) MarkOnline(userID uint) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	if err := pc.redis.SetAdd("online:users", userID); err != nil {
		return err
	}
	// Per-user key with TTL so stale entries expire without a cleanup pass.
	return pc.redis.Set(fmt.Sprintf("online:%d", userID), []byte("1"), OnlineTTL)
}

// MarkOffline removes a user from the online set.
func (pc *PresenceCache) MarkOffline(userID uint) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	if err := pc.redis.SetRemove("online:users", userID); err != nil {
		return err
	}
	return pc.redis.Delete(fmt.Sprintf("online:%d", userID))
}

// Refresh extends the per-user TTL; the hub calls this on pong.
func (pc *PresenceCache) Refresh(userID uint) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	return pc.redis.Set(fmt.Sprintf("online:%d", userID), []byte("1"), OnlineTTL)
}

// OnlineUsers returns the mirrored set of online user ids.
func (pc *PresenceCache) OnlineUsers() ([]uint, error) {
	if pc == nil || pc.redis == nil {
		return nil, nil
	}
	members, err := pc.redis.SetMembers("online:users")
	if err != nil {
		return nil, err
	}
	userIDs := make([]uint, 0, len(members))
	for _, member := range members {
		if id, err := strconv.ParseUint(member, 10, 32); err == nil {
			userIDs = append(userIDs, uint(id))
		}
	}
	return userIDs, nil
}
