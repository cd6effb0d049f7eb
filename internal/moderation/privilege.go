package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	privilegeCacheSize = 8192
	privilegeCacheTTL  = time.Minute
)

type PrivilegeChecker interface {
	IsPrivileged(ctx context.Context, chatID, userID int64) bool
}

// PrivilegeResolver answers whether an actor is exempt from enforcement
// (chat admin or owner). Lookup failures count as non-privileged, an API
// error must not silently exempt unknown actors.
type PrivilegeResolver struct {
	port  ActionPort
	cache *expirable.LRU[string, bool]
	group singleflight.Group
}

func NewPrivilegeResolver(port ActionPort) *PrivilegeResolver {
	return &PrivilegeResolver{
		port:  port,
		cache: expirable.NewLRU[string, bool](privilegeCacheSize, nil, privilegeCacheTTL),
	}
}

func (r *PrivilegeResolver) IsPrivileged(ctx context.Context, chatID, userID int64) bool {
	key := fmt.Sprintf("%d/%d", chatID, userID)
	if privileged, ok := r.cache.Get(key); ok {
		return privileged
	}

	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		membership, err := r.port.GetMembership(ctx, chatID, userID)
		if err != nil {
			return false, err
		}
		return membership.IsAdmin || membership.IsOwner, nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("membership lookup failed, treating as non-privileged")
		return false
	}

	privileged := result.(bool)
	r.cache.Add(key, privileged)
	return privileged
}
