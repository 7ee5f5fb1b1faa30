package moderation

import (
	"context"
	"log/slog"

	"github.com/Xuanwo/onobot/internal/telegram"
)

// AdminLister is the one platform call the registry needs.
type AdminLister interface {
	GetChatAdministrators(ctx context.Context, chatID int64) ([]telegram.ChatMember, error)
}

// Registry is a point-in-time snapshot of the main group's administrators,
// taken once at startup. It is never refreshed; promoting a new admin
// requires a restart.
type Registry struct {
	ids map[int64]struct{}
}

func NewRegistry(members []telegram.ChatMember) *Registry {
	ids := make(map[int64]struct{}, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		ids[m.User.ID] = struct{}{}
	}
	return &Registry{ids: ids}
}

// LoadRegistry fetches the administrator list of chatID. A failed fetch
// yields an empty registry, so nobody is authorized until the next
// restart: authorization fails closed rather than failing the process.
func LoadRegistry(ctx context.Context, api AdminLister, chatID int64, logger *slog.Logger) *Registry {
	members, err := api.GetChatAdministrators(ctx, chatID)
	if err != nil {
		logger.Error("get chat administrators failed, no one will be authorized",
			"chat_id", chatID,
			"error", err.Error(),
		)
		return NewRegistry(nil)
	}
	logger.Info("admin registry loaded", "chat_id", chatID, "admins", len(members))
	return NewRegistry(members)
}

func (r *Registry) IsAdmin(userID int64) bool {
	_, ok := r.ids[userID]
	return ok
}

// Len reports the number of authorized users.
func (r *Registry) Len() int {
	return len(r.ids)
}
