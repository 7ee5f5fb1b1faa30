package moderation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/Xuanwo/onobot/internal/telegram"
)

type fakeAdminLister struct {
	members []telegram.ChatMember
	err     error
}

func (f *fakeAdminLister) GetChatAdministrators(ctx context.Context, chatID int64) ([]telegram.ChatMember, error) {
	return f.members, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistryMembership(t *testing.T) {
	reg := NewRegistry([]telegram.ChatMember{
		{User: &telegram.User{ID: 1}, Status: "creator"},
		{User: &telegram.User{ID: 2}, Status: "administrator"},
		{User: nil},
	})
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	if !reg.IsAdmin(1) || !reg.IsAdmin(2) {
		t.Fatal("IsAdmin() = false for listed admins")
	}
	if reg.IsAdmin(3) {
		t.Fatal("IsAdmin(3) = true for unlisted user")
	}
}

func TestLoadRegistryFailsClosed(t *testing.T) {
	lister := &fakeAdminLister{err: fmt.Errorf("telegram http 502")}
	reg := LoadRegistry(context.Background(), lister, -100, discardLogger())
	if reg == nil {
		t.Fatal("LoadRegistry() = nil, want empty registry")
	}
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after failed fetch", reg.Len())
	}
	if reg.IsAdmin(1) {
		t.Fatal("IsAdmin(1) = true after failed fetch, want fail-closed")
	}
}
