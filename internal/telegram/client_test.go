package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, "TESTTOKEN"), srv
}

func TestGetUpdatesAdvancesOffset(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTESTTOKEN/getUpdates" {
			t.Errorf("path = %q, want getUpdates", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(getUpdatesResponse{
			OK: true,
			Result: []Update{
				{UpdateID: 10},
				{UpdateID: 12},
			},
		})
	})

	updates, next, err := client.GetUpdates(context.Background(), 0, time.Second)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(updates))
	}
	if next != 13 {
		t.Fatalf("next offset = %d, want 13 (max update id + 1)", next)
	}
}

func TestSendMessageMarshalsRequest(t *testing.T) {
	var got SendMessageRequest
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTESTTOKEN/sendMessage" {
			t.Errorf("path = %q, want sendMessage", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(okResponse{OK: true})
	})

	err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID:           -100,
		Text:             "notice",
		ParseMode:        "Markdown",
		ReplyToMessageID: 42,
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{
				{Text: "go", URL: "https://t.me/x"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if got.ChatID != -100 || got.Text != "notice" || got.ReplyToMessageID != 42 {
		t.Fatalf("server saw %+v, fields lost in marshalling", got)
	}
	if got.ReplyMarkup == nil || got.ReplyMarkup.InlineKeyboard[0][0].URL != "https://t.me/x" {
		t.Fatalf("server saw markup %+v, want url button", got.ReplyMarkup)
	}
}

func TestSendMessageSurfacesAPIError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(okResponse{OK: false, ErrorCode: 400, Description: "Bad Request: chat not found"})
	})
	err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "x"})
	if err == nil {
		t.Fatal("SendMessage() = nil error, want ok=false surfaced")
	}
}

func TestAnswerCallbackQueryRequiresID(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(okResponse{OK: true})
	})
	if err := client.AnswerCallbackQuery(context.Background(), "", ""); err == nil {
		t.Fatal("AnswerCallbackQuery(\"\") = nil error, want failure")
	}
	if err := client.AnswerCallbackQuery(context.Background(), "cb-1", "done"); err != nil {
		t.Fatalf("AnswerCallbackQuery() error = %v", err)
	}
}

func TestGetChatAdministrators(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTESTTOKEN/getChatAdministrators" {
			t.Errorf("path = %q, want getChatAdministrators", r.URL.Path)
		}
		if got := r.URL.Query().Get("chat_id"); got != "-100123" {
			t.Errorf("chat_id = %q, want -100123", got)
		}
		_ = json.NewEncoder(w).Encode(getChatAdministratorsResponse{
			OK: true,
			Result: []ChatMember{
				{User: &User{ID: 1, Username: "alice"}, Status: "creator"},
				{User: &User{ID: 2}, Status: "administrator"},
			},
		})
	})

	members, err := client.GetChatAdministrators(context.Background(), -100123)
	if err != nil {
		t.Fatalf("GetChatAdministrators() error = %v", err)
	}
	if len(members) != 2 || members[0].User.ID != 1 {
		t.Fatalf("members = %+v, want the two listed admins", members)
	}
}
