package moderation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Xuanwo/onobot/internal/telegram"
)

// Token is the payload carried inside an inline keyboard button. It has
// to round-trip through Telegram's callback_data field, which caps the
// payload at telegram.MaxCallbackDataLen bytes, so the wire form is a
// compact "ot<version>:<kind>:<message-id>" string rather than an
// encoded JSON envelope.
type Token struct {
	Version   int
	Kind      string
	MessageID int64
}

const (
	// TokenVersion tags the current wire layout so future kinds can be
	// added without breaking decode on buttons already in flight.
	TokenVersion = 1

	// KindFlagOfftopic marks the referenced message as off-topic.
	KindFlagOfftopic = "flag_offtopic"
)

// ErrBadToken marks any callback payload not produced by Encode.
var ErrBadToken = errors.New("moderation: malformed callback token")

func (t Token) Encode() (string, error) {
	if t.Version != TokenVersion {
		return "", fmt.Errorf("moderation: unsupported token version %d", t.Version)
	}
	if t.Kind != KindFlagOfftopic {
		return "", fmt.Errorf("moderation: unknown token kind %q", t.Kind)
	}
	if t.MessageID <= 0 {
		return "", fmt.Errorf("moderation: token message id must be positive, got %d", t.MessageID)
	}
	s := "ot" + strconv.Itoa(t.Version) + ":" + t.Kind + ":" + strconv.FormatInt(t.MessageID, 10)
	if len(s) > telegram.MaxCallbackDataLen {
		return "", fmt.Errorf("moderation: encoded token is %d bytes, exceeds callback payload limit %d", len(s), telegram.MaxCallbackDataLen)
	}
	return s, nil
}

// DecodeToken fails with ErrBadToken on any input Encode could not have
// produced; it never falls back to a default token. Callers decide what
// an absent payload means before calling this.
func DecodeToken(s string) (Token, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, s)
	}
	if !strings.HasPrefix(parts[0], "ot") {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, s)
	}
	version, err := strconv.Atoi(parts[0][2:])
	if err != nil || version != TokenVersion {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, s)
	}
	if parts[1] != KindFlagOfftopic {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, s)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, s)
	}
	t := Token{Version: version, Kind: parts[1], MessageID: id}
	// Reject non-canonical spellings (leading zeros, "+" signs) so decode
	// accepts exactly the set Encode produces.
	if canonical, err := t.Encode(); err != nil || canonical != s {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, s)
	}
	return t, nil
}
