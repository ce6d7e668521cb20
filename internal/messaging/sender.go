// Package messaging defines the outbound chat contract. The core never talks
// to a chat transport directly; everything it sends goes through Sender so
// tests and dry runs can swap in the in-memory recorder.
package messaging

import "context"

// Button is one inline keyboard button carrying a callback payload.
type Button struct {
	Label string
	Data  string
}

// Message is an outbound text or photo message.
type Message struct {
	GroupID  int64
	Text     string
	PhotoURL string // set for photo messages resolved by URL
	Photo    []byte // set for photo messages sent as bytes
	Buttons  [][]Button
}

// MemberRole is a chat member's role within a group.
type MemberRole string

const (
	RoleAdministrator MemberRole = "administrator"
	RoleCreator       MemberRole = "creator"
	RoleMember        MemberRole = "member"
)

// Admin reports whether the role grants admin commands.
func (r MemberRole) Admin() bool {
	return r == RoleAdministrator || r == RoleCreator
}

// Sender delivers messages to a chat group. Implementations wrap the real
// transport; delivery is at-least-once and callers dedupe via their own state.
type Sender interface {
	// SendText sends a text message, returning the new message id.
	SendText(ctx context.Context, m Message) (int64, error)

	// SendPhoto sends a photo message (URL or bytes, Text is the caption),
	// returning the new message id.
	SendPhoto(ctx context.Context, m Message) (int64, error)

	// EditText replaces the text and buttons of an existing message.
	EditText(ctx context.Context, groupID, messageID int64, text string, buttons [][]Button) error

	// EditCaption replaces the caption and buttons of an existing photo message.
	EditCaption(ctx context.Context, groupID, messageID int64, caption string, buttons [][]Button) error

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, groupID, messageID int64) error

	// ProfilePhoto returns the claimant's profile photo bytes, or nil if none.
	ProfilePhoto(ctx context.Context, claimantID int64) ([]byte, error)

	// MemberRole returns the claimant's role within the group.
	MemberRole(ctx context.Context, groupID, claimantID int64) (MemberRole, error)
}
