package messaging

import (
	"context"
	"sync"
)

// Recorder is an in-memory Sender. It records every outbound message and
// serves scripted roles and profile photos.
type Recorder struct {
	mu     sync.Mutex
	nextID int64
	sent   []Message
	edits  []Message
	roles  map[[2]int64]MemberRole
	photos map[int64][]byte
}

// NewRecorder creates an empty Recorder. Unknown claimants resolve to
// RoleMember and a nil profile photo.
func NewRecorder() *Recorder {
	return &Recorder{
		nextID: 1,
		roles:  make(map[[2]int64]MemberRole),
		photos: make(map[int64][]byte),
	}
}

// SetRole scripts the role returned for (group, claimant).
func (r *Recorder) SetRole(groupID, claimantID int64, role MemberRole) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[[2]int64{groupID, claimantID}] = role
}

// SetProfilePhoto scripts the photo returned for a claimant.
func (r *Recorder) SetProfilePhoto(claimantID int64, photo []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos[claimantID] = photo
}

// Sent returns a copy of every message sent so far.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// Edits returns a copy of every edit applied so far.
func (r *Recorder) Edits() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.edits))
	copy(out, r.edits)
	return out
}

// Reset clears recorded messages and edits.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.edits = nil
}

// SendText implements Sender.
func (r *Recorder) SendText(_ context.Context, m Message) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	id := r.nextID
	r.nextID++
	return id, nil
}

// SendPhoto implements Sender.
func (r *Recorder) SendPhoto(_ context.Context, m Message) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	id := r.nextID
	r.nextID++
	return id, nil
}

// EditText implements Sender.
func (r *Recorder) EditText(_ context.Context, groupID, _ int64, text string, buttons [][]Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, Message{GroupID: groupID, Text: text, Buttons: buttons})
	return nil
}

// EditCaption implements Sender.
func (r *Recorder) EditCaption(_ context.Context, groupID, _ int64, caption string, buttons [][]Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, Message{GroupID: groupID, Text: caption, Buttons: buttons})
	return nil
}

// DeleteMessage implements Sender.
func (r *Recorder) DeleteMessage(_ context.Context, _, _ int64) error {
	return nil
}

// ProfilePhoto implements Sender.
func (r *Recorder) ProfilePhoto(_ context.Context, claimantID int64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.photos[claimantID], nil
}

// MemberRole implements Sender.
func (r *Recorder) MemberRole(_ context.Context, groupID, claimantID int64) (MemberRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.roles[[2]int64{groupID, claimantID}]; ok {
		return role, nil
	}
	return RoleMember, nil
}

var _ Sender = (*Recorder)(nil)
