package store

import "time"

// Participant is keyed by conversation id in ParticipantDocument. JSON keys
// stay compatible with participants.json files written by earlier versions.
type Participant struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"name"`
	Handle      string  `json:"username"`
	Wishlist    *string `json:"wishlist"` // nil until submitted
}

// HasWishlist reports whether a non-empty wish-list has been submitted.
func (p Participant) HasWishlist() bool {
	return p.Wishlist != nil && *p.Wishlist != ""
}

type ParticipantDocument struct {
	Participants map[string]Participant `json:"participants"`
}

func NewParticipantDocument() *ParticipantDocument {
	return &ParticipantDocument{Participants: make(map[string]Participant)}
}

// FindByUserID returns the conversation id and record for userID.
func (d *ParticipantDocument) FindByUserID(userID string) (string, Participant, bool) {
	for chatID, p := range d.Participants {
		if p.UserID == userID {
			return chatID, p, true
		}
	}
	return "", Participant{}, false
}

// AssignmentDocument holds the single active round. An empty Assignments map
// means no round has been started.
type AssignmentDocument struct {
	Assignments map[string]string `json:"assignments"` // giver user id -> receiver user id
	RoundID     string            `json:"round_id,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
}

func NewAssignmentDocument() *AssignmentDocument {
	return &AssignmentDocument{Assignments: make(map[string]string)}
}

func (d *AssignmentDocument) Started() bool {
	return len(d.Assignments) > 0
}
