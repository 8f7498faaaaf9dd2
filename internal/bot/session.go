package bot

import "gwi.com/secret-santa-bot/internal/core"

type state int

const (
	stateIdle state = iota
	stateAwaitingName
	stateAwaitingWishlist
	stateAwaitingBroadcastType
	stateAwaitingBroadcastContent
	stateAwaitingBroadcastConfirm
)

func (s state) String() string {
	switch s {
	case stateAwaitingName:
		return "awaiting_name"
	case stateAwaitingWishlist:
		return "awaiting_wishlist"
	case stateAwaitingBroadcastType:
		return "awaiting_broadcast_type"
	case stateAwaitingBroadcastContent:
		return "awaiting_broadcast_content"
	case stateAwaitingBroadcastConfirm:
		return "awaiting_broadcast_confirm"
	default:
		return "idle"
	}
}

type session struct {
	state     state
	broadcast core.Outbound
}

// sessions keeps conversation state in memory, keyed by conversation id.
// State is lost on restart, which drops users back to the main menu.
type sessions struct {
	byChat map[string]*session
}

func newSessions() *sessions {
	return &sessions{byChat: make(map[string]*session)}
}

func (s *sessions) get(chatID string) *session {
	sess, ok := s.byChat[chatID]
	if !ok {
		sess = &session{}
		s.byChat[chatID] = sess
	}
	return sess
}

func (s *sessions) set(chatID string, st state) {
	s.get(chatID).state = st
}

func (s *sessions) reset(chatID string) {
	delete(s.byChat, chatID)
}
