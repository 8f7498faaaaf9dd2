package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gwi.com/secret-santa-bot/internal/store"
)

type OutboundKind string

const (
	KindText  OutboundKind = "text"
	KindPhoto OutboundKind = "photo"
	KindVideo OutboundKind = "video"
)

// Outbound is a broadcast payload. Media is referenced by a transport file id.
type Outbound struct {
	Kind   OutboundKind
	Text   string
	FileID string
}

func (m Outbound) validate() error {
	switch m.Kind {
	case KindText:
		if strings.TrimSpace(m.Text) == "" {
			return &ValidationError{Field: "broadcast text"}
		}
	case KindPhoto, KindVideo:
		if m.FileID == "" {
			return &ValidationError{Field: "broadcast " + string(m.Kind)}
		}
	default:
		return fmt.Errorf("unknown broadcast kind %q", m.Kind)
	}
	return nil
}

// Notifier delivers messages produced by the service to conversations.
type Notifier interface {
	NotifyAssignment(ctx context.Context, giverConversationID string, receiver store.Participant) error
	Deliver(ctx context.Context, conversationID string, msg Outbound) error
}

// MenuState is what a conversation may do right now.
type MenuState struct {
	Registered    bool
	Started       bool
	HasAssignment bool
	IdeasEnabled  bool
}

// RoundReport describes a successfully started round.
type RoundReport struct {
	RoundID    string
	Pairs      int
	Unresolved []ExclusionRule
	Delivery   DeliveryReport
}

type Deps struct {
	Participants store.ParticipantStore
	Assignments  store.AssignmentStore
	Engine       *Engine
	Exclusions   []ExclusionRule
	Notifier     Notifier
	Ideas        IdeaGenerator // optional
	Logger       *zap.Logger
}

// SantaService is the only writer of the participant and assignment
// documents. Callers must not invoke it concurrently.
type SantaService struct {
	participants store.ParticipantStore
	assignments  store.AssignmentStore
	engine       *Engine
	exclusions   []ExclusionRule
	notifier     Notifier
	ideas        IdeaGenerator
	logger       *zap.Logger
	now          func() time.Time
}

func NewSantaService(deps Deps) *SantaService {
	engine := deps.Engine
	if engine == nil {
		engine = NewEngine(nil, DefaultMaxAttempts)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SantaService{
		participants: deps.Participants,
		assignments:  deps.Assignments,
		engine:       engine,
		exclusions:   deps.Exclusions,
		notifier:     deps.Notifier,
		ideas:        deps.Ideas,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *SantaService) loadParticipants() (*store.ParticipantDocument, error) {
	doc, err := s.participants.LoadParticipants()
	return doc, storageErr("load participants", err)
}

func (s *SantaService) loadAssignments() (*store.AssignmentDocument, error) {
	doc, err := s.assignments.LoadAssignments()
	return doc, storageErr("load assignments", err)
}

func (s *SantaService) Menu(conversationID, userID string) (MenuState, error) {
	participants, err := s.loadParticipants()
	if err != nil {
		return MenuState{}, err
	}
	assignments, err := s.loadAssignments()
	if err != nil {
		return MenuState{}, err
	}
	_, registered := participants.Participants[conversationID]
	_, assigned := assignments.Assignments[userID]
	return MenuState{
		Registered:    registered,
		Started:       assignments.Started(),
		HasAssignment: assigned,
		IdeasEnabled:  s.ideas != nil,
	}, nil
}

// Participant returns the record registered for a conversation.
func (s *SantaService) Participant(conversationID string) (store.Participant, error) {
	doc, err := s.loadParticipants()
	if err != nil {
		return store.Participant{}, err
	}
	p, ok := doc.Participants[conversationID]
	if !ok {
		return store.Participant{}, ErrNotRegistered
	}
	return p, nil
}

// checkEditable fails unless the conversation is registered and no round
// has started.
func (s *SantaService) checkEditable(conversationID string) error {
	menu, err := s.Menu(conversationID, "")
	if err != nil {
		return err
	}
	if !menu.Registered {
		return ErrNotRegistered
	}
	if menu.Started {
		return ErrGameAlreadyStarted
	}
	return nil
}

// BeginRegistration checks that a conversation may register for the first time.
func (s *SantaService) BeginRegistration(conversationID string) error {
	menu, err := s.Menu(conversationID, "")
	if err != nil {
		return err
	}
	if !menu.Registered {
		return nil
	}
	if menu.Started {
		return ErrGameAlreadyStarted
	}
	return ErrAlreadyRegistered
}

func (s *SantaService) BeginRename(conversationID string) error {
	return s.checkEditable(conversationID)
}

func (s *SantaService) BeginWishlist(conversationID string) error {
	return s.checkEditable(conversationID)
}

// SaveName registers a conversation or renames its participant. New
// participants may still join after a round has started; they simply get no
// assignment. Existing participants cannot rename once it has.
func (s *SantaService) SaveName(conversationID, userID, handle, name string) (store.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Participant{}, &ValidationError{Field: "name"}
	}

	doc, err := s.loadParticipants()
	if err != nil {
		return store.Participant{}, err
	}
	p, exists := doc.Participants[conversationID]
	if exists {
		assignments, err := s.loadAssignments()
		if err != nil {
			return store.Participant{}, err
		}
		if assignments.Started() {
			return store.Participant{}, ErrGameAlreadyStarted
		}
	} else {
		p = store.Participant{UserID: userID}
	}
	p.DisplayName = name
	p.Handle = handle

	doc.Participants[conversationID] = p
	if err := s.participants.SaveParticipants(doc); err != nil {
		return store.Participant{}, storageErr("save participants", err)
	}
	s.logger.Info("Participant saved",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", p.UserID),
		zap.Bool("new", !exists),
	)
	return p, nil
}

func (s *SantaService) SaveWishlist(conversationID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ValidationError{Field: "wishlist"}
	}
	if err := s.checkEditable(conversationID); err != nil {
		return err
	}

	doc, err := s.loadParticipants()
	if err != nil {
		return err
	}
	p := doc.Participants[conversationID]
	p.Wishlist = &text
	doc.Participants[conversationID] = p
	if err := s.participants.SaveParticipants(doc); err != nil {
		return storageErr("save participants", err)
	}
	s.logger.Info("Wishlist saved", zap.String("conversation_id", conversationID))
	return nil
}

// StartRound builds and persists the one round, then tells every giver who
// they are gifting. Preconditions are checked before any mapping is
// computed; on any error nothing is persisted. Delivery failures do not undo
// the round and are reported in the returned DeliveryReport.
func (s *SantaService) StartRound(ctx context.Context) (*RoundReport, error) {
	assignments, err := s.loadAssignments()
	if err != nil {
		return nil, err
	}
	if assignments.Started() {
		return nil, ErrGameAlreadyStarted
	}

	doc, err := s.loadParticipants()
	if err != nil {
		return nil, err
	}
	chatIDs := sortedKeys(doc.Participants)
	participants := make([]store.Participant, 0, len(chatIDs))
	for _, id := range chatIDs {
		participants = append(participants, doc.Participants[id])
	}
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	forbidden, unresolved := ResolveExclusions(s.exclusions, participants)
	for _, rule := range unresolved {
		s.logger.Warn("Could not resolve exclusion pair; make sure both have joined under this name or handle",
			zap.String("a", rule.A),
			zap.String("b", rule.B),
		)
	}

	for _, p := range participants {
		if !p.HasWishlist() {
			return nil, &MissingWishlistError{UserID: p.UserID, DisplayName: p.DisplayName}
		}
	}

	mapping, err := s.engine.Assign(participants, forbidden)
	if err != nil {
		s.logger.Warn("Assignment failed",
			zap.Int("participants", len(participants)),
			zap.Int("forbidden_pairs", len(forbidden)),
			zap.Error(err),
		)
		return nil, err
	}

	startedAt := s.now().UTC()
	round := &store.AssignmentDocument{
		Assignments: mapping,
		RoundID:     uuid.NewString(),
		StartedAt:   &startedAt,
	}
	if err := s.assignments.SaveAssignments(round); err != nil {
		return nil, storageErr("save assignments", err)
	}
	s.logger.Info("Round started",
		zap.String("round_id", round.RoundID),
		zap.Int("pairs", len(mapping)),
	)

	report := &RoundReport{RoundID: round.RoundID, Pairs: len(mapping), Unresolved: unresolved}
	for _, chatID := range chatIDs {
		giver := doc.Participants[chatID]
		receiverID, ok := mapping[giver.UserID]
		if !ok {
			continue
		}
		_, receiver, _ := doc.FindByUserID(receiverID)
		if err := s.notifier.NotifyAssignment(ctx, chatID, receiver); err != nil {
			s.logger.Error("Could not notify giver",
				zap.String("round_id", round.RoundID),
				zap.String("conversation_id", chatID),
				zap.String("user_id", giver.UserID),
				zap.Error(err),
			)
			report.Delivery.Failures = append(report.Delivery.Failures, DeliveryFailure{
				ConversationID: chatID,
				DisplayName:    giver.DisplayName,
				Err:            err,
			})
			continue
		}
		report.Delivery.Sent++
	}
	return report, nil
}

// Reveal returns the receiver assigned to userID.
func (s *SantaService) Reveal(userID string) (store.Participant, error) {
	assignments, err := s.loadAssignments()
	if err != nil {
		return store.Participant{}, err
	}
	receiverID, ok := assignments.Assignments[userID]
	if !ok {
		return store.Participant{}, ErrNoAssignment
	}

	doc, err := s.loadParticipants()
	if err != nil {
		return store.Participant{}, err
	}
	_, receiver, found := doc.FindByUserID(receiverID)
	if !found {
		return store.Participant{}, ErrReceiverMissing
	}
	return receiver, nil
}

// GiftIdeas asks the idea generator for presents matching the wishlist of
// userID's receiver.
func (s *SantaService) GiftIdeas(ctx context.Context, userID string) (store.Participant, string, error) {
	if s.ideas == nil {
		return store.Participant{}, "", ErrIdeasDisabled
	}
	receiver, err := s.Reveal(userID)
	if err != nil {
		return store.Participant{}, "", err
	}
	wishlist := ""
	if receiver.Wishlist != nil {
		wishlist = *receiver.Wishlist
	}
	ideas, err := s.ideas.SuggestGifts(ctx, wishlist)
	if err != nil {
		return receiver, "", fmt.Errorf("failed to suggest gifts: %w", err)
	}
	return receiver, ideas, nil
}

// Broadcast sends msg to every registered conversation.
func (s *SantaService) Broadcast(ctx context.Context, msg Outbound) (DeliveryReport, error) {
	if err := msg.validate(); err != nil {
		return DeliveryReport{}, err
	}
	doc, err := s.loadParticipants()
	if err != nil {
		return DeliveryReport{}, err
	}

	broadcastID := uuid.NewString()
	var report DeliveryReport
	for _, chatID := range sortedKeys(doc.Participants) {
		p := doc.Participants[chatID]
		if err := s.notifier.Deliver(ctx, chatID, msg); err != nil {
			s.logger.Error("Could not send broadcast",
				zap.String("broadcast_id", broadcastID),
				zap.String("conversation_id", chatID),
				zap.String("name", p.DisplayName),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, DeliveryFailure{ConversationID: chatID, DisplayName: p.DisplayName, Err: err})
			continue
		}
		report.Sent++
	}
	s.logger.Info("Broadcast finished",
		zap.String("broadcast_id", broadcastID),
		zap.String("kind", string(msg.Kind)),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed()),
	)
	return report, nil
}

func sortedKeys(m map[string]store.Participant) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
