package bot

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gwi.com/secret-santa-bot/internal/auth"
	"gwi.com/secret-santa-bot/internal/core"
	"gwi.com/secret-santa-bot/internal/store"
	"gwi.com/secret-santa-bot/internal/telegram"
)

const adminID = 1

type sentMessage struct {
	Method string
	ChatID string
	Text   string
	FileID string
	Markup any
}

type fakeSender struct {
	sent      []sentMessage
	failChats map[string]error
}

func (f *fakeSender) record(m sentMessage) error {
	f.sent = append(f.sent, m)
	return f.failChats[m.ChatID]
}

func (f *fakeSender) SendMessage(_ context.Context, chatID string, text string, markup any) error {
	return f.record(sentMessage{Method: "sendMessage", ChatID: chatID, Text: text, Markup: markup})
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID, fileID, _ string) error {
	return f.record(sentMessage{Method: "sendPhoto", ChatID: chatID, FileID: fileID})
}

func (f *fakeSender) SendVideo(_ context.Context, chatID, fileID string) error {
	return f.record(sentMessage{Method: "sendVideo", ChatID: chatID, FileID: fileID})
}

func (f *fakeSender) UploadVideo(_ context.Context, chatID, path string) error {
	return f.record(sentMessage{Method: "uploadVideo", ChatID: chatID, FileID: path})
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) to(chatID string) []sentMessage {
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type harness struct {
	bot    *Bot
	sender *fakeSender
	store  *store.JSONStore
}

func newHarness(t *testing.T, introVideo string, exclusions ...core.ExclusionRule) *harness {
	t.Helper()
	dir := t.TempDir()
	st := store.NewJSONStore(filepath.Join(dir, "participants.json"), filepath.Join(dir, "assignments.json"))
	sender := &fakeSender{failChats: map[string]error{}}
	svc := core.NewSantaService(core.Deps{
		Participants: st,
		Assignments:  st,
		Engine:       core.NewEngine(rand.New(rand.NewPCG(1, 2)), core.DefaultMaxAttempts),
		Exclusions:   exclusions,
		Notifier:     NewNotifier(sender, false),
		Logger:       zap.NewNop(),
	})
	b := New(svc, sender, auth.NewAuthorizer(adminID), introVideo, zap.NewNop())
	return &harness{bot: b, sender: sender, store: st}
}

func (h *harness) say(userID int64, username, text string) {
	h.deliver(&telegram.Message{
		From: &telegram.User{ID: userID, Username: username},
		Chat: telegram.Chat{ID: userID, Type: "private"},
		Text: text,
	})
}

func (h *harness) deliver(msg *telegram.Message) {
	h.bot.HandleUpdate(context.Background(), telegram.Update{UpdateID: 1, Message: msg})
}

func (h *harness) register(t *testing.T, userID int64, name, wishlist string) {
	t.Helper()
	h.say(userID, "", "/join")
	h.say(userID, "", name)
	require.Equal(t, msgNameSaved(name), h.sender.last(t).Text)
	if wishlist != "" {
		h.say(userID, "", BtnEditWishlist)
		h.say(userID, "", wishlist)
		require.Equal(t, msgWishlistSaved, h.sender.last(t).Text)
	}
}

func chat(id int64) string { return strconv.FormatInt(id, 10) }

func buttons(t *testing.T, markup any) []string {
	t.Helper()
	kb, ok := markup.(*telegram.ReplyKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range kb.Keyboard {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

func TestBot_RegistrationFlow(t *testing.T) {
	h := newHarness(t, "")

	h.say(10, "alice", "/start")
	last := h.sender.last(t)
	assert.Equal(t, msgAskName, last.Text)
	assert.Equal(t, []string{BtnCancel}, buttons(t, last.Markup))

	// A photo without text is not a name.
	h.deliver(&telegram.Message{
		From:  &telegram.User{ID: 10, Username: "alice"},
		Chat:  telegram.Chat{ID: 10},
		Photo: []telegram.PhotoSize{{FileID: "p"}},
	})
	assert.Equal(t, msgEmptyName, h.sender.last(t).Text)

	h.say(10, "alice", "  Alice  ")
	last = h.sender.last(t)
	assert.Equal(t, msgNameSaved("Alice"), last.Text)
	assert.Equal(t, []string{BtnChangeName, BtnEditWishlist}, buttons(t, last.Markup))

	h.say(10, "alice", BtnEditWishlist)
	assert.Equal(t, msgAskWishlist, h.sender.last(t).Text)
	h.say(10, "alice", "   ")
	assert.Equal(t, msgEmptyWishlist, h.sender.last(t).Text)
	h.say(10, "alice", "A warm scarf")
	assert.Equal(t, msgWishlistSaved, h.sender.last(t).Text)

	h.say(10, "alice", BtnChangeName)
	h.say(10, "alice", "Alicia")
	assert.Equal(t, msgNameSaved("Alicia"), h.sender.last(t).Text)

	doc, err := h.store.LoadParticipants()
	require.NoError(t, err)
	p := doc.Participants["10"]
	assert.Equal(t, "10", p.UserID)
	assert.Equal(t, "Alicia", p.DisplayName)
	assert.Equal(t, "alice", p.Handle)
	require.NotNil(t, p.Wishlist)
	assert.Equal(t, "A warm scarf", *p.Wishlist)

	h.say(10, "alice", "/start")
	assert.Equal(t, msgWelcomeBack, h.sender.last(t).Text)
	h.say(10, "alice", "/join")
	assert.Equal(t, msgAlreadyRegistered, h.sender.last(t).Text)
}

func TestBot_CommandsAreNotNamesOrLetters(t *testing.T) {
	h := newHarness(t, "")

	h.say(10, "", "/join")
	h.say(10, "", "/foo")
	assert.Equal(t, msgNameIsCommand, h.sender.last(t).Text)
	h.say(10, "", "Alice")
	assert.Equal(t, msgNameSaved("Alice"), h.sender.last(t).Text)

	h.say(10, "", BtnEditWishlist)
	h.say(10, "", "/bar baz")
	assert.Equal(t, msgWishlistIsCommand, h.sender.last(t).Text)
	h.say(10, "", "Socks")
	assert.Equal(t, msgWishlistSaved, h.sender.last(t).Text)

	doc, err := h.store.LoadParticipants()
	require.NoError(t, err)
	assert.Equal(t, "Alice", doc.Participants["10"].DisplayName)
	assert.Equal(t, "Socks", *doc.Participants["10"].Wishlist)
}

func TestBot_FailureLogsConversationState(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(obsCore)

	missing := filepath.Join(t.TempDir(), "missing")
	st := store.NewJSONStore(filepath.Join(missing, "participants.json"), filepath.Join(missing, "assignments.json"))
	sender := &fakeSender{failChats: map[string]error{}}
	svc := core.NewSantaService(core.Deps{
		Participants: st,
		Assignments:  st,
		Notifier:     NewNotifier(sender, false),
		Logger:       logger,
	})
	b := New(svc, sender, auth.NewAuthorizer(adminID), "", logger)
	h := &harness{bot: b, sender: sender, store: st}

	h.say(10, "", "/join")
	h.say(10, "", "Alice")
	assert.Equal(t, msgSomethingWrong, h.sender.last(t).Text)

	failed := logs.FilterMessage("Request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "awaiting_name", failed[0].ContextMap()["state"])
	assert.Equal(t, "save name", failed[0].ContextMap()["op"])

	// The conversation is back in idle afterwards.
	h.say(10, "", "Alice")
	assert.Equal(t, msgHelp, h.sender.last(t).Text)
}

func TestBot_GuidanceForUnregistered(t *testing.T) {
	h := newHarness(t, "")

	h.say(20, "", "/wishlist")
	last := h.sender.last(t)
	assert.Equal(t, msgJoinFirst, last.Text)
	assert.Equal(t, []string{BtnJoin}, buttons(t, last.Markup))

	h.say(20, "", BtnChangeName)
	assert.Equal(t, msgJoinFirst, h.sender.last(t).Text)

	h.say(20, "", BtnMySanta)
	assert.Equal(t, msgNoAssignmentYet, h.sender.last(t).Text)

	h.say(20, "", "hello there")
	assert.Equal(t, msgHelp, h.sender.last(t).Text)
}

func TestBot_CancelReturnsToMenu(t *testing.T) {
	h := newHarness(t, "")

	h.say(30, "", "/join")
	h.say(30, "", BtnCancel)
	assert.Equal(t, msgCancelled, h.sender.last(t).Text)

	// Back in idle, free text is not taken as a name.
	h.say(30, "", "Carol")
	assert.Equal(t, msgHelp, h.sender.last(t).Text)

	doc, err := h.store.LoadParticipants()
	require.NoError(t, err)
	assert.Empty(t, doc.Participants)
}

func TestBot_StartGameRequiresAdmin(t *testing.T) {
	h := newHarness(t, "")
	h.say(10, "", "/start_game")
	assert.Equal(t, msgNotAdmin, h.sender.last(t).Text)
	h.say(10, "", "/broadcast")
	assert.Equal(t, msgNotAdmin, h.sender.last(t).Text)
}

func TestBot_StartGamePreconditions(t *testing.T) {
	h := newHarness(t, "")

	h.register(t, 10, "Alice", "books")
	h.say(adminID, "", "/start_game")
	assert.Equal(t, msgNotEnough, h.sender.last(t).Text)

	h.register(t, 11, "Bob", "")
	h.say(adminID, "", "/start_game@SecretSantaBot")
	assert.Equal(t, msgMissingWishlist("Bob"), h.sender.last(t).Text)

	doc, err := h.store.LoadAssignments()
	require.NoError(t, err)
	assert.False(t, doc.Started())
}

func TestBot_StartGameInfeasible(t *testing.T) {
	h := newHarness(t, "", core.ExclusionRule{A: "Alice", B: "Bob"})
	h.register(t, 10, "Alice", "books")
	h.register(t, 11, "Bob", "tea")

	h.say(adminID, "", "/start_game")
	assert.Equal(t, msgInfeasible, h.sender.last(t).Text)
}

func TestBot_FullRound(t *testing.T) {
	h := newHarness(t, "")
	h.register(t, 10, "Alice", "books")
	h.register(t, 11, "Bob", "tea")
	h.sender.sent = nil

	h.say(adminID, "", "/start_game")
	admin := h.sender.to(chat(adminID))
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0].Text, "has started")

	toAlice := h.sender.to("10")
	require.Len(t, toAlice, 1)
	assert.Equal(t, "Congratulations! Your Secret Santa giftee is Bob. Here is their letter to Santa:\n\ntea", toAlice[0].Text)
	assert.Equal(t, []string{BtnMySanta}, buttons(t, toAlice[0].Markup))
	require.Len(t, h.sender.to("11"), 1)

	h.say(10, "", BtnMySanta)
	first := h.sender.last(t).Text
	h.say(10, "", "/my_santa")
	assert.Equal(t, first, h.sender.last(t).Text)
	assert.Contains(t, first, "Bob")

	h.say(10, "", BtnEditWishlist)
	assert.Equal(t, msgGameStartedNoEdits, h.sender.last(t).Text)
	h.say(adminID, "", "/start_game")
	assert.Equal(t, msgAlreadyStarted, h.sender.last(t).Text)

	h.say(10, "", "/ideas")
	assert.Equal(t, msgIdeasDisabled, h.sender.last(t).Text)
}

func TestBot_FullRoundReportsDeliveryFailures(t *testing.T) {
	h := newHarness(t, "")
	h.register(t, 10, "Alice", "books")
	h.register(t, 11, "Bob", "tea")
	h.sender.failChats["11"] = errors.New("Forbidden: bot was blocked by the user")

	h.say(adminID, "", "/start_game")
	text := h.sender.last(t).Text
	assert.Contains(t, text, "Couldn't deliver the message to 1 participant(s): Bob.")

	doc, err := h.store.LoadAssignments()
	require.NoError(t, err)
	assert.Len(t, doc.Assignments, 2)
}

func TestBot_BroadcastPhoto(t *testing.T) {
	h := newHarness(t, "")
	h.register(t, 10, "Alice", "")
	h.register(t, 11, "Bob", "")

	h.say(adminID, "", "/broadcast")
	last := h.sender.last(t)
	assert.Equal(t, msgBroadcastChooseType, last.Text)
	assert.Equal(t, []string{BtnText, BtnPhoto, BtnVideo}, buttons(t, last.Markup))

	h.say(adminID, "", "Sticker")
	assert.Equal(t, msgBroadcastPickButton, h.sender.last(t).Text)

	h.say(adminID, "", BtnPhoto)
	assert.Equal(t, msgBroadcastAskContent(core.KindPhoto), h.sender.last(t).Text)

	h.say(adminID, "", "not a photo")
	assert.Equal(t, msgBroadcastNeedPhoto, h.sender.last(t).Text)

	h.deliver(&telegram.Message{
		From:  &telegram.User{ID: adminID},
		Chat:  telegram.Chat{ID: adminID},
		Photo: []telegram.PhotoSize{{FileID: "thumb"}, {FileID: "full"}},
	})
	admin := h.sender.to(chat(adminID))
	require.GreaterOrEqual(t, len(admin), 2)
	assert.Equal(t, msgBroadcastConfirmPic, admin[len(admin)-2].Text)
	assert.Equal(t, sentMessage{Method: "sendPhoto", ChatID: chat(adminID), FileID: "full"}, admin[len(admin)-1])

	h.sender.sent = nil
	h.say(adminID, "", BtnConfirmSend)
	assert.Equal(t, []sentMessage{{Method: "sendPhoto", ChatID: "10", FileID: "full"}}, h.sender.to("10"))
	assert.Equal(t, []sentMessage{{Method: "sendPhoto", ChatID: "11", FileID: "full"}}, h.sender.to("11"))
	assert.Equal(t, "Broadcast finished. Sent 2 messages.", h.sender.last(t).Text)
}

func TestBot_BroadcastTextWithFailureAndCancel(t *testing.T) {
	h := newHarness(t, "")
	h.register(t, 10, "Alice", "")
	h.register(t, 11, "Bob", "")
	h.sender.failChats["10"] = errors.New("chat not found")

	h.say(adminID, "", "/broadcast")
	h.say(adminID, "", BtnText)
	h.say(adminID, "", "Party on Friday!")
	assert.Equal(t, msgBroadcastConfirmText("Party on Friday!"), h.sender.last(t).Text)
	h.say(adminID, "", "maybe")
	assert.Equal(t, msgBroadcastPickAnswer, h.sender.last(t).Text)
	h.say(adminID, "", BtnConfirmSend)
	assert.Equal(t, "Broadcast finished. Sent 1 messages, 1 failed.", h.sender.last(t).Text)
	assert.Equal(t, "Party on Friday!", h.sender.to("11")[len(h.sender.to("11"))-1].Text)

	h.say(adminID, "", "/broadcast")
	h.say(adminID, "", BtnVideo)
	h.deliver(&telegram.Message{
		From:  &telegram.User{ID: adminID},
		Chat:  telegram.Chat{ID: adminID},
		Video: &telegram.Video{FileID: "vid"},
	})
	h.sender.sent = nil
	h.say(adminID, "", BtnConfirmCancel)
	assert.Equal(t, msgBroadcastCancelled, h.sender.last(t).Text)
	assert.Empty(t, h.sender.to("11"))
}

func TestBot_IntroVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))

	h := newHarness(t, path)
	h.say(10, "", "/start")
	msgs := h.sender.to("10")
	require.Len(t, msgs, 2)
	assert.Equal(t, sentMessage{Method: "uploadVideo", ChatID: "10", FileID: path}, msgs[0])
	assert.Equal(t, msgAskName, msgs[1].Text)

	missing := newHarness(t, filepath.Join(t.TempDir(), "gone.mp4"))
	missing.say(10, "", "/start")
	assert.Equal(t, msgVideoMissing, missing.sender.last(t).Text)
	missing.say(10, "", "Alice")
	assert.Equal(t, msgHelp, missing.sender.last(t).Text)
}

func TestBot_IgnoresUpdatesWithoutMessage(t *testing.T) {
	h := newHarness(t, "")
	h.bot.HandleUpdate(context.Background(), telegram.Update{UpdateID: 5})
	h.bot.HandleUpdate(context.Background(), telegram.Update{UpdateID: 6, Message: &telegram.Message{Text: "/start"}})
	assert.Empty(t, h.sender.sent)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "start", commandName("/start"))
	assert.Equal(t, "start_game", commandName("/start_game@SantaBot"))
	assert.Equal(t, "join", commandName("/JOIN now"))
	assert.Equal(t, "", commandName("/"))
	assert.Equal(t, "", commandName("hello"))
}

func TestMainKeyboard(t *testing.T) {
	assert.Equal(t, []string{BtnJoin}, buttons(t, mainKeyboard(core.MenuState{})))
	assert.Equal(t, []string{BtnChangeName, BtnEditWishlist}, buttons(t, mainKeyboard(core.MenuState{Registered: true})))
	assert.Equal(t, []string{BtnMySanta, BtnGiftIdeas}, buttons(t, mainKeyboard(core.MenuState{Registered: true, Started: true, HasAssignment: true, IdeasEnabled: true})))
	assert.IsType(t, &telegram.ReplyKeyboardRemove{}, mainKeyboard(core.MenuState{Registered: true, Started: true}))
}
