package bot

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gwi.com/secret-santa-bot/internal/auth"
	"gwi.com/secret-santa-bot/internal/core"
	"gwi.com/secret-santa-bot/internal/telegram"
)

// Bot is the conversation controller. Each conversation runs a small state
// machine; updates are handled strictly one at a time because the service
// rewrites whole documents.
type Bot struct {
	svc        *core.SantaService
	sender     Sender
	authz      *auth.Authorizer
	sessions   *sessions
	introVideo string
	logger     *zap.Logger

	mu sync.Mutex
}

func New(svc *core.SantaService, sender Sender, authz *auth.Authorizer, introVideo string, logger *zap.Logger) *Bot {
	return &Bot{
		svc:        svc,
		sender:     sender,
		authz:      authz,
		sessions:   newSessions(),
		introVideo: introVideo,
		logger:     logger,
	}
}

// request is one inbound message with its resolved identities.
type request struct {
	ctx    context.Context
	chatID string
	userID string
	handle string
	msg    *telegram.Message
	text   string
}

// HandleUpdate implements telegram.UpdateHandler.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	req := &request{
		ctx:    ctx,
		chatID: strconv.FormatInt(msg.Chat.ID, 10),
		userID: strconv.FormatInt(msg.From.ID, 10),
		handle: msg.From.Username,
		msg:    msg,
		text:   strings.TrimSpace(msg.Text),
	}
	b.dispatch(req)
}

func (b *Bot) dispatch(req *request) {
	cmd := commandName(req.text)
	if cmd == "cancel" || req.text == BtnCancel {
		b.cancel(req)
		return
	}

	if handler := b.entryPoint(cmd, req.text); handler != nil {
		b.sessions.reset(req.chatID)
		handler(req)
		return
	}

	sess := b.sessions.get(req.chatID)
	b.logger.Debug("Continuing conversation",
		zap.String("conversation_id", req.chatID),
		zap.Stringer("state", sess.state),
	)
	switch sess.state {
	case stateAwaitingName:
		b.receiveName(req)
	case stateAwaitingWishlist:
		b.receiveWishlist(req)
	case stateAwaitingBroadcastType:
		b.receiveBroadcastType(req, sess)
	case stateAwaitingBroadcastContent:
		b.receiveBroadcastContent(req, sess)
	case stateAwaitingBroadcastConfirm:
		b.confirmBroadcast(req, sess)
	default:
		b.help(req)
	}
}

func (b *Bot) entryPoint(cmd, text string) func(*request) {
	switch cmd {
	case "start":
		return b.start
	case "join":
		return b.join
	case "help":
		return b.help
	case "wishlist":
		return b.wishlist
	case "my_santa":
		return b.mySanta
	case "ideas":
		return b.giftIdeas
	case "start_game":
		return b.startGame
	case "broadcast":
		return b.broadcast
	}
	switch text {
	case BtnJoin:
		return b.join
	case BtnChangeName:
		return b.rename
	case BtnEditWishlist:
		return b.wishlist
	case BtnMySanta:
		return b.mySanta
	case BtnGiftIdeas:
		return b.giftIdeas
	}
	return nil
}

// commandName extracts "start" from "/start" or "/start@SantaBot payload".
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(name[0], "@")
	return strings.ToLower(cmd)
}

func (b *Bot) reply(req *request, text string, markup any) {
	if err := b.sender.SendMessage(req.ctx, req.chatID, text, markup); err != nil {
		b.logger.Error("Failed to send reply",
			zap.String("conversation_id", req.chatID),
			zap.Error(err),
		)
	}
}

// replyMenu answers with the conversation's main keyboard attached.
func (b *Bot) replyMenu(req *request, text string) {
	menu, err := b.svc.Menu(req.chatID, req.userID)
	if err != nil {
		b.logger.Error("Failed to build menu", zap.String("conversation_id", req.chatID), zap.Error(err))
		b.reply(req, text, nil)
		return
	}
	b.reply(req, text, mainKeyboard(menu))
}

// fail reports an unexpected error and returns the conversation to idle.
func (b *Bot) fail(req *request, op string, err error) {
	b.logger.Error("Request failed",
		zap.String("op", op),
		zap.Stringer("state", b.sessions.get(req.chatID).state),
		zap.String("conversation_id", req.chatID),
		zap.String("user_id", req.userID),
		zap.Error(err),
	)
	b.sessions.reset(req.chatID)
	b.reply(req, msgSomethingWrong, nil)
}

func (b *Bot) help(req *request) {
	b.replyMenu(req, msgHelp)
}

func (b *Bot) cancel(req *request) {
	b.sessions.reset(req.chatID)
	b.replyMenu(req, msgCancelled)
}

// Registration

func (b *Bot) start(req *request) {
	err := b.svc.BeginRegistration(req.chatID)
	switch {
	case errors.Is(err, core.ErrAlreadyRegistered):
		b.replyMenu(req, msgWelcomeBack)
		return
	case errors.Is(err, core.ErrGameAlreadyStarted):
		b.replyMenu(req, msgGameStartedNoEdits)
		return
	case err != nil:
		b.fail(req, "start", err)
		return
	}

	if b.introVideo != "" {
		if _, statErr := os.Stat(b.introVideo); statErr != nil {
			b.logger.Error("Intro video not found", zap.String("path", b.introVideo), zap.Error(statErr))
			b.reply(req, msgVideoMissing, nil)
			return
		}
		if err := b.sender.UploadVideo(req.ctx, req.chatID, b.introVideo); err != nil {
			b.logger.Warn("Failed to send intro video", zap.String("conversation_id", req.chatID), zap.Error(err))
		}
	}
	b.askName(req)
}

func (b *Bot) join(req *request) {
	err := b.svc.BeginRegistration(req.chatID)
	switch {
	case err == nil:
		b.askName(req)
	case errors.Is(err, core.ErrAlreadyRegistered):
		b.replyMenu(req, msgAlreadyRegistered)
	case errors.Is(err, core.ErrGameAlreadyStarted):
		b.replyMenu(req, msgGameStartedNoEdits)
	default:
		b.fail(req, "join", err)
	}
}

func (b *Bot) rename(req *request) {
	err := b.svc.BeginRename(req.chatID)
	switch {
	case err == nil:
		b.askName(req)
	case errors.Is(err, core.ErrNotRegistered):
		b.replyMenu(req, msgJoinFirst)
	case errors.Is(err, core.ErrGameAlreadyStarted):
		b.replyMenu(req, msgGameStartedNoEdits)
	default:
		b.fail(req, "rename", err)
	}
}

func (b *Bot) askName(req *request) {
	b.sessions.set(req.chatID, stateAwaitingName)
	b.reply(req, msgAskName, cancelKeyboard())
}

func (b *Bot) receiveName(req *request) {
	if strings.HasPrefix(req.text, "/") {
		b.reply(req, msgNameIsCommand, cancelKeyboard())
		return
	}
	p, err := b.svc.SaveName(req.chatID, req.userID, req.handle, req.text)
	var verr *core.ValidationError
	switch {
	case err == nil:
		b.sessions.reset(req.chatID)
		b.replyMenu(req, msgNameSaved(p.DisplayName))
	case errors.As(err, &verr):
		b.reply(req, msgEmptyName, cancelKeyboard())
	case errors.Is(err, core.ErrGameAlreadyStarted):
		b.sessions.reset(req.chatID)
		b.replyMenu(req, msgGameStartedNoEdits)
	default:
		b.fail(req, "save name", err)
	}
}

// Wishlist

func (b *Bot) wishlist(req *request) {
	err := b.svc.BeginWishlist(req.chatID)
	switch {
	case err == nil:
		b.sessions.set(req.chatID, stateAwaitingWishlist)
		b.reply(req, msgAskWishlist, cancelKeyboard())
	case errors.Is(err, core.ErrNotRegistered):
		b.replyMenu(req, msgJoinFirst)
	case errors.Is(err, core.ErrGameAlreadyStarted):
		b.replyMenu(req, msgGameStartedNoEdits)
	default:
		b.fail(req, "wishlist", err)
	}
}

func (b *Bot) receiveWishlist(req *request) {
	if strings.HasPrefix(req.text, "/") {
		b.reply(req, msgWishlistIsCommand, cancelKeyboard())
		return
	}
	err := b.svc.SaveWishlist(req.chatID, req.text)
	var verr *core.ValidationError
	switch {
	case err == nil:
		b.sessions.reset(req.chatID)
		b.replyMenu(req, msgWishlistSaved)
	case errors.As(err, &verr):
		b.reply(req, msgEmptyWishlist, cancelKeyboard())
	case errors.Is(err, core.ErrNotRegistered):
		b.sessions.reset(req.chatID)
		b.replyMenu(req, msgJoinFirst)
	case errors.Is(err, core.ErrGameAlreadyStarted):
		b.sessions.reset(req.chatID)
		b.replyMenu(req, msgGameStartedNoEdits)
	default:
		b.fail(req, "save wishlist", err)
	}
}

// Reveal

func (b *Bot) mySanta(req *request) {
	receiver, err := b.svc.Reveal(req.userID)
	switch {
	case err == nil:
		b.replyMenu(req, msgReveal(receiver))
	case errors.Is(err, core.ErrNoAssignment):
		b.replyMenu(req, msgNoAssignmentYet)
	case errors.Is(err, core.ErrReceiverMissing):
		b.replyMenu(req, msgReceiverMissing)
	default:
		b.fail(req, "reveal", err)
	}
}

func (b *Bot) giftIdeas(req *request) {
	receiver, ideas, err := b.svc.GiftIdeas(req.ctx, req.userID)
	var serr *core.StorageError
	switch {
	case err == nil:
		b.replyMenu(req, msgGiftIdeas(receiver, ideas))
	case errors.Is(err, core.ErrIdeasDisabled):
		b.replyMenu(req, msgIdeasDisabled)
	case errors.Is(err, core.ErrNoAssignment):
		b.replyMenu(req, msgNoAssignmentYet)
	case errors.Is(err, core.ErrReceiverMissing):
		b.replyMenu(req, msgReceiverMissing)
	case errors.As(err, &serr):
		b.fail(req, "gift ideas", err)
	default:
		b.logger.Warn("Gift ideas failed", zap.String("user_id", req.userID), zap.Error(err))
		b.replyMenu(req, msgIdeasFailed)
	}
}

// Administration

func (b *Bot) requireAdmin(req *request) bool {
	if b.authz.IsAdminID(req.userID) {
		return true
	}
	b.logger.Warn("Admin command refused", zap.String("user_id", req.userID), zap.String("command", req.text))
	b.replyMenu(req, msgNotAdmin)
	return false
}

func (b *Bot) startGame(req *request) {
	if !b.requireAdmin(req) {
		return
	}

	report, err := b.svc.StartRound(req.ctx)
	var missing *core.MissingWishlistError
	switch {
	case err == nil:
		b.replyMenu(req, msgRoundStarted(report))
	case errors.Is(err, core.ErrGameAlreadyStarted):
		b.replyMenu(req, msgAlreadyStarted)
	case errors.Is(err, core.ErrNotEnoughParticipants):
		b.replyMenu(req, msgNotEnough)
	case errors.As(err, &missing):
		b.replyMenu(req, msgMissingWishlist(missing.DisplayName))
	case errors.Is(err, core.ErrInfeasible):
		b.replyMenu(req, msgInfeasible)
	default:
		b.fail(req, "start round", err)
	}
}

func (b *Bot) broadcast(req *request) {
	if !b.requireAdmin(req) {
		return
	}
	b.sessions.set(req.chatID, stateAwaitingBroadcastType)
	b.reply(req, msgBroadcastChooseType, broadcastTypeKeyboard())
}

func (b *Bot) receiveBroadcastType(req *request, sess *session) {
	var kind core.OutboundKind
	switch req.text {
	case BtnText:
		kind = core.KindText
	case BtnPhoto:
		kind = core.KindPhoto
	case BtnVideo:
		kind = core.KindVideo
	default:
		b.reply(req, msgBroadcastPickButton, broadcastTypeKeyboard())
		return
	}
	sess.broadcast = core.Outbound{Kind: kind}
	sess.state = stateAwaitingBroadcastContent
	b.reply(req, msgBroadcastAskContent(kind), cancelKeyboard())
}

func (b *Bot) receiveBroadcastContent(req *request, sess *session) {
	out := sess.broadcast
	var confirmation string

	switch out.Kind {
	case core.KindText:
		if req.text == "" {
			b.reply(req, msgBroadcastEmptyText, cancelKeyboard())
			return
		}
		out.Text = req.msg.Text
		confirmation = msgBroadcastConfirmText(out.Text)
	case core.KindPhoto:
		photo, ok := req.msg.LargestPhoto()
		if !ok {
			b.reply(req, msgBroadcastNeedPhoto, cancelKeyboard())
			return
		}
		out.FileID = photo.FileID
		confirmation = msgBroadcastConfirmPic
	case core.KindVideo:
		if req.msg.Video == nil {
			b.reply(req, msgBroadcastNeedVideo, cancelKeyboard())
			return
		}
		out.FileID = req.msg.Video.FileID
		confirmation = msgBroadcastConfirmVid
	}

	sess.broadcast = out
	sess.state = stateAwaitingBroadcastConfirm
	b.reply(req, confirmation, confirmKeyboard())

	// Echo media back so the admin sees exactly what will go out.
	var err error
	switch out.Kind {
	case core.KindPhoto:
		err = b.sender.SendPhoto(req.ctx, req.chatID, out.FileID, "")
	case core.KindVideo:
		err = b.sender.SendVideo(req.ctx, req.chatID, out.FileID)
	}
	if err != nil {
		b.logger.Warn("Failed to echo broadcast preview", zap.Error(err))
	}
}

func (b *Bot) confirmBroadcast(req *request, sess *session) {
	switch req.text {
	case BtnConfirmSend:
		out := sess.broadcast
		b.sessions.reset(req.chatID)
		report, err := b.svc.Broadcast(req.ctx, out)
		if err != nil {
			b.fail(req, "broadcast", err)
			return
		}
		b.replyMenu(req, msgBroadcastDone(report))
	case BtnConfirmCancel:
		b.sessions.reset(req.chatID)
		b.replyMenu(req, msgBroadcastCancelled)
	default:
		b.reply(req, msgBroadcastPickAnswer, confirmKeyboard())
	}
}
