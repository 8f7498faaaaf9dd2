package bot

import (
	"context"
	"fmt"

	"gwi.com/secret-santa-bot/internal/core"
	"gwi.com/secret-santa-bot/internal/store"
)

// Sender is the part of the Telegram client the bot uses.
type Sender interface {
	SendMessage(ctx context.Context, chatID string, text string, markup any) error
	SendPhoto(ctx context.Context, chatID, fileID, caption string) error
	SendVideo(ctx context.Context, chatID, fileID string) error
	UploadVideo(ctx context.Context, chatID, path string) error
}

// Notifier delivers service notifications through a Sender.
type Notifier struct {
	sender       Sender
	ideasEnabled bool
}

func NewNotifier(sender Sender, ideasEnabled bool) *Notifier {
	return &Notifier{sender: sender, ideasEnabled: ideasEnabled}
}

func (n *Notifier) NotifyAssignment(ctx context.Context, giverConversationID string, receiver store.Participant) error {
	menu := core.MenuState{Registered: true, Started: true, HasAssignment: true, IdeasEnabled: n.ideasEnabled}
	return n.sender.SendMessage(ctx, giverConversationID, msgAssignmentNotice(receiver), mainKeyboard(menu))
}

func (n *Notifier) Deliver(ctx context.Context, conversationID string, msg core.Outbound) error {
	switch msg.Kind {
	case core.KindText:
		return n.sender.SendMessage(ctx, conversationID, msg.Text, nil)
	case core.KindPhoto:
		return n.sender.SendPhoto(ctx, conversationID, msg.FileID, "")
	case core.KindVideo:
		return n.sender.SendVideo(ctx, conversationID, msg.FileID)
	default:
		return fmt.Errorf("unsupported broadcast kind %q", msg.Kind)
	}
}
