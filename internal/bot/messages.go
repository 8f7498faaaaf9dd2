package bot

import (
	"fmt"
	"strings"

	"gwi.com/secret-santa-bot/internal/core"
	"gwi.com/secret-santa-bot/internal/store"
)

// Reply keyboard labels. Incoming text equal to a label is treated like the
// matching command.
const (
	BtnJoin         = "🎅 Join the game 🎄"
	BtnChangeName   = "✏️ Change name"
	BtnEditWishlist = "📝 Edit my letter to Santa 🎁"
	BtnMySanta      = "🎁 My Santa 🎅"
	BtnGiftIdeas    = "💡 Gift ideas"
	BtnCancel       = "Cancel"

	BtnText  = "Text"
	BtnPhoto = "Photo"
	BtnVideo = "Video"

	BtnConfirmSend   = "Yes, send"
	BtnConfirmCancel = "No, cancel"
)

const (
	msgHelp                = "Use the buttons below to interact with me."
	msgAskName             = "Hi! What's your name? 🎅🎁🎄 (Other participants will see it)"
	msgEmptyName           = "Your name can't be empty. Please type your name."
	msgNameIsCommand       = "That looks like a command, not a name. Please type your name or press Cancel."
	msgWishlistIsCommand   = "That looks like a command, not a letter. Please write your letter or press Cancel."
	msgAskWishlist         = "Write your letter to Santa for the Secret Santa. Be creative! (Your Santa will read it)"
	msgEmptyWishlist       = "Your letter can't be empty. Please write something."
	msgWishlistSaved       = "Your letter to Santa is saved! Wait for the game to start."
	msgAlreadyRegistered   = "You're already registered! Use \"" + BtnChangeName + "\" to change your name or \"" + BtnEditWishlist + "\" to edit your letter."
	msgWelcomeBack         = "Hi! Your details are saved. Tap \"" + BtnChangeName + "\" to change your name or \"" + BtnEditWishlist + "\" to edit your letter."
	msgGameStartedNoEdits  = "The game has already started, so names and letters can't be changed anymore."
	msgJoinFirst           = "You need to join the game first with the \"" + BtnJoin + "\" button."
	msgNoAssignmentYet     = "The game hasn't started yet, or you have no one to gift. Please wait for the game to start."
	msgReceiverMissing     = "I couldn't find your giftee's details. Something may have gone wrong, please tell the organiser."
	msgCancelled           = "Action cancelled."
	msgNotAdmin            = "You don't have permission to run this command."
	msgSomethingWrong      = "Sorry, something went wrong. Please try again later."
	msgVideoMissing        = "Sorry, I can't find the welcome video. Please tell the organiser."
	msgNotEnough           = "At least 2 participants are needed to start the game."
	msgInfeasible          = "Couldn't find suitable Secret Santa pairs. Try again or loosen the exclusions."
	msgAlreadyStarted      = "The game has already been started. Assignments can't be changed."
	msgIdeasDisabled       = "Gift ideas aren't available in this game."
	msgIdeasFailed         = "I couldn't come up with ideas right now. Please try again later."
	msgBroadcastChooseType = "What do you want to send to all participants?"
	msgBroadcastPickButton = "Please choose a type using the buttons."
	msgBroadcastEmptyText  = "The text can't be empty. Please send the text."
	msgBroadcastNeedPhoto  = "Please send a photo."
	msgBroadcastNeedVideo  = "Please send a video."
	msgBroadcastConfirmPic = "You are about to send this photo.\n\nConfirm sending?"
	msgBroadcastConfirmVid = "You are about to send this video.\n\nConfirm sending?"
	msgBroadcastCancelled  = "Broadcast cancelled."
	msgBroadcastPickAnswer = "Please answer with the buttons."
)

func msgNameSaved(name string) string {
	return fmt.Sprintf("Great, %s! Your details are updated. If you haven't written your letter to Santa yet, now is the time!", name)
}

func receiverLabel(p store.Participant) string {
	if p.Handle == "" {
		return p.DisplayName
	}
	return fmt.Sprintf("%s (@%s)", p.DisplayName, p.Handle)
}

func wishlistText(p store.Participant) string {
	if p.Wishlist == nil {
		return ""
	}
	return *p.Wishlist
}

func msgAssignmentNotice(receiver store.Participant) string {
	return fmt.Sprintf("Congratulations! Your Secret Santa giftee is %s. Here is their letter to Santa:\n\n%s",
		receiverLabel(receiver), wishlistText(receiver))
}

func msgReveal(receiver store.Participant) string {
	return fmt.Sprintf("Your Secret Santa giftee is %s. Here is their letter to Santa:\n\n%s",
		receiverLabel(receiver), wishlistText(receiver))
}

func msgGiftIdeas(receiver store.Participant, ideas string) string {
	return fmt.Sprintf("A few ideas for %s:\n\n%s", receiver.DisplayName, ideas)
}

func msgMissingWishlist(name string) string {
	return fmt.Sprintf("Participant %s hasn't written a letter to Santa yet. The game can't start.", name)
}

func msgRoundStarted(report *core.RoundReport) string {
	var b strings.Builder
	b.WriteString("The Secret Santa game has started! Participants have been sent their giftees.")
	if n := len(report.Unresolved); n > 0 {
		fmt.Fprintf(&b, "\n\nNote: %d exclusion pair(s) didn't match any participant and were skipped.", n)
	}
	if report.Delivery.Failed() > 0 {
		names := make([]string, 0, report.Delivery.Failed())
		for _, f := range report.Delivery.Failures {
			names = append(names, f.DisplayName)
		}
		fmt.Fprintf(&b, "\n\nCouldn't deliver the message to %d participant(s): %s.", report.Delivery.Failed(), strings.Join(names, ", "))
	}
	return b.String()
}

func msgBroadcastAskContent(kind core.OutboundKind) string {
	switch kind {
	case core.KindPhoto:
		return "Send the photo to broadcast."
	case core.KindVideo:
		return "Send the video to broadcast."
	default:
		return "Send the text to broadcast."
	}
}

func msgBroadcastConfirmText(text string) string {
	return fmt.Sprintf("You are about to send the following text:\n\n%s\n\nConfirm sending?", text)
}

func msgBroadcastDone(report core.DeliveryReport) string {
	if report.Failed() == 0 {
		return fmt.Sprintf("Broadcast finished. Sent %d messages.", report.Sent)
	}
	return fmt.Sprintf("Broadcast finished. Sent %d messages, %d failed.", report.Sent, report.Failed())
}
