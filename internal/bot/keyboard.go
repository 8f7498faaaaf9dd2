package bot

import (
	"gwi.com/secret-santa-bot/internal/core"
	"gwi.com/secret-santa-bot/internal/telegram"
)

// mainKeyboard lists the actions available to a conversation, or removes
// the keyboard when there are none.
func mainKeyboard(menu core.MenuState) any {
	var rows [][]string
	switch {
	case !menu.Registered:
		rows = append(rows, []string{BtnJoin})
	case !menu.Started:
		rows = append(rows, []string{BtnChangeName, BtnEditWishlist})
	}
	if menu.Started && menu.HasAssignment {
		row := []string{BtnMySanta}
		if menu.IdeasEnabled {
			row = append(row, BtnGiftIdeas)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return &telegram.ReplyKeyboardRemove{RemoveKeyboard: true}
	}
	return telegram.Keyboard(false, rows...)
}

func cancelKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(true, []string{BtnCancel})
}

func broadcastTypeKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(true, []string{BtnText, BtnPhoto, BtnVideo})
}

func confirmKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(true, []string{BtnConfirmSend, BtnConfirmCancel})
}
