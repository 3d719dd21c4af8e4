package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"
	"github.com/set-night/crazegpt/internal/domain"
)

// Callback data prefixes for inline keyboards.
const (
	CallbackSessionOpen   = "sess_open:"
	CallbackSessionDelete = "sess_del:"
	CallbackSessionsPage  = "sess_page"
	CallbackModel         = "model:"
	CallbackNoop          = "cur"

	maxCallbackData = 64
	maxModelButtons = 20
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// PaginationRow creates a pagination row with prev/next buttons.
func PaginationRow(currentPage, totalPages int, callbackPrefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if currentPage > 0 {
		row = append(row, InlineButton("⬅️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage-1)))
	}

	row = append(row, InlineButton(
		fmt.Sprintf("%d/%d", currentPage+1, totalPages),
		CallbackNoop,
	))

	if currentPage < totalPages-1 {
		row = append(row, InlineButton("➡️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage+1)))
	}

	return row
}

// SessionsKeyboard lists one page of sessions, each with an open and a
// delete button, and marks the active one.
func SessionsKeyboard(sessions []domain.ChatSession, page, perPage int, activeID string) *models.InlineKeyboardMarkup {
	totalPages := (len(sessions) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * perPage
	end := min(start+perPage, len(sessions))

	var rows [][]models.InlineKeyboardButton
	for _, s := range sessions[start:end] {
		title := s.Title
		if title == "" {
			title = "New chat"
		}
		if s.ID == activeID {
			title = "✅ " + title
		}
		rows = append(rows, ButtonRow(
			InlineButton(title, CallbackSessionOpen+s.ID),
			InlineButton("🗑", CallbackSessionDelete+s.ID),
		))
	}
	if totalPages > 1 {
		rows = append(rows, PaginationRow(page, totalPages, CallbackSessionsPage))
	}
	return InlineKeyboard(rows...)
}

// ModelsKeyboard offers one button per model, marking the current one.
// Models whose ID does not fit in callback data are skipped.
func ModelsKeyboard(available []domain.AIModel, current string) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, m := range available {
		if len(rows) == maxModelButtons {
			break
		}
		data := CallbackModel + m.ID
		if len(data) > maxCallbackData {
			continue
		}
		label := m.Name
		if label == "" {
			label = m.ID
		}
		if m.ID == current {
			label = "✅ " + label
		}
		rows = append(rows, ButtonRow(InlineButton(label, data)))
	}
	return InlineKeyboard(rows...)
}
