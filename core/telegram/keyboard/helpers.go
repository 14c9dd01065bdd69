package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
// Exactly one of Data, URL or SwitchInline is expected to be set; Data is
// sent verbatim as callback_data.
type InlineBtn struct {
	Text         string
	Data         string
	URL          string
	SwitchInline string
}

// Inline converts the wrapper to a Telegram inline button.
func (b InlineBtn) Inline() tele.InlineButton {
	switch {
	case b.URL != "":
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	case b.SwitchInline != "":
		return tele.InlineButton{Text: b.Text, InlineQuery: b.SwitchInline}
	default:
		return tele.InlineButton{Text: b.Text, Data: b.Data}
	}
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// Empty rows are skipped; nil is returned when nothing remains.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = btn.Inline()
		}
		inline = append(inline, r)
	}
	if len(inline) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// Chunk splits a flat list into rows with up to n items per row.
func Chunk[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	rows := make([][]T, 0, (len(items)+n-1)/n)
	for i := 0; i < len(items); i += n {
		end := min(i+n, len(items))
		rows = append(rows, items[i:end])
	}
	return rows
}
