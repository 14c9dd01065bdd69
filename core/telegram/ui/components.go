package ui

import tele "gopkg.in/telebot.v4"

// MarkdownArticle creates an inline ArticleResult whose message body is
// sent as MarkdownV2 together with an optional inline keyboard.
func MarkdownArticle(id, title, description, text string, markup *tele.ReplyMarkup) *tele.ArticleResult {
	result := &tele.ArticleResult{
		Title:       title,
		Description: description,
	}
	result.SetResultID(id)
	result.SetContent(&tele.InputTextMessageContent{
		Text:      text,
		ParseMode: tele.ModeMarkdownV2,
	})
	if markup != nil {
		result.ReplyMarkup = markup
	}
	return result
}
