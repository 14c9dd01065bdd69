package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, callbacks, dialogues or expected documents.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Fallbacks is a resolved FallbackProvider. Missing handlers are replaced by
// a no-op so routes never need nil checks.
type Fallbacks struct {
	Text     tele.HandlerFunc
	Document tele.HandlerFunc
	Callback tele.HandlerFunc
}

func ignore(tele.Context) error { return nil }

// ResolveFallbacks reads the handlers of p once. A nil p yields no-ops.
func ResolveFallbacks(p FallbackProvider) Fallbacks {
	fb := Fallbacks{Text: ignore, Document: ignore, Callback: ignore}
	if p == nil {
		return fb
	}
	if h := p.UnknownText(); h != nil {
		fb.Text = h
	}
	if h := p.UnknownDocument(); h != nil {
		fb.Document = h
	}
	if h := p.UnknownCallback(); h != nil {
		fb.Callback = h
	}
	return fb
}
