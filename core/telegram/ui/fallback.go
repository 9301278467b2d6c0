// Package ui declares presentation hooks the runtime calls into.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, callbacks, or expected documents.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// TextFallbacks answers every unmatched update with a fixed text.
type TextFallbacks struct {
	Text     string
	Document string
	Callback string
}

func (f TextFallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error { return c.Send(f.Text) }
}

func (f TextFallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error { return c.Send(f.Document) }
}

func (f TextFallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: f.Callback})
	}
}
