package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "tg.counters"

// Counters tallies what a handler sent back for one update.
type Counters struct {
	Messages  int
	Edits     int
	Answers   int
	Documents int
	Keyboard  bool
}

// metricsContext wraps tele.Context to count outgoing calls.
type metricsContext struct {
	tele.Context
	n *Counters
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m metricsContext) sent(what any, opts []any, edit bool) {
	switch {
	case edit:
		m.n.Edits++
	default:
		if _, ok := what.(*tele.Document); ok {
			m.n.Documents++
		} else {
			m.n.Messages++
		}
	}
	if hasKeyboard(opts) {
		m.n.Keyboard = true
	}
}

// Send proxies tele.Context.Send while updating counters.
func (m metricsContext) Send(what any, opts ...any) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.sent(what, opts, false)
	}
	return err
}

// Reply proxies tele.Context.Reply while updating counters.
func (m metricsContext) Reply(what any, opts ...any) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.sent(what, opts, false)
	}
	return err
}

// Edit proxies tele.Context.Edit while updating counters.
func (m metricsContext) Edit(what any, opts ...any) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.sent(what, opts, true)
	}
	return err
}

// EditOrSend proxies tele.Context.EditOrSend. It counts as an edit when the
// update carries a callback message.
func (m metricsContext) EditOrSend(what any, opts ...any) error {
	err := m.Context.EditOrSend(what, opts...)
	if err == nil {
		m.sent(what, opts, m.Callback() != nil)
	}
	return err
}

// EditOrReply proxies tele.Context.EditOrReply while updating counters.
func (m metricsContext) EditOrReply(what any, opts ...any) error {
	err := m.Context.EditOrReply(what, opts...)
	if err == nil {
		m.sent(what, opts, m.Callback() != nil)
	}
	return err
}

// Respond proxies tele.Context.Respond and counts callback answers.
func (m metricsContext) Respond(resp ...*tele.CallbackResponse) error {
	err := m.Context.Respond(resp...)
	if err == nil {
		m.n.Answers++
	}
	return err
}

// Answer proxies tele.Context.Answer and counts inline answers.
func (m metricsContext) Answer(resp *tele.QueryResponse) error {
	err := m.Context.Answer(resp)
	if err == nil {
		m.n.Answers++
	}
	return err
}

// MessageMetricsMiddleware instruments the context so the handler summary
// can report what was sent.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &Counters{}
		c.Set(countersKey, n)
		return next(metricsContext{Context: c, n: n})
	}
}

// GetCounters returns the counters for the current update. Uninstrumented
// contexts report zeros.
func GetCounters(c tele.Context) Counters {
	if n, ok := c.Get(countersKey).(*Counters); ok && n != nil {
		return *n
	}
	return Counters{}
}
