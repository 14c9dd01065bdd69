package bot

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/m3rciful/potluckbot/core/logger"
	tg "github.com/m3rciful/potluckbot/core/telegram"
	"github.com/m3rciful/potluckbot/core/telegram/callbacks"
	"github.com/m3rciful/potluckbot/core/telegram/commands"
	"github.com/m3rciful/potluckbot/core/telegram/format"
	tghelpers "github.com/m3rciful/potluckbot/core/telegram/helpers"
	"github.com/m3rciful/potluckbot/core/telegram/keyboard"
	"github.com/m3rciful/potluckbot/core/telegram/state"
	"github.com/m3rciful/potluckbot/core/telegram/ui"
	"github.com/m3rciful/potluckbot/potluck/dialogue"
	"github.com/m3rciful/potluckbot/potluck/intent"

	tele "gopkg.in/telebot.v4"
)

// callbackKinds lists every button the bot emits.
var callbackKinds = []intent.Kind{
	intent.KindRSVP, intent.KindDetails, intent.KindCalendar,
	intent.KindStatus, intent.KindMax, intent.KindFood, intent.KindGuests,
	intent.KindCategory, intent.KindAllergen, intent.KindSkip,
	intent.KindEdit, intent.KindGuestsOn, intent.KindGuestsOff, intent.KindCancelEvent,
}

// Register adds the bot's commands and callbacks to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: b.onStart, Description: "Start the bot or open an invite link"}},
		{"/create", commands.Command{Handler: b.onCreate, Description: "Plan a new potluck", Aliases: []string{"new"}}},
		{"/myevents", commands.Command{Handler: b.onMyEvents, Description: "List and manage your events", Aliases: []string{"events"}}},
		{"/skip", commands.Command{Handler: b.onSkip, Description: "Skip an optional question"}},
		{"/cancel", commands.Command{Handler: b.onCancel, Description: "Abandon the current dialogue"}},
		{"/sweep", commands.Command{Handler: b.onSweep, Description: "Complete past events now", AdminOnly: true, Hidden: true}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}

	for _, k := range callbackKinds {
		if err := reg.RegisterCallback(k.Prefix(), b.onCallback); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	return nil
}

func identity(c tele.Context) dialogue.Identity {
	var who dialogue.Identity
	if u := c.Sender(); u != nil {
		who.UserID = u.ID
		who.Username = u.Username
		who.DisplayName = tghelpers.DisplayName(u)
	}
	if ch := c.Chat(); ch != nil {
		who.ChatID = ch.ID
	}
	return who
}

func keyOf(c tele.Context) state.Key {
	who := identity(c)
	return state.Key{ChatID: who.ChatID, UserID: who.UserID}
}

func markup(rows [][]dialogue.Button) *tele.ReplyMarkup {
	kb := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, len(row))
		for i, btn := range row {
			r[i] = keyboard.InlineBtn{Text: btn.Label, Data: btn.Data, URL: btn.URL, SwitchInline: btn.SwitchInline}
		}
		kb = append(kb, r)
	}
	return keyboard.InlineButtonsRows(kb...)
}

// deliver sends resp through c.
func (b *Bot) deliver(c tele.Context, resp Response) error {
	ctx := tghelpers.BuildContext(c)
	if c.Callback() != nil {
		var cr *tele.CallbackResponse
		switch {
		case resp.URL != "":
			cr = &tele.CallbackResponse{URL: resp.URL}
		case resp.Ack != "":
			cr = &tele.CallbackResponse{Text: resp.Ack, ShowAlert: resp.Alert}
		}
		if cr != nil {
			if err := tghelpers.Respond(c, cr); err != nil {
				logger.Warn(ctx, "tg", "callback.respond_failed", logger.Err(err))
			}
		}
	}
	if resp.Edit != nil {
		if err := tghelpers.EditOrSendMDV2(c, resp.Edit.Text, markup(resp.Edit.Buttons)); err != nil {
			return err
		}
	}
	for _, r := range resp.Replies {
		if err := tghelpers.SendMDV2(c, r.Text, markup(r.Buttons)); err != nil {
			return err
		}
	}
	if d := resp.Document; d != nil {
		if err := tghelpers.SendDocument(c, bytes.NewReader(d.Body), d.Name, d.MIME, d.Caption); err != nil {
			return err
		}
	}
	return nil
}

// reply delivers resp, or a generic failure notice when err is set. The
// error is still returned so the handler summary records it.
func (b *Bot) reply(c tele.Context, resp Response, err error) error {
	if err != nil {
		ctx := tghelpers.BuildContext(c)
		logger.Error(ctx, "tg", "handler.store_failure", logger.Err(err))
		if c.Callback() != nil {
			_ = tghelpers.Respond(c, &tele.CallbackResponse{Text: msgFailure, ShowAlert: true})
			return err
		}
		_ = tghelpers.SendMDV2(c, format.Escape(msgFailure))
		return err
	}
	return b.deliver(c, resp)
}

func (b *Bot) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	var payload string
	if m := c.Message(); m != nil {
		payload = m.Payload
	}
	resp, err := b.Start(ctx, keyOf(c), identity(c), payload)
	return b.reply(c, resp, err)
}

func (b *Bot) onCreate(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	resp, err := b.Create(ctx, keyOf(c), identity(c))
	return b.reply(c, resp, err)
}

func (b *Bot) onMyEvents(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	resp, err := b.MyEvents(ctx, identity(c))
	return b.reply(c, resp, err)
}

func (b *Bot) onSkip(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	resp, handled, err := b.Input(ctx, keyOf(c), dialogue.Input{Text: "/skip"})
	if err == nil && !handled {
		resp.say(format.Escape(msgNothingToEnd))
	}
	return b.reply(c, resp, err)
}

func (b *Bot) onCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return b.deliver(c, b.Cancel(ctx, keyOf(c)))
}

func (b *Bot) onSweep(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	resp, err := b.Sweep(ctx)
	return b.reply(c, resp, err)
}

func (b *Bot) onCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	data := callbacks.Data(c.Callback())
	resp, err := b.Callback(ctx, keyOf(c), identity(c), data)
	return b.reply(c, resp, err)
}

// Handle feeds a text or location message to the waiting dialogue.
func (b *Bot) Handle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	var in dialogue.Input
	if m := c.Message(); m != nil && m.Location != nil {
		in.Location = &dialogue.GeoPoint{Lat: float64(m.Location.Lat), Lon: float64(m.Location.Lng)}
	} else {
		in.Text = c.Text()
	}
	resp, handled, err := b.Input(ctx, keyOf(c), in)
	if err == nil && !handled {
		return b.UnknownText()(c)
	}
	return b.reply(c, resp, err)
}

// ConversationRouter adapts the bot to the message router.
func (b *Bot) ConversationRouter() *Conversations {
	return &Conversations{bot: b}
}

// Conversations exposes the bot's dialogues to router.TextRoutes.
type Conversations struct{ bot *Bot }

// Active reports whether the sender has a dialogue in this chat.
func (cv *Conversations) Active(c tele.Context) bool {
	return cv.bot.Active(keyOf(c))
}

// Handle forwards the message to the dialogue.
func (cv *Conversations) Handle(c tele.Context) error {
	return cv.bot.Handle(c)
}

// OnInlineQuery answers with the sender's event cards.
func (b *Bot) OnInlineQuery(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	var query string
	if q := c.Query(); q != nil {
		query = q.Text
	}
	cards, err := b.InlineCards(ctx, identity(c), query)
	if err != nil {
		return err
	}
	results := make(tele.Results, 0, len(cards))
	for _, card := range cards {
		results = append(results, ui.MarkdownArticle(card.ID, card.Title, card.Description, card.Text, markup(card.Buttons)))
	}
	logger.Debug(ctx, "tg", "inline.answer", slog.Int("results", len(results)))
	return c.Answer(&tele.QueryResponse{Results: results, CacheTime: 1, IsPersonal: true})
}

// UnknownText replies to messages outside any dialogue.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendMDV2(c, format.Escape("I didn't get that. Use /create to plan a potluck or /myevents to see yours."))
	}
}

// UnknownDocument replies to files the bot does not expect.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendMDV2(c, format.Escape("I can't do anything with files, sorry."))
	}
}

// UnknownCallback answers buttons nobody handles.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.Respond(c, &tele.CallbackResponse{Text: msgUnsupported})
	}
}

// OnStart is a runtime hook that learns the bot's username for deep links.
func (b *Bot) OnStart(_ context.Context, rt tg.Runtime) error {
	if rt.Bot != nil {
		b.SetUsername(rt.Bot.Me.Username)
		logger.TWire.Info("bot identity",
			slog.String("event", "tg.identity"),
			slog.String("username", b.Username()),
		)
	}
	return nil
}
