package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/potluckbot/core/logger"
	"github.com/m3rciful/potluckbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands and callbacks. Commands keep their
// registration order, which is also the order of the command menu.
type Registry struct {
	commands         map[string]commands.Command
	order            []string
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbacksMu      sync.RWMutex
	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
			return nil
		},
	}
}

// RegisterCommand adds a command and its aliases. Names must start with a
// slash; aliases may omit it.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if r == nil || cmd.Handler == nil || cmd.Description == "" {
		return r.rejectCommand(name, "invalid")
	}
	if name == "" || name[0] != '/' {
		return r.rejectCommand(name, "no_slash_prefix")
	}
	key := commands.Normalize(name)
	if r.taken(key) {
		return r.rejectCommand(name, "duplicate")
	}
	for _, alias := range cmd.Aliases {
		if a := commands.Normalize(alias); a == "" || a == key || r.taken(a) {
			return r.rejectCommand(alias, "alias_conflict")
		}
	}

	r.commands[key] = cmd
	r.order = append(r.order, key)
	for _, alias := range cmd.Aliases {
		r.aliases[commands.Normalize(alias)] = key
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	if _, ok := r.commands[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}

func (r *Registry) rejectCommand(name, reason string) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
		slog.String("name", name),
		slog.String("reason", reason),
	)
	return fmt.Errorf("command %q rejected: %s", name, reason)
}

// ListCommands returns the commands in registration order, optionally
// leaving out hidden and admin-only ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.order))
	for _, key := range r.order {
		meta := r.commands[key]
		if visibleOnly && !meta.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: key[1:], Description: meta.Description})
	}
	return list
}

// LookupCommand resolves text such as "/create@bot args" or a bare alias to
// the canonical command key. Plain text only matches as a single word.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") && strings.ContainsAny(text, " \n\t") {
		return "", commands.Command{}, false
	}
	key := commands.Normalize(text)
	if key == "" {
		return "", commands.Command{}, false
	}
	if target, ok := r.aliases[key]; ok {
		key = target
	}
	cmd, ok := r.commands[key]
	if !ok {
		return "", commands.Command{}, false
	}
	return key, cmd, true
}

// Each calls fn for every command in registration order.
func (r *Registry) Each(fn func(key string, cmd commands.Command)) {
	for _, key := range r.order {
		fn(key, r.commands[key])
	}
}

// Len returns the number of registered commands.
func (r *Registry) Len() int { return len(r.order) }

// RegisterCallback adds a callback handler mapped to its key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback safely returns handler by key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted keys (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// publishCommands sets the command menu. Failures are logged, not returned.
func publishCommands(ctx context.Context, bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(ctx, slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(ctx, slog.LevelInfo, "register.commands.published",
		slog.Int("visible", len(list)),
		slog.Int("total", reg.Len()),
	)
}
