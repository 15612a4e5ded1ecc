package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/cookalong/pkg/control"
	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/messages"
	"github.com/korjavin/cookalong/pkg/models"
)

// Sender is the part of Bot the command handlers talk through
type Sender interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallbackQuery(callbackID string, text string) error
}

// PreviewSource looks schedule previews up by id
type PreviewSource interface {
	Get(previewID string) (models.SchedulePreview, error)
}

// Handlers exposes session control as chat commands. Each chat remembers the
// last session it touched, so the session id argument is optional.
type Handlers struct {
	sender   Sender
	sessions *control.Service
	previews PreviewSource
	logger   *logger.Logger

	mu       sync.Mutex
	current  map[int64]string
	watchers map[int64]context.CancelFunc
	wg       sync.WaitGroup
}

// NewHandlers creates chat handlers over the session control service
func NewHandlers(sender Sender, sessions *control.Service, previews PreviewSource) *Handlers {
	return &Handlers{
		sender:   sender,
		sessions: sessions,
		previews: previews,
		logger:   logger.New("telegram"),
		current:  make(map[int64]string),
		watchers: make(map[int64]context.CancelFunc),
	}
}

// Commands returns the command table for Bot.Start
func (h *Handlers) Commands() map[string]CommandHandler {
	return map[string]CommandHandler{
		"start":  h.help,
		"help":   h.help,
		"cook":   h.cook,
		"state":  h.state,
		"go":     h.transition(h.sessions.Start),
		"pause":  h.transition(h.sessions.Pause),
		"resume": h.transition(h.sessions.Resume),
		"end":    h.transition(h.sessions.End),
		"skip":   h.skip,
		"watch":  h.watch,
	}
}

// Callbacks returns the inline keyboard callback table for Bot.Start
func (h *Handlers) Callbacks() map[string]CallbackHandler {
	return map[string]CallbackHandler{
		"go:":     h.callback(h.sessions.Start),
		"pause:":  h.callback(h.sessions.Pause),
		"resume:": h.callback(h.sessions.Resume),
		"end:":    h.callback(h.sessions.End),
		"skip:": func(cb *tgbotapi.CallbackQuery) {
			id := strings.TrimPrefix(cb.Data, "skip:")
			snap, err := h.sessions.Skip(id)
			if err != nil {
				h.answer(cb, messages.Error(err))
				return
			}
			h.answer(cb, "Skipped")
			h.reply(cb.Message.Chat.ID, messages.Tick(snap), id, snap.Session.Status)
		},
	}
}

// Close stops every /watch stream and waits for them to finish
func (h *Handlers) Close() {
	h.mu.Lock()
	for chatID, cancel := range h.watchers {
		cancel()
		delete(h.watchers, chatID)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Handlers) help(message *tgbotapi.Message) {
	h.send(message.Chat.ID, "👋 I keep time while you cook several recipes at once.\n\n"+
		"/cook <previewId> create a session from a schedule preview\n"+
		"/go start the clock\n"+
		"/pause and /resume\n"+
		"/skip jump to the next hands-on step\n"+
		"/state show what's happening\n"+
		"/watch get a message whenever the step changes\n"+
		"/end finish cooking")
}

func (h *Handlers) cook(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	previewID := strings.TrimSpace(message.CommandArguments())
	if previewID == "" {
		h.send(chatID, "Usage: /cook <previewId>")
		return
	}

	preview, err := h.previews.Get(previewID)
	if err != nil {
		h.logger.Warn("Preview %s not available for chat %d: %v", previewID, chatID, err)
		h.send(chatID, "⚠️ Schedule preview not found")
		return
	}

	session, err := h.sessions.CreateSession(preview.Schedule)
	if err != nil {
		h.logger.Error("Failed to create session from preview %s: %v", previewID, err)
		h.send(chatID, messages.Error(err))
		return
	}

	h.remember(chatID, session.ID)
	h.reply(chatID, messages.SessionCreated(session), session.ID, session.Status)
}

func (h *Handlers) state(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	id, ok := h.sessionID(message)
	if !ok {
		return
	}

	snap, err := h.sessions.State(id)
	if err != nil {
		h.send(chatID, messages.Error(err))
		return
	}
	h.reply(chatID, messages.Tick(snap), id, snap.Session.Status)
}

func (h *Handlers) transition(op func(string) (models.SessionStatus, error)) CommandHandler {
	return func(message *tgbotapi.Message) {
		chatID := message.Chat.ID
		id, ok := h.sessionID(message)
		if !ok {
			return
		}

		status, err := op(id)
		if err != nil {
			h.send(chatID, messages.Error(err))
			return
		}
		h.reply(chatID, messages.Status(id, status), id, status)
	}
}

func (h *Handlers) skip(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	id, ok := h.sessionID(message)
	if !ok {
		return
	}

	snap, err := h.sessions.Skip(id)
	if err != nil {
		h.send(chatID, messages.Error(err))
		return
	}
	h.reply(chatID, messages.Tick(snap), id, snap.Session.Status)
}

func (h *Handlers) watch(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	id, ok := h.sessionID(message)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := h.sessions.Subscribe(ctx, id)
	if err != nil {
		cancel()
		h.send(chatID, messages.Error(err))
		return
	}

	h.mu.Lock()
	if previous, ok := h.watchers[chatID]; ok {
		previous()
	}
	h.watchers[chatID] = cancel
	h.mu.Unlock()

	h.send(chatID, "👀 Watching session "+id+". I'll ping you at every new step.")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		h.pushStepChanges(chatID, events)
	}()
}

// pushStepChanges sends a message whenever the foreground step changes
func (h *Handlers) pushStepChanges(chatID int64, events <-chan control.Event) {
	lastStep := "-"
	for ev := range events {
		if ev.Type == control.EventEnd {
			h.send(chatID, messages.Status("", models.StatusEnded))
			return
		}

		step := ""
		if fg := ev.State.Current.Foreground; fg != nil {
			step = fg.ID
		}
		if step == lastStep {
			continue
		}
		lastStep = step
		h.send(chatID, messages.StepChanged(*ev.State))
	}
}

func (h *Handlers) callback(op func(string) (models.SessionStatus, error)) CallbackHandler {
	return func(cb *tgbotapi.CallbackQuery) {
		_, id, _ := strings.Cut(cb.Data, ":")
		status, err := op(id)
		if err != nil {
			h.answer(cb, messages.Error(err))
			return
		}
		h.answer(cb, string(status))
		h.reply(cb.Message.Chat.ID, messages.Status(id, status), id, status)
	}
}

// sessionID returns the session named in the command or the chat's current one
func (h *Handlers) sessionID(message *tgbotapi.Message) (string, bool) {
	if id := strings.TrimSpace(message.CommandArguments()); id != "" {
		h.remember(message.Chat.ID, id)
		return id, true
	}

	h.mu.Lock()
	id, ok := h.current[message.Chat.ID]
	h.mu.Unlock()
	if !ok {
		h.send(message.Chat.ID, "No session yet. Create one with /cook <previewId>.")
	}
	return id, ok
}

func (h *Handlers) remember(chatID int64, sessionID string) {
	h.mu.Lock()
	h.current[chatID] = sessionID
	h.mu.Unlock()
}

// reply sends text with the buttons that make sense for the session's status
func (h *Handlers) reply(chatID int64, text, sessionID string, status models.SessionStatus) {
	var row []tgbotapi.InlineKeyboardButton
	switch status {
	case models.StatusIdle:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️ Start", "go:"+sessionID))
	case models.StatusRunning:
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("⏸️ Pause", "pause:"+sessionID),
			tgbotapi.NewInlineKeyboardButtonData("⏭️ Skip", "skip:"+sessionID),
			tgbotapi.NewInlineKeyboardButtonData("🏁 End", "end:"+sessionID),
		)
	case models.StatusPaused:
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("▶️ Resume", "resume:"+sessionID),
			tgbotapi.NewInlineKeyboardButtonData("🏁 End", "end:"+sessionID),
		)
	}

	if len(row) == 0 {
		h.send(chatID, text)
		return
	}
	if _, err := h.sender.SendMessageWithKeyboard(chatID, text, tgbotapi.NewInlineKeyboardMarkup(row)); err != nil {
		h.logger.Error("Failed to send message to chat %d: %v", chatID, err)
	}
}

func (h *Handlers) send(chatID int64, text string) {
	if _, err := h.sender.SendMessage(chatID, text); err != nil {
		h.logger.Error("Failed to send message to chat %d: %v", chatID, err)
	}
}

func (h *Handlers) answer(cb *tgbotapi.CallbackQuery, text string) {
	if err := h.sender.AnswerCallbackQuery(cb.ID, text); err != nil {
		h.logger.Error("Failed to answer callback %s: %v", cb.ID, err)
	}
}
