package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-queue/internal/model"
	"task-queue/internal/service"
	"task-queue/internal/tree"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	// Any command abandons a pending /remove prompt.
	b.clearConfirmation(msg.From.ID)

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "addgroup":
		return b.handleAddGroup(ctx, msg)
	case "addtask":
		if strings.TrimSpace(msg.CommandArguments()) == "" {
			return b.startNewTaskConversation(msg)
		}
		return b.handleAddTask(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(msg)
	case "remove":
		return b.handleRemove(msg)
	case "rename":
		return b.handleRename(ctx, msg)
	case "move":
		return b.handleMove(ctx, msg)
	case "sort":
		return b.handleSort(ctx, msg)
	case "search":
		return b.handleSearch(msg)
	case "status":
		return b.handleStatus(ctx, msg)
	case "list":
		return b.handleList(msg)
	case "clearcompleted":
		return b.handleClearCompleted(ctx, msg)
	case "setreminderhours":
		return b.handleSetReminderHours(ctx, msg)
	case "reminder":
		return b.handleReminder(ctx, msg)
	case "backup":
		return b.handleBackup(msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"Paths use <code>/</code> between names, arguments are separated by <code>|</code>.\n" +
	"• /addgroup &lt;name&gt; [| parent] — create a group\n" +
	"• /addtask &lt;group&gt; | &lt;name&gt; [| deadline] [| description] [| reminder hours]\n" +
	"• /newtask — add a task step by step\n" +
	"• /remove &lt;path&gt; — delete a group (with everything inside) or a task\n" +
	"• /rename &lt;path&gt; | &lt;new name&gt;\n" +
	"• /move &lt;path&gt; | &lt;group&gt; — empty group moves a group to the top level\n" +
	"• /sort &lt;group&gt; | name|deadline|status\n" +
	"• /search &lt;keyword&gt;\n" +
	"• /status &lt;task path&gt; | pending|done\n" +
	"• /list [name|deadline] [| all|pending|done]\n" +
	"• /clearcompleted — remove all done tasks\n" +
	"• /setreminderhours &lt;hours&gt; — default reminder window\n" +
	"• /reminder &lt;path&gt; | &lt;hours|off&gt; — per group or task window\n" +
	"• /backup — send data.json now\n" +
	"• /cancel — stop the current input"

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your groups and tasks and remind you before deadlines.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) handleAddGroup(ctx context.Context, msg *tgbotapi.Message) error {
	args := splitArgs(msg.CommandArguments())
	name := argAt(args, 0)
	if name == "" {
		return b.sendText(msg.Chat.ID, "Usage: /addgroup &lt;name&gt; [| parent]")
	}
	parent := tree.SplitPath(argAt(args, 1))
	if _, err := b.planner.AddGroup(ctx, parent, name); err != nil {
		return b.replyError(msg.Chat.ID, "Could not add group", err)
	}
	where := "top level"
	if len(parent) > 0 {
		where = tree.JoinPath(parent)
	}
	b.logActivity(msg, "added group %q to %q", name, where)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Group <b>%s</b> added to %s.", escape(name), escape(where)))
}

func (b *Bot) handleAddTask(ctx context.Context, msg *tgbotapi.Message) error {
	args := splitArgs(msg.CommandArguments())
	group := tree.SplitPath(argAt(args, 0))
	input := service.TaskInput{
		Name:        argAt(args, 1),
		Description: argAt(args, 3),
	}
	if len(group) == 0 || input.Name == "" {
		return b.sendText(msg.Chat.ID, "Usage: /addtask &lt;group&gt; | &lt;name&gt; [| deadline] [| description] [| reminder hours]")
	}
	deadline, err := parseDeadline(argAt(args, 2), b.loc)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Could not read the deadline. Try <code>2025-12-31 18:00</code>.")
	}
	input.Deadline = deadline
	if raw := argAt(args, 4); raw != "" {
		hours, err := parseHours(raw)
		if err != nil {
			return b.sendText(msg.Chat.ID, escape(err.Error()))
		}
		input.ReminderHours = &hours
	}
	return b.finishTaskCreation(ctx, msg, group, input)
}

func (b *Bot) startNewTaskConversation(msg *tgbotapi.Message) error {
	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageGroup})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> which group? Send its path, e.g. <code>work/Projects</code>.", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageGroup:
		group := tree.SplitPath(text)
		if len(group) == 0 {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Send a group path, e.g. <code>work/Projects</code>.", cancelKeyboard())
		}
		if _, err := b.planner.Store().Group(group); err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Group not found. Send an existing group path.", cancelKeyboard())
		}
		state.group = group
		state.stage = stageName
		return b.sendWithReplyMarkup(msg.Chat.ID, "<b>Step 2:</b> task name?", cancelKeyboard())
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The name must not be empty.", cancelKeyboard())
		}
		state.input.Name = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Short description (or Skip).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageDeadline
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Deadline, e.g. <code>2025-12-31 18:00</code> (or Skip).", skipKeyboard())
	case stageDeadline:
		if !isSkipInput(text) {
			deadline, err := parseDeadline(text, b.loc)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Could not read the date. Use <code>2025-12-31 18:00</code> or Skip.", skipKeyboard())
			}
			state.input.Deadline = deadline
			state.stage = stageReminderHours
			return b.sendWithReplyMarkup(msg.Chat.ID, "🔔 Remind how many hours before? (Skip to inherit)", skipKeyboard())
		}
		err := b.finishTaskCreation(ctx, msg, state.group, state.input)
		b.clearConversation(msg.From.ID)
		return err
	case stageReminderHours:
		if !isSkipInput(text) {
			hours, err := parseHours(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Send a whole number of hours or Skip.", skipKeyboard())
			}
			state.input.ReminderHours = &hours
		}
		err := b.finishTaskCreation(ctx, msg, state.group, state.input)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try again with /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, msg *tgbotapi.Message, group []string, input service.TaskInput) error {
	task, err := b.planner.AddTask(ctx, group, input)
	if err != nil {
		return b.replyError(msg.Chat.ID, "Could not add task", err)
	}
	path := append(group[:len(group):len(group)], task.Name)
	log.Printf("[info] task created path=%q", tree.JoinPath(path))
	b.logActivity(msg, "added task %q", tree.JoinPath(path))

	text := "✅ <b>Task saved</b>\n" + formatTaskSummary(path, task, b.loc)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleRemove(msg *tgbotapi.Message) error {
	path := tree.SplitPath(msg.CommandArguments())
	if len(path) == 0 {
		return b.sendText(msg.Chat.ID, "Usage: /remove &lt;path&gt;")
	}
	store := b.planner.Store()
	kind, fingerprint, err := store.Fingerprint(path)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Nothing found at %s.", escape(tree.JoinPath(path))))
	}
	what := fmt.Sprintf("task <b>%s</b>", escape(tree.JoinPath(path)))
	if kind == tree.KindGroup {
		g, err := store.Group(path)
		if err != nil {
			return b.replyError(msg.Chat.ID, "Could not remove", err)
		}
		what = fmt.Sprintf("group <b>%s</b> with %d subgroups and %d tasks", escape(tree.JoinPath(path)), len(g.Groups), len(g.Tasks))
	}
	b.clearConversation(msg.From.ID)
	b.setConfirmation(msg.From.ID, confirmationRequest{path: path, kind: kind, fingerprint: fingerprint})
	return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Delete %s?", what), confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if err := b.planner.RemoveIfUnchanged(ctx, req.path, req.kind, req.fingerprint); err != nil {
			if errors.Is(err, tree.ErrStale) || errors.Is(err, tree.ErrNotFound) {
				return b.sendText(msg.Chat.ID, fmt.Sprintf("%s changed since you asked, nothing was removed. Send /remove again.", escape(tree.JoinPath(req.path))))
			}
			return b.replyError(msg.Chat.ID, "Could not remove", err)
		}
		b.logActivity(msg, "removed %s %q", req.kind, tree.JoinPath(req.path))
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Removed %s <b>%s</b>.", req.kind, escape(tree.JoinPath(req.path))))
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Kept as is.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Press Confirm or Cancel.", confirmKeyboard())
	}
}

func (b *Bot) handleRename(ctx context.Context, msg *tgbotapi.Message) error {
	args := splitArgs(msg.CommandArguments())
	path := tree.SplitPath(argAt(args, 0))
	newName := argAt(args, 1)
	if len(path) == 0 || newName == "" {
		return b.sendText(msg.Chat.ID, "Usage: /rename &lt;path&gt; | &lt;new name&gt;")
	}
	kind, err := b.planner.Rename(ctx, path, newName)
	if err != nil {
		return b.replyError(msg.Chat.ID, "Could not rename", err)
	}
	b.logActivity(msg, "renamed %s %q to %q", kind, tree.JoinPath(path), newName)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✏️ Renamed %s <b>%s</b> to <b>%s</b>.", kind, escape(tree.JoinPath(path)), escape(newName)))
}

func (b *Bot) handleMove(ctx context.Context, msg *tgbotapi.Message) error {
	args := splitArgs(msg.CommandArguments())
	from := tree.SplitPath(argAt(args, 0))
	to := tree.SplitPath(argAt(args, 1))
	if len(from) == 0 {
		return b.sendText(msg.Chat.ID, "Usage: /move &lt;path&gt; | &lt;group or empty for top level&gt;")
	}
	kind, err := b.planner.Move(ctx, from, to)
	if err != nil {
		return b.replyError(msg.Chat.ID, "Could not move", err)
	}
	dest := "top level"
	if len(to) > 0 {
		dest = tree.JoinPath(to)
	}
	b.logActivity(msg, "moved %s %q to %q", kind, tree.JoinPath(from), dest)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📦 Moved %s <b>%s</b> to %s.", kind, escape(tree.JoinPath(from)), escape(dest)))
}

func (b *Bot) handleSort(ctx context.Context, msg *tgbotapi.Message) error {
	args := splitArgs(msg.CommandArguments())
	group := tree.SplitPath(argAt(args, 0))
	if len(group) == 0 || argAt(args, 1) == "" {
		return b.sendText(msg.Chat.ID, "Usage: /sort &lt;group&gt; | name|deadline|status")
	}
	key, err := model.ParseSortKey(strings.ToLower(argAt(args, 1)))
	if err != nil {
		return b.replyError(msg.Chat.ID, "Could not sort", err)
	}
	if err := b.planner.Sort(ctx, group, key); err != nil {
		return b.replyError(msg.Chat.ID, "Could not sort", err)
	}
	b.logActivity(msg, "sorted %q by %s", tree.JoinPath(group), key)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔃 Tasks in <b>%s</b> sorted by %s.", escape(tree.JoinPath(group)), key))
}

func (b *Bot) handleSearch(msg *tgbotapi.Message) error {
	keyword := strings.TrimSpace(msg.CommandArguments())
	if keyword == "" {
		return b.sendText(msg.Chat.ID, "Usage: /search &lt;keyword&gt;")
	}
	matches := b.planner.Search(keyword)
	b.logActivity(msg, "searched %q (%d matches)", keyword, len(matches))
	if len(matches) == 0 {
		return b.sendText(msg.Chat.ID, "No matches found.")
	}
	return b.sendLong(msg.Chat.ID, "", renderSearch(matches), "search_results.txt")
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) error {
	args := splitArgs(msg.CommandArguments())
	path := tree.SplitPath(argAt(args, 0))
	if len(path) == 0 || argAt(args, 1) == "" {
		return b.sendText(msg.Chat.ID, "Usage: /status &lt;task path&gt; | pending|done")
	}
	raw := strings.ToLower(argAt(args, 1))
	if raw == "completed" {
		raw = string(model.StatusDone)
	}
	status, err := model.ParseStatus(raw)
	if err != nil {
		return b.replyError(msg.Chat.ID, "Could not update status", err)
	}
	if _, err := b.planner.SetStatus(ctx, path, status); err != nil {
		return b.replyError(msg.Chat.ID, "Could not update status", err)
	}
	b.logActivity(msg, "set %q to %s", tree.JoinPath(path), status)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("☑️ <b>%s</b> is now %s.", escape(tree.JoinPath(path)), status))
}

func (b *Bot) handleList(msg *tgbotapi.Message) error {
	opts, err := parseListOptions(splitArgs(msg.CommandArguments()))
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	b.logActivity(msg, "listed groups/tasks")
	return b.sendLong(msg.Chat.ID, "", renderList(b.planner.Store().Snapshot(), opts), "list.txt")
}

func (b *Bot) handleClearCompleted(ctx context.Context, msg *tgbotapi.Message) error {
	removed, err := b.planner.ClearCompleted(ctx)
	if err != nil {
		return b.replyError(msg.Chat.ID, "Could not clear completed tasks", err)
	}
	b.logActivity(msg, "cleared %d completed tasks", removed)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🧹 Removed %d completed tasks.", removed))
}

func (b *Bot) handleSetReminderHours(ctx context.Context, msg *tgbotapi.Message) error {
	raw := strings.TrimSpace(msg.CommandArguments())
	if raw == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Default reminder window is %dh. Usage: /setreminderhours &lt;hours&gt;", b.planner.Store().GlobalReminderHours()))
	}
	hours, err := parseHours(raw)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	if err := b.planner.SetGlobalReminderHours(ctx, hours); err != nil {
		return b.replyError(msg.Chat.ID, "Could not set reminder hours", err)
	}
	b.logActivity(msg, "set default reminder hours to %d", hours)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 Reminders now fire %d hours before deadlines.", hours))
}

func (b *Bot) handleReminder(ctx context.Context, msg *tgbotapi.Message) error {
	args := splitArgs(msg.CommandArguments())
	path := tree.SplitPath(argAt(args, 0))
	if len(path) == 0 {
		return b.sendText(msg.Chat.ID, "Usage: /reminder &lt;path&gt; | &lt;hours|off&gt;")
	}
	hours, err := parseReminderOverride(argAt(args, 1))
	if err != nil {
		if errors.Is(err, errMissingArgs) {
			return b.sendText(msg.Chat.ID, "Usage: /reminder &lt;path&gt; | &lt;hours|off&gt;")
		}
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	kind, err := b.planner.SetReminderHours(ctx, path, hours)
	if err != nil {
		return b.replyError(msg.Chat.ID, "Could not set reminder", err)
	}
	if hours == nil {
		b.logActivity(msg, "cleared reminder override on %s %q", kind, tree.JoinPath(path))
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🔕 %s <b>%s</b> now inherits its reminder window.", kind, escape(tree.JoinPath(path))))
	}
	b.logActivity(msg, "set reminder on %s %q to %d", kind, tree.JoinPath(path), *hours)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 %s <b>%s</b> reminds %d hours before.", kind, escape(tree.JoinPath(path)), *hours))
}

func (b *Bot) handleBackup(msg *tgbotapi.Message) error {
	if err := b.sendBackupTo(msg.Chat.ID, "Manual backup"); err != nil {
		return b.replyError(msg.Chat.ID, "Backup failed", err)
	}
	b.logActivity(msg, "requested a backup")
	return nil
}

func (b *Bot) replyError(chatID int64, action string, err error) error {
	log.Printf("%s: %v", strings.ToLower(action), err)
	return b.sendText(chatID, fmt.Sprintf("%s: %s", action, escape(userMessage(err))))
}

// userMessage turns a tree or persistence error into a short reply.
func userMessage(err error) string {
	switch {
	case errors.Is(err, tree.ErrNotFound):
		return "not found (" + err.Error() + ")"
	case errors.Is(err, tree.ErrDuplicate):
		return "a sibling with that name already exists"
	case errors.Is(err, tree.ErrValidation):
		return "the path has an empty segment"
	default:
		return err.Error()
	}
}
