package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/codeweld/mergebot/internal/builder"
	"github.com/codeweld/mergebot/internal/config"
	"github.com/codeweld/mergebot/internal/cooldown"
	"github.com/codeweld/mergebot/internal/delivery"
	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/monitoring"
	"github.com/codeweld/mergebot/internal/session"
	"github.com/codeweld/mergebot/internal/transport"
)

// Deps are the collaborators the workflow sequences.
type Deps struct {
	Config  *config.Config
	Store   *session.Store
	Gate    *cooldown.Gate
	Builder *builder.Builder
	Planner *delivery.Planner
	Sender  transport.Sender
	Fetcher transport.Fetcher
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Workflow is the per-user state machine. Every inbound event passes
// the inbound cooldown first; events for one user run under that
// user's store lock; every outbound message passes the outbound gate.
type Workflow struct {
	cfg     *config.Config
	store   *session.Store
	gate    *cooldown.Gate
	builder *builder.Builder
	planner *delivery.Planner
	sender  transport.Sender
	fetcher transport.Fetcher
	logger  *logging.Logger
	metrics *monitoring.Metrics

	now func() time.Time
}

// New creates a workflow.
func New(deps Deps) *Workflow {
	return &Workflow{
		cfg:     deps.Config,
		store:   deps.Store,
		gate:    deps.Gate,
		builder: deps.Builder,
		planner: deps.Planner,
		sender:  deps.Sender,
		fetcher: deps.Fetcher,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     time.Now,
	}
}

// HandleCommand processes a text command event.
func (w *Workflow) HandleCommand(ctx context.Context, cmd transport.Command) {
	defer w.recoverNotify(ctx, cmd.ChatID)

	if !w.gate.AdmitInbound(cmd.UserID, w.now()) {
		w.metrics.RecordDrop("command")
		return
	}
	w.metrics.RecordEvent("command")

	unlock := w.store.LockUser(cmd.UserID)
	defer unlock()

	switch cmd.Name {
	case "start", "help":
		w.sendText(ctx, cmd.ChatID, usageText(), menu())

	case "reset":
		w.store.Remove(cmd.UserID)
		w.metrics.SessionsActive.Set(float64(w.store.Len()))
		w.sendText(ctx, cmd.ChatID, "State cleared.", menu())

	case "remote":
		w.sendText(ctx, cmd.ChatID, remoteControlMessage, nil)

	case "merge":
		opts := ParseOptions(cmd.Text)
		sess := session.New()
		sess.BaseName = session.SanitizeBaseName(opts["base"])
		sess.Windowed = opts["windowed"] != "0"
		w.store.Replace(cmd.UserID, sess)
		w.metrics.SessionsActive.Set(float64(w.store.Len()))
		w.sendText(ctx, cmd.ChatID,
			"Ready. Please send two files (100 MB limit each).\n"+summary(sess), menu())
	}
}

// HandleButton processes an inline-button press. Button presses share
// the inbound cooldown table with messages; a throttled press gets an
// alert instead of a silent drop because the callback must be answered
// either way.
func (w *Workflow) HandleButton(ctx context.Context, press transport.ButtonPress) {
	defer w.recoverNotify(ctx, press.ChatID)

	if !w.gate.AdmitInbound(press.UserID, w.now()) {
		w.metrics.RecordDrop("button")
		if err := w.sender.AnswerButton(ctx, press.CallbackID,
			"You are pressing too fast. Wait a moment and try again.", true); err != nil {
			w.logger.Warn("callback answer failed", zap.Error(err))
		}
		return
	}
	w.metrics.RecordEvent("button")

	if err := w.sender.AnswerButton(ctx, press.CallbackID, "", false); err != nil {
		w.logger.Warn("callback answer failed", zap.Error(err))
	}

	unlock := w.store.LockUser(press.UserID)
	defer unlock()

	sess := w.store.GetOrCreate(press.UserID)
	w.metrics.SessionsActive.Set(float64(w.store.Len()))

	switch press.Action {
	case actionFilesPrompt:
		w.sendText(ctx, press.ChatID,
			"Please send two files to merge (.py, .txt and similar).", menu())

	case actionMergeNow:
		if !sess.Ready() {
			w.sendText(ctx, press.ChatID,
				"Not enough files to build. At least two are required.", menu())
			return
		}
		w.sendText(ctx, press.ChatID, "Starting the build…", nil)
		w.store.Remove(press.UserID)
		w.metrics.SessionsActive.Set(float64(w.store.Len()))
		w.buildAndDeliver(ctx, press.UserID, press.ChatID, sess)

	case actionIconChange:
		sess.AwaitingIcon = true
		w.sendText(ctx, press.ChatID,
			"Icon change mode is on. Please send the icon file (.ico/.icns/.png).", menu())

	case actionIconClear:
		sess.ClearIcon()
		w.sendText(ctx, press.ChatID, "Icon removed.", menu())

	case actionState:
		w.sendText(ctx, press.ChatID, summary(sess), menu())

	case actionReset:
		w.store.Remove(press.UserID)
		w.metrics.SessionsActive.Set(float64(w.store.Len()))
		w.sendText(ctx, press.ChatID, "State cleared. Please start over: /merge", menu())

	default:
		w.sendText(ctx, press.ChatID, "Unknown action.", menu())
	}
}

// HandleDocument processes a file upload.
func (w *Workflow) HandleDocument(ctx context.Context, doc transport.Document) {
	defer w.recoverNotify(ctx, doc.ChatID)

	if !w.gate.AdmitInbound(doc.UserID, w.now()) {
		w.metrics.RecordDrop("document")
		return
	}
	w.metrics.RecordEvent("document")

	unlock := w.store.LockUser(doc.UserID)
	defer unlock()

	// Pre-flight checks run on the declared size, before any fetch.
	if doc.FileSize > w.cfg.Limits.UserDownloadLimit {
		w.metrics.RecordUploadRejected("user_limit")
		mb := float64(doc.FileSize) / (1024 * 1024)
		w.sendText(ctx, doc.ChatID, fmt.Sprintf(
			"The file you sent is too large (%.1f MB). Your per-file limit is 100 MB.", mb), nil)
		return
	}
	if doc.FileSize > w.cfg.Limits.FetchCeiling {
		w.metrics.RecordUploadRejected("fetch_ceiling")
		w.sendText(ctx, doc.ChatID,
			"The file is over ≈20 MB. Telegram does not let bots download such files through the API. "+
				"Even with a 100 MB limit this restriction cannot be bypassed.", nil)
		return
	}

	w.sendText(ctx, doc.ChatID, fmt.Sprintf("Receiving %q…", doc.FileName), nil)

	data, err := w.fetcher.FetchDocument(ctx, doc.FileID)
	if err != nil {
		w.metrics.FetchErrors.Inc()
		w.logger.WithUser(doc.UserID).Warn("document fetch failed",
			zap.String("file", doc.FileName), zap.Error(err))
		w.sendText(ctx, doc.ChatID,
			fmt.Sprintf("Could not download %q: %v", doc.FileName, err), nil)
		return
	}
	if int64(len(data)) > w.cfg.Limits.UserDownloadLimit {
		w.metrics.RecordUploadRejected("user_limit")
		w.sendText(ctx, doc.ChatID,
			"The downloaded file exceeds the 100 MB limit. Please send a smaller one.", nil)
		return
	}

	sess := w.store.GetOrCreate(doc.UserID)
	w.metrics.SessionsActive.Set(float64(w.store.Len()))

	kind := sess.AddFile(doc.FileName, data)
	if kind == session.KindIcon {
		w.sendText(ctx, doc.ChatID, fmt.Sprintf("Icon updated: %s.", doc.FileName), nil)
		return
	}

	w.sendText(ctx, doc.ChatID, fmt.Sprintf(
		"File accepted: %s. Files so far: %d.", doc.FileName, len(sess.Files)), nil)

	if sess.Ready() {
		w.store.Remove(doc.UserID)
		w.metrics.SessionsActive.Set(float64(w.store.Len()))
		w.buildAndDeliver(ctx, doc.UserID, doc.ChatID, sess)
	}
}

// sendText delivers a text reply through the outbound gate.
func (w *Workflow) sendText(ctx context.Context, chatID int64, text string, buttons [][]transport.Button) {
	err := w.gate.Send(ctx, func() error {
		return w.sender.SendText(ctx, chatID, text, buttons)
	})
	if err != nil {
		w.metrics.SendErrors.Inc()
		w.logger.Warn("send text failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendFile delivers a document from disk through the outbound gate.
func (w *Workflow) sendFile(ctx context.Context, chatID int64, path, caption string) error {
	err := w.gate.Send(ctx, func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return w.sender.SendDocument(ctx, chatID, filepath.Base(path), f, caption)
	})
	if err != nil {
		w.metrics.SendErrors.Inc()
		w.logger.Warn("send document failed",
			zap.Int64("chat_id", chatID), zap.String("path", path), zap.Error(err))
	}
	return err
}

// recoverNotify is the top-level handler for unexpected panics: log,
// then one best-effort notification to the user.
func (w *Workflow) recoverNotify(ctx context.Context, chatID int64) {
	r := recover()
	if r == nil {
		return
	}
	w.logger.Error("panic while handling event", zap.Any("panic", r), zap.Stack("stack"))
	_ = w.gate.Send(ctx, func() error {
		return w.sender.SendText(ctx, chatID, "An internal error occurred.", nil)
	})
}
