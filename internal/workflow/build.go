package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeweld/mergebot/internal/builder"
	"github.com/codeweld/mergebot/internal/delivery"
	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/merge"
	"github.com/codeweld/mergebot/internal/session"
)

// buildAndDeliver runs the merge → build → deliver sequence exactly
// once for a ready session. The session has already been removed from
// the store, so nothing can re-trigger the sequence; afterwards the
// user starts fresh with /merge. Outbound messages keep the fixed
// order: status → artifact → log → binary/archive/report → summary.
func (w *Workflow) buildAndDeliver(ctx context.Context, userID, chatID int64, sess *session.Session) {
	buildID := uuid.NewString()
	log := w.logger.WithUser(userID).WithBuild(buildID)

	outDir := filepath.Join(
		w.cfg.Builder.WorkRoot,
		strconv.FormatInt(userID, 10),
		w.now().Format("20060102_150405"),
	)

	file1, file2 := sess.Files[0], sess.Files[1]

	w.sendText(ctx, chatID, "Merging the files…", nil)

	text1, enc1 := merge.DecodeBestEffort(file1.Data)
	text2, enc2 := merge.DecodeBestEffort(file2.Data)
	merged := merge.Merge(text1, text2, file1.Name, file2.Name)

	artifact, duplicate, err := merge.WriteArtifact(outDir, sess.BaseName, merged)
	if err != nil {
		log.Error("artifact write failed", zap.Error(err))
		w.sendText(ctx, chatID, fmt.Sprintf("Could not write the merged file: %v", err), menu())
		return
	}
	log.Info("artifact written",
		zap.String("path", artifact),
		zap.String("encoding_1", enc1),
		zap.String("encoding_2", enc2))

	caption := fmt.Sprintf("%s (encodings: %s, %s)", filepath.Base(artifact), enc1, enc2)
	if err := w.sendFile(ctx, chatID, artifact, caption); err != nil {
		w.sendText(ctx, chatID, fmt.Sprintf("Could not send intermediate files: %v", err), nil)
	} else if err := w.sendFile(ctx, chatID, duplicate, "*.pyinstall"); err != nil {
		w.sendText(ctx, chatID, fmt.Sprintf("Could not send intermediate files: %v", err), nil)
	}

	w.sendText(ctx, chatID, "Building the executable with PyInstaller…", nil)

	iconPath := w.stageIcon(ctx, chatID, outDir, sess)

	buildStart := w.now()
	result := w.builder.Build(ctx, builder.Options{
		BuildID:      buildID,
		UserID:       userID,
		ArtifactPath: artifact,
		OutDir:       outDir,
		BaseName:     sess.BaseName,
		Windowed:     sess.Windowed,
		IconPath:     iconPath,
	})
	buildDuration := w.now().Sub(buildStart)

	logPath := filepath.Join(outDir, "pyinstaller.log")
	if err := os.WriteFile(logPath, []byte(result.Log), 0o644); err != nil {
		log.Warn("build log write failed", zap.Error(err))
	} else if err := w.sendFile(ctx, chatID, logPath, "Build log"); err != nil {
		log.Warn("build log send failed", zap.Error(err))
	}

	if result.BinaryPath == "" {
		w.metrics.RecordBuild("failure", buildDuration)
		log.Warn("build produced no binary")
		w.sendText(ctx, chatID, "Could not build the executable. Check the log.", nil)
		w.sendText(ctx, chatID, "The build finished with an error. Check the log. "+
			"Use the buttons below to continue.", menu())
		return
	}
	w.metrics.RecordBuild("success", buildDuration)
	log.Info("build succeeded",
		zap.String("binary", result.BinaryPath),
		zap.Duration("duration", buildDuration))

	delivered := w.deliver(ctx, chatID, result.BinaryPath, log)

	if delivered {
		w.sendText(ctx, chatID, "Build finished. All files sent. "+
			"Use the buttons below to continue.", menu())
	} else {
		w.sendText(ctx, chatID, "Build finished. Check the messages above. "+
			"Use the buttons below to continue.", menu())
	}
}

// stageIcon writes the session icon next to the artifact and returns
// its path, warning the user when the extension cannot be used. The
// builder makes the final call and logs its own warning.
func (w *Workflow) stageIcon(ctx context.Context, chatID int64, outDir string, sess *session.Session) string {
	if sess.Icon == nil {
		return ""
	}
	iconPath := filepath.Join(outDir, sess.Icon.Name)
	if err := os.WriteFile(iconPath, sess.Icon.Data, 0o644); err != nil {
		w.logger.Warn("icon write failed", zap.Error(err))
		return ""
	}
	if !w.builder.IconAllowed(iconPath) {
		w.sendText(ctx, chatID, fmt.Sprintf(
			"The icon file was received, but PyInstaller only supports %s on this platform. "+
				"The icon will not be applied.",
			strings.Join(w.builder.AllowedIconExtensions(), ", ")), nil)
	}
	return iconPath
}

// deliver transmits the binary per the delivery plan and reports
// whether the user received a file.
func (w *Workflow) deliver(ctx context.Context, chatID int64, binaryPath string, log *logging.Logger) bool {
	plan, err := w.planner.Plan(binaryPath)
	if err != nil {
		w.metrics.RecordDelivery("error")
		log.Warn("delivery planning failed", zap.Error(err))
		w.sendText(ctx, chatID, fmt.Sprintf(
			"The executable was built but could not be prepared for sending: %v\nServer-side path: %s",
			err, binaryPath), nil)
		return false
	}

	switch plan.Outcome {
	case delivery.OutcomeDirect:
		if err := w.sendFile(ctx, chatID, plan.Path, "Finished executable"); err != nil {
			w.metrics.RecordDelivery("error")
			w.sendText(ctx, chatID, fmt.Sprintf(
				"The executable was built but sending failed: %v\nServer-side path: %s",
				err, binaryPath), nil)
			return false
		}
		w.metrics.RecordDelivery("direct")
		return true

	case delivery.OutcomeArchive:
		w.sendText(ctx, chatID, "The executable is large, packing it into a ZIP…", nil)
		if err := w.sendFile(ctx, chatID, plan.Path, "Finished executable (ZIP)"); err != nil {
			w.metrics.RecordDelivery("error")
			w.sendText(ctx, chatID, fmt.Sprintf(
				"The executable was built but sending failed: %v\nServer-side path: %s",
				err, binaryPath), nil)
			return false
		}
		w.metrics.RecordDelivery("archive")
		return true

	default:
		w.metrics.RecordDelivery("report")
		w.sendText(ctx, chatID, plan.Report, nil)
		return false
	}
}
