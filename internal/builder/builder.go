package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/stream"
)

// Options describes one packaging run.
type Options struct {
	BuildID      string
	UserID       int64
	ArtifactPath string
	OutDir       string
	BaseName     string
	Windowed     bool
	IconPath     string // optional; empty means no icon
}

// Result is the outcome of a packaging run. BinaryPath is empty when no
// binary was produced; Log always explains what happened.
type Result struct {
	BinaryPath string
	Log        string
}

// Builder drives the external packaging tool as a child process.
type Builder struct {
	python       string
	allowedIcons []string
	logger       *logging.Logger
	hub          *stream.Hub
}

// New creates a builder. hub may be nil when live log streaming is off.
func New(python string, allowedIcons []string, logger *logging.Logger, hub *stream.Hub) *Builder {
	return &Builder{
		python:       python,
		allowedIcons: allowedIcons,
		logger:       logger,
		hub:          hub,
	}
}

// AllowedIconExtensions returns the icon allow-list for this deployment.
func (b *Builder) AllowedIconExtensions() []string {
	return b.allowedIcons
}

// IconAllowed reports whether path's extension is in the allow-list.
func (b *Builder) IconAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range b.allowedIcons {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Build invokes the packaging tool and blocks until it exits. Failures
// never surface as errors: they are recorded in the log and leave
// BinaryPath empty.
func (b *Builder) Build(ctx context.Context, opts Options) Result {
	distDir := filepath.Join(opts.OutDir, "dist")
	workDir := filepath.Join(opts.OutDir, "build")
	specDir := filepath.Join(opts.OutDir, "spec")
	for _, dir := range []string{distDir, workDir, specDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{Log: fmt.Sprintf("failed to create %s: %v", dir, err)}
		}
	}

	args := []string{"-m", "PyInstaller", "--onefile", "--clean", "--noconfirm", "--name", opts.BaseName}
	if opts.Windowed {
		if runtime.GOOS == "windows" {
			args = append(args, "--noconsole")
		} else {
			args = append(args, "--windowed")
		}
	}

	var log logBuffer
	if opts.IconPath != "" {
		if b.IconAllowed(opts.IconPath) {
			args = append(args, "--icon", opts.IconPath)
		} else {
			warning := fmt.Sprintf(
				"icon %s has unsupported extension %s; PyInstaller accepts only: %s. Icon skipped.",
				filepath.Base(opts.IconPath), filepath.Ext(opts.IconPath),
				strings.Join(b.allowedIcons, ", "),
			)
			log.append(warning)
			b.logger.Warn("icon skipped",
				zap.String("build_id", opts.BuildID),
				zap.String("icon", filepath.Base(opts.IconPath)))
		}
	}
	args = append(args,
		"--distpath", distDir,
		"--workpath", workDir,
		"--specpath", specDir,
		opts.ArtifactPath,
	)

	cmd := exec.CommandContext(ctx, b.python, args...)
	log.append("Command:", b.python+" "+strings.Join(args, " "), "")

	if err := b.runStreaming(cmd, opts, &log); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			log.append("PyInstaller runner not found. Install it: pip install pyinstaller")
			return Result{Log: log.String()}
		}
		log.append(fmt.Sprintf("PyInstaller error: %v", err))
		return Result{Log: log.String()}
	}
	log.append("PyInstaller finished.")

	binary := b.locateBinary(distDir, opts.BaseName)
	if binary == "" {
		log.append("no output binary found in " + distDir)
	}
	return Result{BinaryPath: binary, Log: log.String()}
}

// runStreaming starts cmd with combined stdout/stderr and copies its
// output line-by-line into the log, mirroring lines to the hub.
func (b *Builder) runStreaming(cmd *exec.Cmd, opts Options, log *logBuffer) error {
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r\n")
			log.append(line)
			if b.hub != nil {
				b.hub.Publish(stream.Event{BuildID: opts.BuildID, UserID: opts.UserID, Line: line})
			}
		}
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-done

	// A non-zero exit is not a launch failure; the log carries the
	// tool's own diagnostics and binary lookup decides the outcome.
	var exitErr *exec.ExitError
	if waitErr != nil && errors.As(waitErr, &exitErr) {
		log.append(fmt.Sprintf("process exited: %v", waitErr))
		return nil
	}
	return waitErr
}

// locateBinary resolves the produced binary: exact expected name first,
// then the most recently modified dist entry starting with base.
func (b *Builder) locateBinary(distDir, base string) string {
	exact := base
	if runtime.GOOS == "windows" {
		exact += ".exe"
	}
	exactPath := filepath.Join(distDir, exact)
	if info, err := os.Stat(exactPath); err == nil && !info.IsDir() {
		return exactPath
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(distDir, base+"*"))
	if err != nil {
		return ""
	}

	var newest string
	var newestMod int64
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().UnixNano() > newestMod {
			newest = match
			newestMod = info.ModTime().UnixNano()
		}
	}
	return newest
}

// logBuffer accumulates ordered log lines.
type logBuffer struct {
	lines []string
}

func (l *logBuffer) append(lines ...string) {
	l.lines = append(l.lines, lines...)
}

func (l *logBuffer) String() string {
	return strings.Join(l.lines, "\n")
}
