package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeweld/mergebot/internal/builder"
	"github.com/codeweld/mergebot/internal/config"
	"github.com/codeweld/mergebot/internal/cooldown"
	"github.com/codeweld/mergebot/internal/delivery"
	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/monitoring"
	"github.com/codeweld/mergebot/internal/session"
	"github.com/codeweld/mergebot/internal/transport"
)

type sentText struct {
	chatID  int64
	text    string
	buttons [][]transport.Button
}

type sentDoc struct {
	chatID   int64
	filename string
	caption  string
	data     []byte
}

// fakeTransport records everything the workflow sends and serves
// uploads from an in-memory map.
type fakeTransport struct {
	texts   []sentText
	docs    []sentDoc
	answers []string

	uploads  map[string][]byte
	fetchErr error
	sendErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{uploads: make(map[string][]byte)}
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string, buttons [][]transport.Button) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.texts = append(f.texts, sentText{chatID: chatID, text: text, buttons: buttons})
	return nil
}

func (f *fakeTransport) SendDocument(_ context.Context, chatID int64, filename string, content io.Reader, caption string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.docs = append(f.docs, sentDoc{chatID: chatID, filename: filename, caption: caption, data: data})
	return nil
}

func (f *fakeTransport) AnswerButton(_ context.Context, callbackID, text string, _ bool) error {
	f.answers = append(f.answers, callbackID+":"+text)
	return nil
}

func (f *fakeTransport) FetchDocument(_ context.Context, fileID string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.uploads[fileID]
	if !ok {
		return nil, errors.New("unknown file id")
	}
	return data, nil
}

func (f *fakeTransport) allTexts() string {
	var sb strings.Builder
	for _, t := range f.texts {
		sb.WriteString(t.text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// fakePackager writes a shell script standing in for PyInstaller: it
// creates <distpath>/<name> and prints a log line.
func fakePackager(t *testing.T) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake-pyinstaller.sh")
	body := `#!/bin/sh
dist=""
name=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--distpath" ]; then dist="$2"; fi
  if [ "$1" = "--name" ]; then name="$2"; fi
  shift
done
mkdir -p "$dist"
printf 'FAKEBIN' > "$dist/$name"
echo "packaging $name"
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

type harness struct {
	wf    *Workflow
	tr    *fakeTransport
	store *session.Store
	cfg   *config.Config
}

func newHarness(t *testing.T, python string, uploadCeiling int64) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Builder.WorkRoot = t.TempDir()
	cfg.Builder.Python = python

	tr := newFakeTransport()
	store := session.NewStore()
	logger := logging.NewDefault()
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())

	wf := New(Deps{
		Config:  cfg,
		Store:   store,
		Gate:    cooldown.New(0, 0),
		Builder: builder.New(python, []string{".ico", ".icns"}, logger, nil),
		Planner: delivery.NewPlanner(uploadCeiling),
		Sender:  tr,
		Fetcher: tr,
		Logger:  logger,
		Metrics: metrics,
	})
	return &harness{wf: wf, tr: tr, store: store, cfg: cfg}
}

func (h *harness) command(name, text string) {
	h.wf.HandleCommand(context.Background(), transport.Command{
		UserID: 7, ChatID: 70, Name: name, Text: text,
	})
}

func (h *harness) upload(fileID, fileName string, declared int64, data []byte) {
	h.tr.uploads[fileID] = data
	h.wf.HandleDocument(context.Background(), transport.Document{
		UserID: 7, ChatID: 70, FileID: fileID, FileName: fileName, FileSize: declared,
	})
}

func (h *harness) press(action string) {
	h.wf.HandleButton(context.Background(), transport.ButtonPress{
		UserID: 7, ChatID: 70, CallbackID: "cb", Action: action,
	})
}

func TestMergeCommandCreatesSession(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)

	h.command("merge", "/merge base=demo windowed=0")

	sess, ok := h.store.Get(7)
	require.True(t, ok)
	assert.Equal(t, "demo", sess.BaseName)
	assert.False(t, sess.Windowed)

	require.NotEmpty(t, h.tr.texts)
	assert.Contains(t, h.tr.texts[0].text, "send two files")
	assert.NotEmpty(t, h.tr.texts[0].buttons)
}

func TestMergeCommandSanitizesBase(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)

	h.command("merge", "/merge base=my app! unknown=1")

	sess, ok := h.store.Get(7)
	require.True(t, ok)
	// Only the token before the space belongs to base.
	assert.Equal(t, "my", sess.BaseName)
	assert.True(t, sess.Windowed)
}

func TestFullMergeScenario(t *testing.T) {
	h := newHarness(t, fakePackager(t), 49*1024*1024)

	h.command("merge", "/merge base=demo windowed=0")
	h.upload("f1", "a.py", 500, []byte("print('one')\n"))
	h.upload("f2", "b.py", 500, []byte("print('two')\n"))

	// Session is gone: the sequence ran and cleared it.
	_, ok := h.store.Get(7)
	assert.False(t, ok)

	// Artifact, duplicate, log, and binary all went out, in order.
	var names []string
	for _, d := range h.tr.docs {
		names = append(names, d.filename)
	}
	assert.Equal(t, []string{"demo_merged.py", "demo.pyinstall", "pyinstaller.log", "demo"}, names)

	artifact := string(h.tr.docs[0].data)
	assert.Contains(t, artifact, "# 1) a.py")
	assert.Contains(t, artifact, "# 2) b.py")
	assert.Contains(t, artifact, "print('one')")
	assert.Contains(t, artifact, "print('two')")

	assert.Contains(t, h.tr.docs[0].caption, "utf-8")

	// windowed=0 kept the windowed flag off the command line.
	buildLog := string(h.tr.docs[2].data)
	assert.NotContains(t, buildLog, "--windowed")
	assert.NotContains(t, buildLog, "--noconsole")

	assert.Equal(t, "FAKEBIN", string(h.tr.docs[3].data))
	assert.Equal(t, "Finished executable", h.tr.docs[3].caption)

	assert.Contains(t, h.tr.texts[len(h.tr.texts)-1].text, "All files sent")
}

func TestOversizedUploadRejectedBeforeFetch(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge")

	h.wf.HandleDocument(context.Background(), transport.Document{
		UserID: 7, ChatID: 70, FileID: "missing", FileName: "big.bin",
		FileSize: 120 * 1024 * 1024,
	})

	// Rejected on the declared size: the (unknown) file id was never
	// fetched and the session is unchanged.
	sess, ok := h.store.Get(7)
	require.True(t, ok)
	assert.Empty(t, sess.Files)
	assert.Contains(t, h.tr.allTexts(), "too large")
	assert.Contains(t, h.tr.allTexts(), "100 MB")
}

func TestFetchCeilingRejectedSeparately(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge")

	h.wf.HandleDocument(context.Background(), transport.Document{
		UserID: 7, ChatID: 70, FileID: "missing", FileName: "mid.bin",
		FileSize: 25 * 1024 * 1024,
	})

	sess, ok := h.store.Get(7)
	require.True(t, ok)
	assert.Empty(t, sess.Files)
	assert.Contains(t, h.tr.allTexts(), "cannot be bypassed")
}

func TestFetchFailureLeavesSessionUnchanged(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge")
	h.tr.fetchErr = errors.New("bad request")

	h.upload("f1", "a.py", 500, []byte("x"))

	sess, ok := h.store.Get(7)
	require.True(t, ok)
	assert.Empty(t, sess.Files)
	assert.Contains(t, h.tr.allTexts(), "Could not download")
}

func TestIconChangeThenAnyUploadBecomesIcon(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge")

	h.press(actionIconChange)
	h.upload("f1", "logo.bmp", 100, []byte("bmpdata"))

	sess, ok := h.store.Get(7)
	require.True(t, ok)
	require.NotNil(t, sess.Icon)
	assert.Equal(t, "logo.bmp", sess.Icon.Name)
	assert.Empty(t, sess.Files)
	assert.Contains(t, h.tr.allTexts(), "Icon updated: logo.bmp")
}

func TestIconClearButton(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge")
	h.upload("f1", "app.ico", 100, []byte("ico"))

	h.press(actionIconClear)

	sess, ok := h.store.Get(7)
	require.True(t, ok)
	assert.Nil(t, sess.Icon)
}

func TestMergeNowWithoutEnoughFiles(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge")

	h.press(actionMergeNow)

	assert.Contains(t, h.tr.allTexts(), "Not enough files")
	_, ok := h.store.Get(7)
	assert.True(t, ok)
}

func TestBuildFailureStillClearsSessionAndSendsLog(t *testing.T) {
	// echo exits cleanly but produces no binary.
	h := newHarness(t, "echo", 49*1024*1024)

	h.command("merge", "/merge base=demo")
	h.upload("f1", "a.py", 500, []byte("one"))
	h.upload("f2", "b.py", 500, []byte("two"))

	_, ok := h.store.Get(7)
	assert.False(t, ok)

	var names []string
	for _, d := range h.tr.docs {
		names = append(names, d.filename)
	}
	assert.Contains(t, names, "pyinstaller.log")
	assert.Contains(t, h.tr.allTexts(), "Could not build the executable")
	assert.Contains(t, h.tr.allTexts(), "finished with an error")
}

func TestMissingPackagerReportsInstallHint(t *testing.T) {
	h := newHarness(t, "definitely-not-a-real-interpreter-xyz", 49*1024*1024)

	h.command("merge", "/merge")
	h.upload("f1", "a.py", 500, []byte("one"))
	h.upload("f2", "b.py", 500, []byte("two"))

	var buildLog string
	for _, d := range h.tr.docs {
		if d.filename == "pyinstaller.log" {
			buildLog = string(d.data)
		}
	}
	assert.Contains(t, buildLog, "pip install pyinstaller")
	assert.Contains(t, h.tr.allTexts(), "Could not build the executable")
}

func TestDeliveryReportWhenArchiveTooBig(t *testing.T) {
	// Ceiling of one byte: neither the binary nor its zip can pass.
	h := newHarness(t, fakePackager(t), 1)

	h.command("merge", "/merge base=demo")
	h.upload("f1", "a.py", 500, []byte("one"))
	h.upload("f2", "b.py", 500, []byte("two"))

	texts := h.tr.allTexts()
	assert.Contains(t, texts, "even compressed")
	assert.Contains(t, texts, "Server-side path:")
	assert.Contains(t, texts, "Check the messages above")

	// No binary document was transmitted.
	for _, d := range h.tr.docs {
		assert.NotEqual(t, "demo", d.filename)
		assert.NotEqual(t, "demo.zip", d.filename)
	}
}

func TestInboundCooldownDropsBursts(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	// Real 1s inbound spacing for this test.
	h.wf.gate = cooldown.New(time.Second, 0)

	h.command("merge", "/merge")
	h.command("merge", "/merge")

	// Only the first command got a reply.
	assert.Len(t, h.tr.texts, 1)
}

func TestButtonCooldownAnswersWithAlert(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.wf.gate = cooldown.New(time.Second, 0)

	h.press(actionState)
	h.press(actionState)

	require.Len(t, h.tr.answers, 2)
	assert.Contains(t, h.tr.answers[1], "pressing too fast")
	// The throttled press produced no state reply.
	assert.Len(t, h.tr.texts, 1)
}

func TestResetClearsState(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge base=demo")
	h.upload("f1", "a.py", 100, []byte("x"))

	h.command("reset", "/reset")

	_, ok := h.store.Get(7)
	assert.False(t, ok)
	assert.Contains(t, h.tr.allTexts(), "State cleared")
}

func TestStatusButtonShowsSummary(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge base=demo windowed=0")
	h.upload("f1", "a.py", 100, []byte("x"))

	h.press(actionState)

	last := h.tr.texts[len(h.tr.texts)-1].text
	assert.Contains(t, last, "Output name: demo")
	assert.Contains(t, last, "Windowed mode: off")
	assert.Contains(t, last, "Files to merge: 1 / 2")
}

func TestSecondUploadTriggersBuild(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("merge", "/merge")

	h.upload("f1", "a.py", 100, []byte("a"))
	_, ok := h.store.Get(7)
	assert.True(t, ok)

	h.upload("f2", "b.py", 100, []byte("b"))

	// Two files reached: the sequence ran and consumed the session.
	_, ok = h.store.Get(7)
	assert.False(t, ok)
}

func TestPanicIsRecoveredAndReported(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	// A nil store makes HandleCommand panic after admission.
	h.wf.store = nil

	assert.NotPanics(t, func() {
		h.command("merge", "/merge")
	})
	require.NotEmpty(t, h.tr.texts)
	assert.Contains(t, h.tr.texts[len(h.tr.texts)-1].text, "internal error")
}

func TestParseOptions(t *testing.T) {
	opts := ParseOptions("/merge base=myapp windowed=0 junk BASE=ignored2")
	assert.Equal(t, "0", opts["windowed"])
	// Later duplicate keys (case-insensitive) overwrite earlier ones.
	assert.Equal(t, "ignored2", opts["base"])

	assert.Empty(t, ParseOptions("/merge"))
	assert.Empty(t, ParseOptions(""))
}

func TestArtifactDeterminism(t *testing.T) {
	run := func() []byte {
		h := newHarness(t, "echo", 49*1024*1024)
		h.command("merge", "/merge base=demo")
		h.upload("f1", "a.py", 100, []byte("alpha"))
		h.upload("f2", "b.py", 100, []byte("beta"))
		require.NotEmpty(t, h.tr.docs)
		return h.tr.docs[0].data
	}
	assert.Equal(t, run(), run())
}

func TestWorkDirLayout(t *testing.T) {
	h := newHarness(t, fakePackager(t), 49*1024*1024)
	h.command("merge", "/merge base=demo")
	h.upload("f1", "a.py", 100, []byte("one"))
	h.upload("f2", "b.py", 100, []byte("two"))

	// <workroot>/<userID>/<timestamp>/ holds artifact, duplicate, log,
	// and the dist directory with the binary.
	userDir := filepath.Join(h.cfg.Builder.WorkRoot, "7")
	entries, err := os.ReadDir(userDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	buildDir := filepath.Join(userDir, entries[0].Name())
	for _, name := range []string{"demo_merged.py", "demo.pyinstall", "pyinstaller.log"} {
		_, err := os.Stat(filepath.Join(buildDir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(buildDir, "dist", "demo"))
	assert.NoError(t, err)
}

func TestUploadWithoutMergeCommandStillCollects(t *testing.T) {
	// Sending files without /merge first creates a default session.
	h := newHarness(t, "echo", 49*1024*1024)

	h.upload("f1", "a.py", 100, []byte("x"))

	sess, ok := h.store.Get(7)
	require.True(t, ok)
	assert.Equal(t, session.DefaultBaseName, sess.BaseName)
	assert.Len(t, sess.Files, 1)
}

func TestRemoteCommand(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("remote", "/remote")

	require.NotEmpty(t, h.tr.texts)
	assert.Contains(t, h.tr.texts[0].text, "Getscreen.me")
}

func TestHelpShowsUsage(t *testing.T) {
	h := newHarness(t, "echo", 49*1024*1024)
	h.command("help", "/help")

	require.NotEmpty(t, h.tr.texts)
	assert.Contains(t, h.tr.texts[0].text, "/merge")
	assert.Contains(t, h.tr.texts[0].text, fmt.Sprintf("%d MB", 100))
}
