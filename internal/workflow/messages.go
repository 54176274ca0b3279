package workflow

import (
	"fmt"

	"github.com/codeweld/mergebot/internal/session"
	"github.com/codeweld/mergebot/internal/transport"
)

// remoteControlURL points at the screen-sharing service the /remote
// command recommends.
const remoteControlURL = "https://app.getscreen.me"

const remoteControlMessage = "For remote access use Getscreen.me, which shares a screen by link without sign-up.\n" +
	"1. Open " + remoteControlURL + "\n" +
	"2. Download and run the screen-sharing mini app.\n" +
	"3. The service issues a ready link; pass it to whoever will connect.\n" +
	"4. Opening the link shows the screen immediately, no authorization needed."

// Button actions.
const (
	actionFilesPrompt = "files_prompt"
	actionMergeNow    = "merge_now"
	actionIconChange  = "icon_change"
	actionIconClear   = "icon_clear"
	actionState       = "state"
	actionReset       = "reset"
)

func usageText() string {
	return "Commands: /merge [base=myapp] [windowed=1|0], /reset, /remote\n" +
		"Use the buttons below to control the process.\n" +
		"The per-file limit is 100 MB. Telegram additionally restricts bot downloads to about 20 MB."
}

// menu builds the inline action keyboard shown with most replies.
func menu() [][]transport.Button {
	return [][]transport.Button{
		{
			{Label: "📂 Upload files", Action: actionFilesPrompt},
			{Label: "🚀 Build", Action: actionMergeNow},
		},
		{
			{Label: "🖼 Change icon", Action: actionIconChange},
			{Label: "🧹 Remove icon", Action: actionIconClear},
		},
		{
			{Label: "🖥 Remote access", URL: remoteControlURL},
			{Label: "ℹ️ Status", Action: actionState},
		},
		{
			{Label: "🔁 Reset", Action: actionReset},
		},
	}
}

// summary renders the session status text.
func summary(s *session.Session) string {
	icon := "no"
	if s.Icon != nil {
		icon = "yes"
	}
	windowed := "off"
	if s.Windowed {
		windowed = "on"
	}
	return fmt.Sprintf(
		"Output name: %s\nIcon: %s\nWindowed mode: %s\nFiles to merge: %d / 2",
		s.BaseName, icon, windowed, len(s.Files),
	)
}
