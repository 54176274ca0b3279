package session

import (
	"regexp"
	"strings"
)

// DefaultBaseName is used when a merge command carries no base option.
const DefaultBaseName = "merged"

// maxFiles is the number of source files a merge consumes.
const maxFiles = 2

var baseNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// iconExtensions are the upload extensions classified as icons when the
// session is not explicitly awaiting one.
var iconExtensions = []string{".ico", ".icns", ".png"}

// File is one uploaded payload.
type File struct {
	Name string
	Data []byte
}

// Kind reports how an upload was classified.
type Kind int

const (
	// KindContent means the upload joined the merge file list.
	KindContent Kind = iota
	// KindIcon means the upload became the session icon.
	KindIcon
)

// Session tracks one user's state between a merge command and its
// completion. It is not safe for concurrent use; the store serializes
// access per user.
type Session struct {
	BaseName     string
	Windowed     bool
	Files        []File
	Icon         *File
	AwaitingIcon bool
}

// New returns a session with default options.
func New() *Session {
	return &Session{
		BaseName: DefaultBaseName,
		Windowed: true,
	}
}

// AddFile classifies and records an upload.
//
// An explicit icon-change request wins over extension rules: while
// AwaitingIcon is set, the next upload of any kind becomes the icon and
// the flag resets. Otherwise an icon-extension upload fills an empty
// icon slot, and everything else joins the file list. The list keeps
// the two most recent files; the oldest is evicted on overflow.
func (s *Session) AddFile(name string, data []byte) Kind {
	if s.AwaitingIcon {
		s.Icon = &File{Name: name, Data: data}
		s.AwaitingIcon = false
		return KindIcon
	}
	if hasIconExtension(name) && s.Icon == nil {
		s.Icon = &File{Name: name, Data: data}
		return KindIcon
	}
	s.Files = append(s.Files, File{Name: name, Data: data})
	if len(s.Files) > maxFiles {
		s.Files = s.Files[len(s.Files)-maxFiles:]
	}
	return KindContent
}

// ClearIcon removes the icon and leaves icon-awaiting mode.
func (s *Session) ClearIcon() {
	s.Icon = nil
	s.AwaitingIcon = false
}

// Ready reports whether the session holds enough files to merge.
func (s *Session) Ready() bool {
	return len(s.Files) >= maxFiles
}

// SanitizeBaseName constrains a user-supplied output name to
// [A-Za-z0-9._-]; anything else collapses to underscores. Empty input
// falls back to the default.
func SanitizeBaseName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultBaseName
	}
	name = baseNameUnsafe.ReplaceAllString(name, "_")
	if name == "" {
		return DefaultBaseName
	}
	return name
}

func hasIconExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range iconExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
