package workflow

import "strings"

// ParseOptions extracts key=value tokens from a command's text, e.g.
// "/merge base=myapp windowed=0". Keys are lowercased; tokens without
// "=" and unrecognized keys are ignored by the caller.
func ParseOptions(text string) map[string]string {
	opts := make(map[string]string)
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return opts
	}
	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		opts[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return opts
}
