package merge

import (
	"fmt"
	"os"
	"path/filepath"
)

// Merge concatenates two decoded source texts into one annotated
// artifact. The output is a pure function of its inputs: a header names
// both sources, then each body appears in argument order between
// begin/end markers. No timestamps or randomness enter the body.
func Merge(text1, text2, src1, src2 string) string {
	header := fmt.Sprintf(
		"# -*- coding: utf-8 -*-\n"+
			"# === MERGED FILE ===\n"+
			"# Sources:\n# 1) %s\n# 2) %s\n\n",
		src1, src2,
	)
	body1 := fmt.Sprintf("# ---- BEGIN FILE 1 ----\n\n%s\n\n# ---- END FILE 1 ----\n\n", text1)
	body2 := fmt.Sprintf("# ---- BEGIN FILE 2 ----\n\n%s\n\n# ---- END FILE 2 ----\n", text2)
	return header + body1 + body2
}

// WriteArtifact writes the merged source under dir as <base>_merged.py
// plus a duplicate copy under the .pyinstall extension, returning both
// paths.
func WriteArtifact(dir, base, text string) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create artifact dir: %w", err)
	}

	artifact := filepath.Join(dir, base+"_merged.py")
	if err := os.WriteFile(artifact, []byte(text), 0o644); err != nil {
		return "", "", fmt.Errorf("write artifact: %w", err)
	}

	duplicate := filepath.Join(dir, base+".pyinstall")
	if err := os.WriteFile(duplicate, []byte(text), 0o644); err != nil {
		return "", "", fmt.Errorf("write artifact copy: %w", err)
	}
	return artifact, duplicate, nil
}
