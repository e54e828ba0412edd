package personality

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	FileName = "PERSONALITY.md"
	Default  = "You are the Command Center assistant, a knowledgeable and friendly AI that lives in the user's browser.\n\nBehavior guidelines:\n- Help with questions, explanations, suggestions and thoughtful discussion.\n- Be accurate and conversational; keep answers concise unless depth is requested.\n- When page context or a video transcript is provided, ground the answer in it.\n- Use Markdown when it makes the answer easier to read."
)

// Resolve returns the persona from the nearest PERSONALITY.md above the
// working directory, or Default when none is found.
func Resolve() string {
	if content, err := ReadFromDisk(); err == nil && content != "" {
		return content
	}
	return Default
}

func ReadFromDisk() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return ReadFrom(cwd)
}

// ReadFrom searches startDir and its parents for PERSONALITY.md.
func ReadFrom(startDir string) (string, error) {
	path, err := findInParents(startDir, FileName)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func findInParents(startDir string, filename string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
