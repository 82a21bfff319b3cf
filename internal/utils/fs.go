package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxFilenameLength caps sanitized entry names
const MaxFilenameLength = 200

// Device names Windows refuses as filenames
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// titleCharsRegex matches runs of characters replaced when titles become
// entry names. Dots would read as extensions. Slashes would read as
// directories inside the archive.
var titleCharsRegex = regexp.MustCompile(`[./ ]+`)

// invalidCharsRegex matches the remaining characters that break extraction
// on common filesystems
var invalidCharsRegex = regexp.MustCompile(`[<>:"|?*\\]`)

// SanitizeTitle converts a page title into a safe archive entry name. Each
// run of dots, slashes, and spaces collapses to a single underscore. Other
// characters pass through unchanged so distinct titles stay distinct.
func SanitizeTitle(title string) string {
	name := titleCharsRegex.ReplaceAllString(title, "_")
	name = invalidCharsRegex.ReplaceAllString(name, "_")

	// A reserved device name gets a prefix so extraction works on Windows
	if windowsReserved[strings.ToUpper(name)] {
		name = "_" + name
	}

	if len(name) > MaxFilenameLength {
		name = name[:MaxFilenameLength]
	}

	if name == "" {
		name = "untitled"
	}

	return name
}

// EnsureDir ensures the parent directory of path exists, creating it if
// necessary
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// ExpandPath resolves a leading ~ against the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}
