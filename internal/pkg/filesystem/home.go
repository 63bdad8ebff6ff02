package filesystem

import "os"

// UserHome returns the user home directory, falling back to the current dir.
func UserHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
