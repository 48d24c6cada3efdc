// Package env loads settings from a dotenv file into the process
// environment. The installer drops the gateway configuration at
// ~/.config/shellgate/.env; values already present in the environment win
// over the file.
package env

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath returns the conventional location of the gateway .env file.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "shellgate", ".env")
}

// LoadDefault loads the .env file from its conventional location. A missing
// file is not an error.
func LoadDefault() error {
	path := DefaultPath()
	if path == "" {
		return nil
	}
	return Load(path)
}

// Load reads KEY=VALUE lines from path and sets each key that is not
// already present in the environment. Blank lines, comments and malformed
// lines are skipped.
func Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return scanner.Err()
}
