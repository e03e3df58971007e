package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// Credential keys recognized in the secrets file.
const (
	KeyIndexUser = "INDEX_USER"
	KeyIndexPass = "INDEX_PASS"
)

// credentialPaths lists the secrets file locations in search order.
func credentialPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".crawl-credentials.conf"),
		"/etc/crawl/credentials.conf",
		filepath.Join("config", "credentials.conf"),
	}
}

// LoadCredentials reads KEY=VALUE pairs from the first secrets file found.
// Environment variables of the same names take precedence. A secrets file
// readable by group or world is refused.
func LoadCredentials() (map[string]string, error) {
	creds := make(map[string]string)

	for _, path := range credentialPaths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o077 != 0 {
			return nil, fmt.Errorf("credentials file %s is group/world accessible (mode %o); chmod 600 it", path, info.Mode().Perm())
		}
		if err := readCredentialFile(path, creds); err != nil {
			return nil, err
		}
		break
	}

	for _, key := range []string{KeyIndexUser, KeyIndexPass} {
		if v := os.Getenv(key); v != "" {
			creds[key] = v
		}
	}
	return creds, nil
}

func readCredentialFile(path string, creds map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening credentials file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		creds[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return scanner.Err()
}

// PromptSecret reads a secret from the terminal without echo. Falls back to
// a plain line read when stdin is not a TTY.
func PromptSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
