package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
)

// folderSaver writes downloads into a fixed folder, never overwriting an
// existing file.
type folderSaver struct {
	dir string
}

func (s *folderSaver) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create download folder: %w", err)
	}
	uri, err := uniqueURI(s.dir, name)
	if err != nil {
		return err
	}
	return writeURI(uri, data)
}

func writeURI(uri fyne.URI, data []byte) error {
	w, err := storage.Writer(uri)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", uri.Name(), err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", uri.Name(), err)
	}
	return w.Close()
}

// uniqueURI returns dir/name, or dir/"name (n).ext" for the first n that
// does not exist yet.
func uniqueURI(dir, name string) (fyne.URI, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 1; ; n++ {
		uri := storage.NewFileURI(filepath.Join(dir, candidate))
		exists, err := storage.Exists(uri)
		if err != nil {
			return nil, err
		}
		if !exists {
			return uri, nil
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
}

// resolveDownloadDir returns configured when set, else the user's download
// folder.
func resolveDownloadDir(configured string) string {
	if configured != "" {
		return configured
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return userDir(home, "Downloads", "DOWNLOAD")
}

// userDir looks up a well-known folder, asking xdg-user-dir where it exists.
func userDir(home, name, xdgName string) string {
	fallback := filepath.Join(home, name)
	if runtime.GOOS != "linux" && runtime.GOOS != "openbsd" && runtime.GOOS != "freebsd" && runtime.GOOS != "netbsd" {
		return fallback
	}

	const cmdName = "xdg-user-dir"
	if _, err := exec.LookPath(cmdName); err != nil {
		return fallback
	}
	loc, err := exec.Command(cmdName, xdgName).Output()
	if err != nil {
		return fallback
	}

	clean := filepath.Clean(strings.TrimSpace(string(loc)))
	// xdg-user-dir answers $HOME for unknown names.
	if clean == "" || clean == "." || clean == filepath.Clean(home) {
		return fallback
	}
	return clean
}
