package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppDirName      = "quizspeak"
	ConfigFileName  = "quizspeak-config.json"
	HistoryFileName = "history.db"
	HistoryLogName  = "history.log"
	DirPerm         = 0755
	FilePerm        = 0644
)

// AtomicWrite writes data to path via a temporary file + rename to avoid
// partial writes. The parent directory is created if needed.
func AtomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, FilePerm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// DataDir returns the platform-specific data directory:
//   - Windows: %APPDATA%\quizspeak
//   - Unix:    ~/.config/quizspeak
//
// Falls back to os.TempDir()/quizspeak if neither is available.
func DataDir() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, AppDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppDirName)
	}
	return filepath.Join(home, ".config", AppDirName)
}

// UserConfigPath returns the per-user config file location.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Roaming", AppDirName, ConfigFileName)
	}
	return filepath.Join(home, ".config", AppDirName, ConfigFileName)
}

// HistoryPath returns the default playback history database path.
func HistoryPath() string {
	return filepath.Join(DataDir(), HistoryFileName)
}

// HistoryLogPath returns the default flat-file playback history path.
func HistoryLogPath() string {
	return filepath.Join(DataDir(), HistoryLogName)
}
