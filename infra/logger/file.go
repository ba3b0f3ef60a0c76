package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file. Sizes are in megabytes.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	fileMu  sync.RWMutex
	fileOut io.Writer
)

// SetFile tees loggers created afterwards into a rotating file. An empty
// Path turns the file output off. The returned closer releases the file.
func SetFile(opts FileOptions) (io.Closer, error) {
	fileMu.Lock()
	defer fileMu.Unlock()
	if opts.Path == "" {
		fileOut = nil
		return io.NopCloser(nil), nil
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	fileOut = lj
	return lj, nil
}

func withFile(w io.Writer) io.Writer {
	fileMu.RLock()
	defer fileMu.RUnlock()
	if fileOut == nil {
		return w
	}
	return zerolog.MultiLevelWriter(w, fileOut)
}
