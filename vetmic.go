package vetmic

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppName is used for log file names and cache directories.
const AppName = "wcvm-vetmic"

// Version of the tools.
const Version = "0.2.1"

// UserAgent returns a polite user agent string, including a contact address, if
// available, cf. https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication.
func UserAgent(tool, mailto string) string {
	ua := fmt.Sprintf("%s/%s", tool, Version)
	if mailto != "" {
		ua = fmt.Sprintf("%s (mailto:%s)", ua, mailto)
	}
	return ua
}

// SetupLogging configures the shared logger to write to both a timestamped
// file under dir and stdout, so CI logs stay useful. Returns the log file
// path. A failure to create the file is not fatal, we fall back to stdout.
func SetupLogging(dir string) string {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	var name string
	if err := os.MkdirAll(dir, 0755); err == nil {
		name = filepath.Join(dir, fmt.Sprintf("etl_run_%s.log", time.Now().Format("20060102_150405")))
		if f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			logrus.SetOutput(io.MultiWriter(f, os.Stdout))
		} else {
			name = ""
		}
	}
	logrus.AddHook(&runIDHook{id: uuid.NewString()[:8]})
	if name != "" {
		logrus.WithField("logfile", name).Info("logging to file and stdout")
	}
	return name
}

// runIDHook tags every entry with a short per-run identifier, so interleaved
// CI logs from repeated runs can be told apart.
type runIDHook struct {
	id string
}

func (h *runIDHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *runIDHook) Fire(entry *logrus.Entry) error {
	entry.Data["run"] = h.id
	return nil
}
