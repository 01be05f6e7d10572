package testutil

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func init() {
	// Quiet unless the test binary runs verbose. SetupLogging overrides this
	// per test.
	for _, arg := range os.Args {
		if arg == "-test.v" || arg == "-test.v=true" {
			return
		}
	}
	logrus.StandardLogger().SetOutput(io.Discard)
}

// SetupLogging sends the standard logger's output to t.Log at trace level, so
// a failing test prints the log lines it produced. The previous output and
// level are restored when the test finishes.
func SetupLogging(t testing.TB) {
	logger := logrus.StandardLogger()
	out, level := logger.Out, logger.GetLevel()

	logger.SetOutput(testWriter{t})
	logger.SetLevel(logrus.TraceLevel)

	t.Cleanup(func() {
		logger.SetOutput(out)
		logger.SetLevel(level)
	})
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
