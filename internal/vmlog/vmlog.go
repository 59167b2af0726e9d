// Package vmlog is the ambient structured-logging wrapper shared by the
// compiler and the VM, grounded on the sirupsen/logrus + logrus-easy-
// formatter pairing seen in the retrieved golox reference
// (_examples/other_examples/1f898d4d_rami3l-golox__vm-parser.go.go and its
// manifest go.mod). It is strictly additive: the exact diagnostic text
// spec.md §6/§8 pins down is always written verbatim to stdout/stderr by
// the compiler and VM themselves, never only to this logger.
package vmlog

import (
	"os"

	easy "github.com/t-tomalak/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
)

// New returns a logger configured the way every component in this module
// shares: text output, a compact timestamped template, level gated by the
// LOXVM_LOG_LEVEL env var (defaults to "warn" so normal runs stay quiet).
func New(component string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&easy.Formatter{
		TimestampFormat: "15:04:05.000",
		LogFormat:       "[%lvl%] %time% %msg%\n",
	})
	log.SetLevel(levelFromEnv())
	return log.WithField("component", component)
}

func levelFromEnv() logrus.Level {
	switch os.Getenv("LOXVM_LOG_LEVEL") {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}
