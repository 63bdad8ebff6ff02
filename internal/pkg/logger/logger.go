// Package logger implements the ports.Logger contract over the standard
// library log package.
package logger

import (
	"log"
)

// StdLogger writes leveled key/value lines. Debug and Info stay quiet unless
// verbose mode is on; Warn and Error always print so problems like failed
// history writes surface even in quiet runs.
type StdLogger struct {
	verbose bool
}

// NewStd creates a logger; verbose enables the Debug and Info levels.
func NewStd(verbose bool) *StdLogger {
	return &StdLogger{verbose: verbose}
}

func (l *StdLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.verbose {
		return
	}
	log.Println("[DEBUG]", msg, fields)
}

func (l *StdLogger) Info(msg string, fields map[string]interface{}) {
	if !l.verbose {
		return
	}
	log.Println("[INFO]", msg, fields)
}

func (l *StdLogger) Warn(msg string, fields map[string]interface{}) {
	log.Println("[WARN]", msg, fields)
}

func (l *StdLogger) Error(msg string, err error, fields map[string]interface{}) {
	log.Println("[ERROR]", msg, err, fields)
}
