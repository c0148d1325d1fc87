package workspace

import (
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
)

// Notifier shows save and edit outcomes to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// ConsoleNotifier prints notices with the user output helpers.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Success(msg string) { logging.UserSuccess("%s", msg) }
func (ConsoleNotifier) Error(msg string)   { logging.UserError("%s", msg) }

type logNotifier struct{}

func (logNotifier) Success(msg string) { logging.Debug(msg) }
func (logNotifier) Error(msg string)   { logging.Warn(msg) }
