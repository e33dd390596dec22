package command

import "errors"

// ErrUnknownCommand is returned when a command name is not registered.
var ErrUnknownCommand = errors.New("unknown command")
