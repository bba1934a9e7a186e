package transform

import "errors"

var (
	ErrStart = errors.New("transform: starting command")
	ErrWrite = errors.New("transform: writing to subprocess")
	ErrRead  = errors.New("transform: reading from subprocess")
	ErrExit  = errors.New("transform: subprocess exited with error")
)
