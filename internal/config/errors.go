package config

import "errors"

var (
	ErrFileNotFound         = errors.New("config file not found")
	ErrFileRead             = errors.New("cannot read config file")
	ErrInvalid              = errors.New("invalid config file")
	ErrWindowSizeTooSmall   = errors.New("window_size must be >= 2")
	ErrWindowExceedsHistory = errors.New("window_size must not exceed max_history")
)
