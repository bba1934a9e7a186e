package cli

import "errors"

var ErrBadFlag = errors.New("cli: invalid flag value")
