package classify

import "errors"

var ErrBadPattern = errors.New("classify: invalid pattern")
