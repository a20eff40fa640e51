package scanner

import "errors"

var errFileTooLarge = errors.New("file exceeds maximum indexable size")
