package v1

import "errors"

var errTypeAssertMismatch = errors.New("type assertion mismatch")
