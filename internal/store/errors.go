package store

import "errors"

var errDuplicateID = errors.New("identifier already used")
