package repository

import "errors"

// ErrNotFound distinguishes "no such record" from operational failures so
// callers can map it to a 404 instead of a 500.
var ErrNotFound = errors.New("record not found")
