package repository

import "errors"

// ErrNotFound is returned when a lookup or replace targets a missing record.
var ErrNotFound = errors.New("record not found")
