package cache

import "errors"

// ErrTypeMismatch is returned when a cached or shared value is not of the type
// the caller asked for, which means two call sites use one key for different types.
var ErrTypeMismatch = errors.New("cached value has unexpected type")
