package memstore

import "errors"

var errDuplicate = errors.New("duplicate id")
