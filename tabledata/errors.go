package tabledata

import (
	"errors"
)

var ErrSourceNotFound = errors.New("source does not exist")
var ErrSourceNotRecognized = errors.New("source is not a recognized database")
var ErrConnectionNotFound = errors.New("connection is not open")
var ErrTableNotFound = errors.New("table does not exist")
var ErrNilBackend = errors.New("nil backend supplied")
var ErrEmptySource = errors.New("empty source supplied")
