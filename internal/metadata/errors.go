package metadata

import "errors"

// Declaration-time errors. They are returned while models are being defined
// and are expected to abort startup.
var (
	ErrInvalidName    = errors.New("model must specify a name")
	ErrDuplicateName  = errors.New("model with this name already exists")
	ErrInvalidBase    = errors.New("specified base is not a model of this registry")
	ErrInvalidFields  = errors.New("model fields not a mapping")
	ErrEmptyModel     = errors.New("model defined without any fields")
	ErrInvalidField   = errors.New("field descriptor not a mapping")
	ErrMissingType    = errors.New("no type specified for field")
	ErrInvalidTitle   = errors.New("invalid title expression")
	ErrRegistryFrozen = errors.New("registry is frozen")
)
