package uow

import "errors"

var (
	ErrRepositoryNotRegistered     = errors.New("[uow] repository not registered")
	ErrRepositoryAlreadyRegistered = errors.New("[uow] repository already registered")
	ErrNilRepositoryFactory        = errors.New("[uow] repository factory is nil")
	ErrInvalidRepositoryType       = errors.New("[uow] invalid repository type")
	ErrInvalidLockTimeout          = errors.New("[uow] lock timeout must not be negative")
)
