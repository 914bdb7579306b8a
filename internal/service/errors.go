package service

import "errors"

var (
	// ErrValidation: falta un campo requerido o tiene forma invalida. Nada se persiste.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupportedMedia: tipo de archivo fuera de la lista permitida o tamaño excedido.
	ErrUnsupportedMedia = errors.New("unsupported media")
	// ErrStorage: fallo del almacen o del disco.
	ErrStorage = errors.New("storage failure")

	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
)
