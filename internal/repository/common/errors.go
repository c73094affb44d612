package common

import "errors"

// Общие ошибки для всех репозиториев
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidInput  = errors.New("invalid input")
	// ErrStateConflict — переход запрошен из недопустимого статуса либо
	// статус изменился конкурентно между чтением и блокировкой строки.
	ErrStateConflict = errors.New("state conflict")
)
