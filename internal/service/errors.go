// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — операция запрещена для данного пользователя.
	ErrForbidden = errors.New("операция запрещена")
	// ErrTransition — недопустимый переход статуса подписи.
	ErrTransition = errors.New("недопустимый переход статуса")
	// ErrInviteInvalid — приглашение некорректно или просрочено.
	ErrInviteInvalid = errors.New("приглашение некорректно или просрочено")
)
