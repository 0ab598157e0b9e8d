// Пакет approval — конечный автомат статусов подписи.
//
// Жизненный цикл: pending → signed (accept) | pending → rejected (reject).
// Терминальные статусы неизменяемы: переход signed ↔ rejected запрещён.
// Повтор того же терминального статуса допускается как идемпотентный
// (повторный accept уже подписанной подписи — no-op, не ошибка).
package approval

import "fmt"

// Status — статус подписи.
type Status string

const (
	// StatusPending — подпись размещена, ожидает решения подписанта
	StatusPending Status = "pending"
	// StatusSigned — подписант принял подпись
	StatusSigned Status = "signed"
	// StatusRejected — подписант отклонил подпись (с причиной)
	StatusRejected Status = "rejected"
)

// validTransitions — матрица допустимых переходов.
// Ключ — текущий статус, значение — набор допустимых целевых статусов.
// Повтор терминального статуса помечен отдельно как идемпотентный.
var validTransitions = map[Status]map[Status]bool{
	StatusPending:  {StatusSigned: true, StatusRejected: true},
	StatusSigned:   {StatusSigned: true},
	StatusRejected: {StatusRejected: true},
}

// TransitionError — ошибка недопустимого перехода.
type TransitionError struct {
	Code string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход статуса: %s → %s", e.From, e.To)
}

// Valid сообщает, является ли s известным статусом.
func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusSigned, StatusRejected:
		return true
	}
	return false
}

// Terminal сообщает, является ли статус терминальным.
func Terminal(s Status) bool {
	return s == StatusSigned || s == StatusRejected
}

// CanTransition проверяет, допустим ли переход from → to.
func CanTransition(from, to Status) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Transition валидирует переход from → to.
// Возвращает *TransitionError с кодом INVALID_TRANSITION при нарушении
// матрицы и INVALID_STATUS при неизвестном статусе.
func Transition(from, to Status) error {
	if !Valid(from) {
		return &TransitionError{Code: "INVALID_STATUS", From: from, To: to}
	}
	if !Valid(to) {
		return &TransitionError{Code: "INVALID_STATUS", From: from, To: to}
	}
	if !CanTransition(from, to) {
		return &TransitionError{Code: "INVALID_TRANSITION", From: from, To: to}
	}
	return nil
}

// Idempotent сообщает, является ли переход from → to повтором
// уже достигнутого терминального статуса.
func Idempotent(from, to Status) bool {
	return Terminal(from) && from == to
}
