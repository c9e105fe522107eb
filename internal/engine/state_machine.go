package engine

import "liquidator/internal/models"

// ValidTransitions определяет допустимые переходы между состояниями процессора
var ValidTransitions = map[string][]string{
	models.StateStarting:  {models.StateHealthy, models.StateUnhealthy},
	models.StateHealthy:   {models.StateUnhealthy},
	models.StateUnhealthy: {models.StateStarting}, // восстановление только через пересоздание подписок
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для API/UI
func StateInfo(s string) string {
	switch s {
	case models.StateStarting:
		return "Процессор запущен, данные ещё не получены"
	case models.StateHealthy:
		return "Процессор работает, данные свежие"
	case models.StateUnhealthy:
		return "Подряд идущие отказы фетча - требуется пересоздание подписок"
	default:
		return "Неизвестное состояние"
	}
}
