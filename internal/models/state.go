package models

// Состояния процессора ликвидаций
//
// Starting - начальное состояние после создания, данных ещё нет.
// Healthy - хотя бы один проход оценки завершился успешным внешним вызовом.
// Unhealthy - подряд идущие проходы падают; супервизор пересоздаёт подписки.
// Процессор из Unhealthy не выходит сам - он восстанавливаемый, не терминальный.
const (
	StateStarting  = "STARTING"
	StateHealthy   = "HEALTHY"
	StateUnhealthy = "UNHEALTHY"
)

// RiskBucket - категория риска аккаунта
//
// Выводится заново из пары (снимок аккаунта, снимок цен) на каждом проходе,
// никогда не персистится отдельно.
type RiskBucket string

const (
	// RiskHealthy - обеспеченность выше порога
	RiskHealthy RiskBucket = "HEALTHY"

	// RiskRipe - коэффициент обеспеченности пробил порог ликвидации
	RiskRipe RiskBucket = "RIPE"

	// RiskInFlight - попытка ликвидации отправлена и ещё не разрешилась.
	// Пока аккаунт InFlight, повторная отправка запрещена, даже если
	// на следующем проходе он всё ещё Ripe.
	RiskInFlight RiskBucket = "IN_FLIGHT"

	// RiskUnknown - цены покрывают не все ненулевые балансы аккаунта.
	// Корректность важнее полноты: на неполных данных не ликвидируем.
	RiskUnknown RiskBucket = "UNKNOWN"
)
