package chain

import "errors"

// Ожидаемые on-chain отказы ликвидации
//
// Такие ошибки - нормальные исходы гонки с другими ликвидаторами или
// движением цен, а не сбои процессора: аккаунт останется в наборе и будет
// переоценён на следующем проходе со свежими данными.
var (
	// ErrInsufficientLiquidity - на рынке не хватает ликвидности для сделки
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrStaleAccount - аккаунт изменился между снимком и отправкой
	// (например, его уже ликвидировал конкурент)
	ErrStaleAccount = errors.New("stale account state")

	// ErrOracleUnavailable - оракул временно не отдаёт цену
	ErrOracleUnavailable = errors.New("oracle unavailable")
)

// IsExpectedFailure возвращает true для ожидаемых on-chain отказов
func IsExpectedFailure(err error) bool {
	return errors.Is(err, ErrInsufficientLiquidity) ||
		errors.Is(err, ErrStaleAccount) ||
		errors.Is(err, ErrOracleUnavailable)
}
