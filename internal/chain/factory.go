package chain

import "fmt"

// Поддерживаемые драйверы цепочки
//
// "sim" - встроенный симулятор (dry-run, тесты, локальная разработка).
// Драйверы конкретных протоколов регистрируются здесь по мере появления.
const DriverSim = "sim"

// NewReader создает считыватель цепочки для указанного драйвера
func NewReader(driver, endpoint string) (Reader, error) {
	switch driver {
	case DriverSim:
		return NewSimReader(), nil
	default:
		return nil, fmt.Errorf("unknown chain driver: %q", driver)
	}
}

// NewExecutor создает исполнитель сделок для указанного драйвера
func NewExecutor(driver, endpoint string) (Executor, error) {
	switch driver {
	case DriverSim:
		return NewSimExecutor(), nil
	default:
		return nil, fmt.Errorf("unknown chain driver: %q", driver)
	}
}
