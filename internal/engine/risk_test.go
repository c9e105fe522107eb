package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func snapshotWithBalances(balances ...models.TokenBalance) *models.AccountSnapshot {
	return &models.AccountSnapshot{
		Address:   "acc-1",
		Owner:     "owner-1",
		Balances:  balances,
		Slot:      100,
		FetchedAt: time.Now(),
	}
}

func pricesOf(pairs map[string]string) *models.PriceSnapshot {
	prices := make(map[string]decimal.Decimal, len(pairs))
	for instrument, value := range pairs {
		prices[instrument] = dec(value)
	}
	return &models.PriceSnapshot{Prices: prices, Slot: 100, Timestamp: time.Now()}
}

// TestClassify_RipeWhenRatioBelowThreshold: 100 залога против 90 долга
// при пороге 1.05 дает коэффициент ~1.11 (здоров), при пороге 1.2 - спелый
func TestClassify_RipeWhenRatioBelowThreshold(t *testing.T) {
	account := snapshotWithBalances(models.TokenBalance{
		Instrument: "SOL",
		Deposited:  dec("100"),
		Borrowed:   dec("90"),
	})
	prices := pricesOf(map[string]string{"SOL": "1"})

	c := Classify(account, prices, dec("1.05"))
	if c.Bucket != models.RiskHealthy {
		t.Errorf("ratio 1.11 vs threshold 1.05: bucket = %s, want HEALTHY", c.Bucket)
	}

	c = Classify(account, prices, dec("1.2"))
	if c.Bucket != models.RiskRipe {
		t.Errorf("ratio 1.11 vs threshold 1.2: bucket = %s, want RIPE", c.Bucket)
	}
}

// TestClassify_MissingPriceNeverRipe: отсутствие цены по ненулевому балансу
// дает UNKNOWN, даже если остальные балансы выглядят спелыми
func TestClassify_MissingPriceNeverRipe(t *testing.T) {
	account := snapshotWithBalances(
		models.TokenBalance{Instrument: "SOL", Deposited: dec("1"), Borrowed: dec("100")},
		models.TokenBalance{Instrument: "BONK", Deposited: dec("5"), Borrowed: dec("0")},
	)
	prices := pricesOf(map[string]string{"SOL": "1"}) // BONK без цены

	c := Classify(account, prices, dec("1.05"))
	if c.Bucket != models.RiskUnknown {
		t.Errorf("missing price: bucket = %s, want UNKNOWN", c.Bucket)
	}
}

// TestClassify_ZeroBalanceIgnoresMissingPrice: нулевой баланс не требует цены
func TestClassify_ZeroBalanceIgnoresMissingPrice(t *testing.T) {
	account := snapshotWithBalances(
		models.TokenBalance{Instrument: "SOL", Deposited: dec("100"), Borrowed: dec("50")},
		models.TokenBalance{Instrument: "BONK", Deposited: dec("0"), Borrowed: dec("0")},
	)
	prices := pricesOf(map[string]string{"SOL": "1"})

	c := Classify(account, prices, dec("1.05"))
	if c.Bucket != models.RiskHealthy {
		t.Errorf("zero balance without price: bucket = %s, want HEALTHY", c.Bucket)
	}
}

// TestClassify_NoLiabilitiesAlwaysHealthy: без займов ликвидировать нечего
func TestClassify_NoLiabilitiesAlwaysHealthy(t *testing.T) {
	account := snapshotWithBalances(models.TokenBalance{
		Instrument: "USDC",
		Deposited:  dec("0.0001"),
		Borrowed:   dec("0"),
	})
	prices := pricesOf(map[string]string{"USDC": "1"})

	c := Classify(account, prices, dec("100"))
	if c.Bucket != models.RiskHealthy {
		t.Errorf("no liabilities: bucket = %s, want HEALTHY", c.Bucket)
	}
	if !c.CollateralRatio.IsZero() {
		t.Errorf("no liabilities: ratio = %s, want 0", c.CollateralRatio)
	}
}

// TestClassify_NilInputs проверяет устойчивость к nil
func TestClassify_NilInputs(t *testing.T) {
	prices := pricesOf(map[string]string{"SOL": "1"})

	if c := Classify(nil, prices, dec("1.05")); c.Bucket != models.RiskUnknown {
		t.Errorf("nil account: bucket = %s, want UNKNOWN", c.Bucket)
	}
	if c := Classify(snapshotWithBalances(), nil, dec("1.05")); c.Bucket != models.RiskUnknown {
		t.Errorf("nil prices: bucket = %s, want UNKNOWN", c.Bucket)
	}
}

// TestWorthwhile проверяет фильтр целесообразности
func TestWorthwhile(t *testing.T) {
	tests := []struct {
		name        string
		bucket      models.RiskBucket
		assets      string
		liabilities string
		minNet      string
		want        bool
	}{
		{"ripe above minimum", models.RiskRipe, "100", "90", "5", true},
		{"ripe exactly at minimum", models.RiskRipe, "100", "90", "10", true},
		{"ripe below minimum", models.RiskRipe, "100", "95", "10", false},
		{"ripe underwater", models.RiskRipe, "80", "90", "0", false},
		{"healthy never worthwhile", models.RiskHealthy, "100", "50", "0", false},
		{"unknown never worthwhile", models.RiskUnknown, "100", "90", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classification{
				Bucket:           tt.bucket,
				AssetsValue:      dec(tt.assets),
				LiabilitiesValue: dec(tt.liabilities),
			}
			if got := Worthwhile(c, dec(tt.minNet)); got != tt.want {
				t.Errorf("Worthwhile() = %v, want %v", got, tt.want)
			}
		})
	}
}
