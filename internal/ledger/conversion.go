package ledger

import "math/big"

// centsScale expresses a USD-price rate in hundredths, per §4.8's
// "practical precision" choice.
const centsScale = 100

// ConvertAmount computes the integer amount of `to` smallest units produced
// by converting `amount` smallest units of `from`, given each currency's
// USD price (fromRateUSD, toRateUSD) and unit-scale factors. All
// arithmetic is carried in math/big so the from_cents * u_to intermediate
// product — which can exceed 2^63 for BTC/ETH-scale unit factors — never
// overflows a machine int, per the spec's explicit ban on floating point
// in this critical path.
//
// converted = (amount * from_cents * u_to) / (u_from * to_cents)
func ConvertAmount(amount int64, from, to Currency, fromRateUSD, toRateUSD float64) int64 {
	fromCents := big.NewInt(int64(fromRateUSD*centsScale + 0.5))
	toCents := big.NewInt(int64(toRateUSD*centsScale + 0.5))

	uFrom := big.NewInt(SmallestUnitPerWhole(from))
	uTo := big.NewInt(SmallestUnitPerWhole(to))

	numerator := new(big.Int).Mul(big.NewInt(amount), fromCents)
	numerator.Mul(numerator, uTo)

	denominator := new(big.Int).Mul(uFrom, toCents)
	if denominator.Sign() == 0 {
		return 0
	}

	result := new(big.Int).Quo(numerator, denominator)
	if !result.IsInt64() {
		return 0
	}
	return result.Int64()
}

// RateUsed reports the from/to USD price ratio recorded on the journal
// entry's metadata, matching §4.8's `rateUsed = rate[from]/rate[to]`.
func RateUsed(fromRateUSD, toRateUSD float64) float64 {
	if toRateUSD == 0 {
		return 0
	}
	return fromRateUSD / toRateUSD
}
