package tx

// EstimateTxFee returns the minimum fee for a transaction with the given
// number of inputs and outputs at the given fee rate (base units per byte).
//
// The estimate counts these parts of the SigningBytes layout (which excludes
// signatures):
//
//	version(4) + inputCount(4) + inputs(36*n) + outputCount(4) + outputs(perOut*n) + locktime(8)
//
// It does not count the type byte, burn amount, fee and extra-length fields
// (21 bytes) that SigningBytes also writes, so it is below RequiredFee for
// the same transaction.
//
// By default, perOutput = 33 (8 value + 1 type + 4 len + 20 P2PKH addr).
// Pass an optional extraOutputBytes to add extra bytes per output (e.g., 13
// for stake outputs with 33-byte pubkeys, or 40 for token data per output).
func EstimateTxFee(numInputs, numOutputs int, feeRate uint64, extraOutputBytes ...int) uint64 {
	const overhead = 4 + 4 + 4 + 8   // version + inputCount + outputCount + locktime
	const perInput = 32 + 4           // txID + index
	const perOutput = 8 + 1 + 4 + 20 // value + scriptType + scriptDataLen + P2PKH addr

	extra := 0
	if len(extraOutputBytes) > 0 {
		extra = extraOutputBytes[0]
	}

	size := overhead + perInput*numInputs + (perOutput+extra)*numOutputs
	return uint64(size) * feeRate
}

// RequiredFee returns the exact minimum fee for a fully built transaction
// at the given fee rate (base units per byte of SigningBytes). This is more
// accurate than EstimateTxFee for transactions with non-standard outputs
// (stake, registration, token).
func RequiredFee(transaction *Transaction, feeRate uint64) uint64 {
	return uint64(len(transaction.SigningBytes())) * feeRate
}

// EffectiveFee returns the fee counted toward the minimum-fee requirement:
// the stated fee minus any burned amount. A transaction may burn coins
// (permanently destroying them, e.g. to fund name-system registration)
// instead of paying them as miner fee, but the burn does not itself count
// toward the required minimum.
func EffectiveFee(statedFee, burnAmount uint64) uint64 {
	if burnAmount >= statedFee {
		return 0
	}
	return statedFee - burnAmount
}
