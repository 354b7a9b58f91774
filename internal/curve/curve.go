package curve

import (
	"math"
	"math/big"
	"sync"
)

// Reserve products routinely exceed 64-bit range, so every intermediate
// runs through big.Int. Pooled to keep the hot trade path allocation-free.
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0)
	int128Pool.Put(v)
}

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// saturate clamps a big.Int result back into uint64 range. Values past the
// type maximum saturate instead of overflow-wrapping.
func saturate(v *big.Int) uint64 {
	if v.Sign() <= 0 {
		return 0
	}
	if v.Cmp(maxUint64) > 0 {
		return math.MaxUint64
	}
	return v.Uint64()
}

// Price returns the spot price virtualBase/virtualToken (truncating),
// or 0 when the token reserve is empty.
func Price(virtualBase, virtualToken uint64) uint64 {
	if virtualToken == 0 {
		return 0
	}
	return virtualBase / virtualToken
}

// BuyTokensOut returns the tokens minted for a fixed base-currency input,
// holding k = virtualBase * virtualToken constant:
//
//	tokensOut = virtualToken - k/(virtualBase + baseIn)
//	          = virtualToken * baseIn / (virtualBase + baseIn)
//
// The single truncating division of the second form biases token output
// downward (protocol-favorable), never upward.
func BuyTokensOut(virtualBase, virtualToken, baseIn uint64) uint64 {
	if baseIn == 0 || virtualToken == 0 {
		return 0
	}

	num := getInt128()
	den := getInt128()
	defer putInt128(num)
	defer putInt128(den)

	num.SetUint64(virtualToken)
	num.Mul(num, new(big.Int).SetUint64(baseIn))

	den.SetUint64(virtualBase)
	den.Add(den, new(big.Int).SetUint64(baseIn))

	num.Quo(num, den)
	return saturate(num)
}

// SellBaseOut returns the base currency paid out for selling tokenIn back
// into the curve:
//
//	baseOut = virtualBase - k/(virtualToken + tokenIn)
//	        = virtualBase * tokenIn / (virtualToken + tokenIn)
//
// Truncation biases the return downward (protocol-favorable).
func SellBaseOut(virtualBase, virtualToken, tokenIn uint64) uint64 {
	if tokenIn == 0 || virtualBase == 0 {
		return 0
	}

	num := getInt128()
	den := getInt128()
	defer putInt128(num)
	defer putInt128(den)

	num.SetUint64(virtualBase)
	num.Mul(num, new(big.Int).SetUint64(tokenIn))

	den.SetUint64(virtualToken)
	den.Add(den, new(big.Int).SetUint64(tokenIn))

	num.Quo(num, den)

	out := saturate(num)
	// Defensive: the payout can never exceed the quoted base reserve.
	if out > virtualBase {
		return 0
	}
	return out
}

// CostToMint returns the minimal base input whose BuyTokensOut is at least
// tokensWanted. Saturates to MaxUint64 when the curve cannot mint that many
// tokens (tokensWanted >= virtualToken).
func CostToMint(virtualBase, virtualToken, tokensWanted uint64) uint64 {
	if tokensWanted == 0 {
		return 0
	}
	if tokensWanted >= virtualToken {
		return math.MaxUint64
	}

	// baseIn = ceil(virtualBase * tokensWanted / (virtualToken - tokensWanted))
	num := getInt128()
	rem := getInt128()
	defer putInt128(num)
	defer putInt128(rem)

	num.SetUint64(virtualBase)
	num.Mul(num, new(big.Int).SetUint64(tokensWanted))

	den := new(big.Int).SetUint64(virtualToken - tokensWanted)
	num.QuoRem(num, den, rem)
	if rem.Sign() != 0 {
		num.Add(num, big.NewInt(1))
	}

	return saturate(num)
}

// KNotDecreased reports whether the constant product of the new reserves is
// at least that of the old reserves. Compared in double-width arithmetic.
func KNotDecreased(oldBase, oldToken, newBase, newToken uint64) bool {
	oldK := getInt128()
	newK := getInt128()
	defer putInt128(oldK)
	defer putInt128(newK)

	oldK.SetUint64(oldBase)
	oldK.Mul(oldK, new(big.Int).SetUint64(oldToken))

	newK.SetUint64(newBase)
	newK.Mul(newK, new(big.Int).SetUint64(newToken))

	return newK.Cmp(oldK) >= 0
}
