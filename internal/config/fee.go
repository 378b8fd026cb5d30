package config

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var lamportsPerSol = decimal.NewFromInt(1_000_000_000)

// FeeConfig controls the best-effort service fee transfer that follows a
// confirmed swap. All amounts are SOL-denominated and held as lamports.
type FeeConfig struct {
	// FeeRateBps applied to the swap input amount, e.g. 10 = 0.1%.
	FeeRateBps uint16

	// MinFeeLamports is the absolute fee floor.
	MinFeeLamports uint64

	// NetworkFeeBufferLamports is the headroom the signer must hold on top of
	// the fee itself before a transfer is attempted.
	NetworkFeeBufferLamports uint64

	CollectorAddress solana.PublicKey

	MaxRetries int
}

func (fc *FeeConfig) Load() error {
	fc.FeeRateBps = uint16(getEnvOrDefaultInt("FEE_RATE_BPS", 10))

	minFloor, err := decimal.NewFromString(getEnvOrDefault("MIN_FEE_SOL", "0.0001"))
	if err != nil {
		return err
	}
	fc.MinFeeLamports = uint64(minFloor.Mul(lamportsPerSol).IntPart())

	buffer, err := decimal.NewFromString(getEnvOrDefault("NETWORK_FEE_BUFFER_SOL", "0.00001"))
	if err != nil {
		return err
	}
	fc.NetworkFeeBufferLamports = uint64(buffer.Mul(lamportsPerSol).IntPart())

	collector := getEnvOrDefault("FEE_COLLECTOR_ADDRESS", "")
	if collector != "" {
		pk, err := solana.PublicKeyFromBase58(collector)
		if err != nil {
			return err
		}
		fc.CollectorAddress = pk
	}

	fc.MaxRetries = getEnvOrDefaultInt("FEE_MAX_RETRIES", 3)
	return fc.Validate()
}

func (fc *FeeConfig) Validate() error {
	if fc.FeeRateBps > 10000 {
		return errors.New("FEE_RATE_BPS cannot exceed 10000")
	}
	if fc.CollectorAddress.IsZero() {
		return errors.New("FEE_COLLECTOR_ADDRESS is required")
	}
	if fc.MaxRetries < 0 {
		return errors.New("FEE_MAX_RETRIES must be >= 0")
	}
	return nil
}
