package common

const (
	// WSOLMint is the wrapped SOL mint; every sale quotes into it.
	WSOLMint = "So11111111111111111111111111111111111111112"

	// SolAsset is the only asset service fees are collected in.
	SolAsset = "SOL"
)
