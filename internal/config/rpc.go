package config

import (
	"errors"
	"os"
)

type RPCConfig struct {
	RPCUrl string

	// SignerKey is the base58-encoded private key of the selling wallet. It
	// is only ever used for local signing.
	SignerKey string
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.SignerKey = os.Getenv("WALLET_PRIVATE_KEY")
	return r.Validate()
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config")
	}
	if r.SignerKey == "" {
		return errors.New("WALLET_PRIVATE_KEY is required")
	}
	return nil
}
