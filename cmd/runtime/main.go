package main

import (
	"context"
	"errors"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/sell-engine/internal/api"
	"github.com/hxuan190/sell-engine/internal/chain"
	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/config"
	"github.com/hxuan190/sell-engine/internal/executor"
	"github.com/hxuan190/sell-engine/internal/fee"
	"github.com/hxuan190/sell-engine/internal/http"
	"github.com/hxuan190/sell-engine/internal/priority"
	"github.com/hxuan190/sell-engine/internal/quote"
	"github.com/hxuan190/sell-engine/internal/seller"
)

func main() {
	// load env
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using process environment")
	}

	generalConf := &config.GeneralConfig{}
	apiConf := &config.APIConfig{}
	tradeConf := &config.TradeConfig{}
	feeConf := &config.FeeConfig{}
	rpcConf := &config.RPCConfig{}
	for _, c := range []interface{ Load() error }{generalConf, apiConf, tradeConf, feeConf, rpcConf} {
		if err := c.Load(); err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}
	}

	common.InitLogger(generalConf.LogLevel, generalConf.Env)

	signer, err := solana.PrivateKeyFromBase58(rpcConf.SignerKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid wallet private key")
	}

	rpcClient := rpc.New(rpcConf.RPCUrl)

	backend := api.NewClient(*apiConf)
	optimizer := quote.NewOptimizer(backend, *tradeConf)
	blockhashCache := chain.NewBlockhashCache(rpcClient)
	feeCalc := priority.NewFeeCalculator(rpcClient)
	collector := fee.NewCollector(rpcClient, blockhashCache, feeCalc, *feeConf)
	exec := executor.New(backend, rpcClient, feeCalc, collector, tradeConf.WrapNativeAsset)
	sell := seller.New(backend, optimizer, exec, *tradeConf, signer)

	ops := http.NewOpsServer(generalConf)
	go func() {
		if err := ops.Start(); err != nil {
			log.Error().Err(err).Msg("ops server exited")
		}
	}()
	defer func() {
		if err := ops.Stop(); err != nil {
			log.Error().Err(err).Msg("ops server shutdown failed")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), generalConf.SessionMaxDuration)
	defer cancel()

	result, err := sell.Run(ctx)
	if err != nil {
		var domainErr *common.Error
		if errors.As(err, &domainErr) && domainErr.Unknown {
			// The transaction may still land. Report it so an operator can
			// check the signature by hand instead of retrying blindly.
			log.Error().
				Str("signature", domainErr.Signature).
				Msg("sell session ended with unknown transaction status")
		} else {
			log.Error().Err(err).Msg("sell session failed")
		}
		os.Exit(1)
	}

	log.Info().
		Str("transactionId", result.TransactionID).
		Str("confirmedBalanceSol", result.ConfirmedBalanceSol.String()).
		Msg("sell session succeeded")
}
