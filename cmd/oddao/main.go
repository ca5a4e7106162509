package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/OmniBazaar/Coin-sub013/app"
)

func main() {
	if err := app.RootCmd().Execute(); err != nil {
		app.ReportFailure(err)
		os.Exit(1)
	}
	os.Exit(0)
}

func init() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
}
