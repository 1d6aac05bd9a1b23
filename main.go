// main is the entry point for the depdive CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/depdive/cmd"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)

	err := cmd.Execute()

	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseStores()

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
