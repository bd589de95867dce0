package main

import (
	"os"

	"github.com/Samicowest/bag-bot/cmd/bagctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
