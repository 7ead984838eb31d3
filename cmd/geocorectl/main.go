package main

import (
	"os"

	"github.com/kmallmaperez/geocore/cmd/geocorectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
