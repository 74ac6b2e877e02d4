package main

import (
	"os"

	"github.com/NOT-REAL-GAMES/vkbridge/cmd/vkbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
