package main

import (
	"os"

	"topmovers.com/cmd/topstocks/commands"
)

// 统一入口: go run ./cmd/topstocks [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
