package main

import (
	"os"

	"github.com/nlerner/breslov-rag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
