package main

import (
	"os"

	"github.com/albertocavalcante/wgslinc/internal/cmd/wgslinc"
)

func main() {
	os.Exit(wgslinc.Run(os.Args[1:]))
}
