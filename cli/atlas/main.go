package main

import (
	"os"

	atlascmder "github.com/canvaslab/atlas/cmd/atlas"
)

func main() {
	cmd := atlascmder.NewAtlasCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
