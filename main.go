package main

import (
	"log"

	"github.com/thiagokokada/vizjj-go/cmd"
)

func main() {
	log.SetFlags(0)
	if err := cmd.Run(); err != nil {
		log.Fatalf("vizjj-go: %v", err)
	}
}
