package main

import (
	"github.com/joho/godotenv"

	"github.com/gravitas-games/millworks/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
