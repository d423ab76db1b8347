package main

import (
	"attack-tracker/internal/cli"
)

func main() {
	cli.Execute()
}
