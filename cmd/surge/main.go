package main

import (
	"github.com/ahmed-madyan/surge/internal/cli"
)

func main() {
	cli.Execute()
}
