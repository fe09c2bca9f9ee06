package main

import "github.com/okian/pitchside/internal/cli"

func main() {
	cli.Execute()
}
