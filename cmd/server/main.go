package main

import (
	"wakeel/cmd/cli"
)

func main() {
	cli.Execute()
}
