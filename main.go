package main

import (
	"github.com/phamanhtuan-coder/homeconnect-api-ws/cmd"
)

func main() {
	cmd.Execute()
}
