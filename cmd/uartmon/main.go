package main

import (
	"github.com/robotalks/uartrand/pkg/cli/mon"
	"github.com/robotalks/uartrand/pkg/uart"
)

func init() {
	uart.SetupFlags()
}

func main() {
	mon.Main()
}
