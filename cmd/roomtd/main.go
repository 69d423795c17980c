package main

import (
	"github.com/Rajput-xv/room-T-D/internal/cli"
	"github.com/Rajput-xv/room-T-D/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
