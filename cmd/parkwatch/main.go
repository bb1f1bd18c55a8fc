package main

import (
	"parkwatch/cmd/parkwatch/commands"
	"parkwatch/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
