package main

import (
	"rrcpermits-backend/cmd/permits/commands"
	"rrcpermits-backend/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
