package main

import "github.com/qj0r9j0vc2/alarm-engine/cmd/alarm-engine/cmd"

func main() {
	cmd.Execute()
}
