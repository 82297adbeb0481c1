// Command oftenctl is the gateway's operator CLI (C15): account inspection,
// transaction tailing, and admin deposits, all driven over HTTP against a
// running gateway instance.
package main

import (
	"fmt"
	"os"

	"github.com/oftenai/often-gateway/cmd/oftenctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
