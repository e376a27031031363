// Command b64ctl is the battle64 operator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/okian/battle64/internal/ctl"
)

func main() {
	if err := ctl.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
