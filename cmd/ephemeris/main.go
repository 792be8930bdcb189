// Command ephemeris prints the simplified planetary positions for a date
// without running the server.
//
//	ephemeris 15.06.2024 --lat 48.85 --lon 2.35 --format yaml
//	ephemeris token --jd 2451545
//	ephemeris bodies
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
