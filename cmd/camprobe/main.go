// camprobe lists the camera indices that open, so the right --camera value
// can be picked.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-driverwatch/pkg/camera/device"
)

func main() {
	limit := flag.Int("max", 10, "Number of indices to try")
	flag.Parse()

	first, err := device.Probe(*limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v (tried 0-%d)\n", err, *limit-1)
		os.Exit(1)
	}

	fmt.Printf("✅ camera %d available\n", first)
	for i := first + 1; i < *limit; i++ {
		if device.Available(i) {
			fmt.Printf("✅ camera %d available\n", i)
		}
	}
	fmt.Printf("Use --camera %d\n", first)
}
