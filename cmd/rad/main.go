package main

import (
	"flag"
	"fmt"
	"os"
	"rad/internal/di"
	"rad/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "enable debug logging")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "rad: %s\n", err)
		os.Exit(1)
	}
}
