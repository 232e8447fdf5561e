package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/FHSS-Web-Team/citation-lab/cmd/citelab/commands"
	"github.com/FHSS-Web-Team/citation-lab/cmd/citelab/internal/config"
)

// Version information (can be overridden at build time with -ldflags)
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error

	switch command {
	case "parse":
		err = commands.Parse(args)
	case "compile":
		err = commands.Compile(args)
	case "preview":
		err = commands.Preview(args)
	case "serve":
		var cfg *config.Config
		cfg, err = config.LoadConfig()
		if err == nil {
			err = commands.Serve(args, cfg)
		}
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("citelab version %s\n", version)
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Printf("go: %s\n", info.GoVersion)
	}
}

func printUsage() {
	fmt.Println(`citelab - citation template structural compiler

Usage:
  citelab parse [source]     Parse a template and print its part tree
  citelab compile [source]   Print a template's compiled renderer form
  citelab preview [source]   Render every variable subset with sample values
  citelab serve [addr]       Host the live editing endpoint
  citelab version            Print version information
  citelab help               Show this help

With no source argument, parse, compile and preview read from stdin.
Server settings live in ~/.config/citelab/config.yaml.`)
}
