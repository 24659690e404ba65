package main

import (
	"fmt"
	"io"
	"os"
)

const version = "1.0.0"

type command struct {
	name  string
	short string
	run   func(args []string, stdin io.Reader, stdout io.Writer) error
}

var commands = []command{
	{"create", "Create an empty container", runCreate},
	{"append", "Append files to a container, one record per file", runAppend},
	{"capture", "Append records read from stdin", runCapture},
	{"info", "Show the header and statistics of a container", runInfo},
	{"dump", "List records with sizes and a hex preview", runDump},
	{"cat", "Write raw record bytes to stdout", runCat},
	{"verify", "Read every record and report recovery problems", runVerify},
	{"archive", "Upload containers to S3", runArchive},
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return
	case "version", "--version", "-v":
		fmt.Printf("icf %s\n", version)
		return
	}

	for _, cmd := range commands {
		if cmd.name == name {
			if err := cmd.run(os.Args[2:], os.Stdin, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "icf %s: %v\n", name, err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
	printUsage(os.Stderr)
	os.Exit(1)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `icf - indexed container format tool

Usage:
  icf <command> [options] <container> [args]

Available Commands:
`)
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprint(w, `  help       Show this help message
  version    Show version information

Every command accepts -config <file.yaml>; ICF_CONFIG sets the default.
Use "icf <command> -h" for the options of a command.
`)
}
