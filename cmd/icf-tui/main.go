package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/icf/pkg/icf"
	"github.com/dd0wney/icf/pkg/logging"
)

func main() {
	mapped := flag.Bool("mmap", false, "Read through a memory mapping")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: icf-tui [-mmap] <container>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	// The terminal belongs to the UI; container logs are dropped.
	opts := []icf.Option{icf.WithReadOnly(), icf.WithLogger(logging.NewNopLogger())}
	if *mapped {
		opts = append(opts, icf.WithMappedReads())
	}
	open := func() (*icf.Container, error) {
		return icf.Open(path, icf.ModeRead, opts...)
	}

	c, err := open()
	if err != nil {
		log.Fatalf("Failed to open container: %v", err)
	}
	c.Close()

	p := tea.NewProgram(initialModel(open), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
