package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sophialabs/scopecore/internal/infrastructure/inbound/tui"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/apiclient"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "scope API base URL")
	interval := flag.Duration("interval", 50*time.Millisecond, "frame polling interval")
	flag.Parse()

	client := apiclient.New(*addr, 2*time.Second)
	program := tea.NewProgram(tui.NewModel(client, *interval), tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
