package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "rehearsed.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "doctor":
		err = cmdDoctor()
	case "config":
		err = cmdConfig()
	case "provider":
		err = cmdProvider(os.Args[2:])
	case "practice":
		err = cmdPractice(os.Args[2:])
	case "questions":
		err = cmdQuestions(os.Args[2:])
	case "events":
		err = cmdEvents(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("rehearse %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Rehearse - Adaptive Mock Interviews

Usage:
  rehearse <command> [arguments]

Setup Commands:
  init              Initialize Rehearse (first-time setup)
  doctor            Check providers, storage and queue
  config            Show current configuration
  provider          Manage LLM providers

Interview Commands:
  practice          Run an interview in the terminal
  questions list    List the question bank
  questions check   Validate a directory of question packs

Daemon Commands:
  start             Start the Rehearse daemon
  stop              Stop the Rehearse daemon
  status            Show daemon status
  logs              View daemon logs

Integration Commands:
  mcp               Start MCP server on stdio
  events            Tail interview events from RabbitMQ

Other:
  help              Show this help message
  version           Show version information

Examples:
  rehearse provider set-key claude                   # Configure Claude API key
  rehearse practice -track general -difficulty hard  # Practice a hard loop
  rehearse questions list -track general             # Browse questions
  rehearse mcp                                       # Serve tools to an MCP client`)
}

// renderProgressBar draws value in [0,1] as a fixed-width bar
func renderProgressBar(value float64, width int) string {
	filled := min(max(int(value*float64(width)), 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
