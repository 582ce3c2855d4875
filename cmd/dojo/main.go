package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

const defaultDaemonAddr = "http://127.0.0.1:8080"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "status":
		err = cmdStatus(newClient())
	case "topics":
		err = cmdTopics(newClient(), os.Args[2:])
	case "topic":
		err = cmdTopic(newClient(), os.Args[2:])
	case "question":
		err = cmdQuestion(newClient(), os.Args[2:])
	case "ask":
		err = cmdAsk(newClient(), os.Args[2:])
	case "run":
		err = cmdRun(newClient(), os.Args[2:])
	case "events":
		err = cmdEvents(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("dojo %s\n", Version)
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
	fmt.Println(`Code Dojo - practice problems with an AI tutor

Usage:
  dojo <command> [arguments]

Practice Commands:
  topics [--questions]              List topics
  topic <title>                     Show a topic and its questions
  question <id> [--language l]      Show a question with starter code
           [--reveal]               Include the answer
  ask [flags] <question...>         Ask the tutor for a hint
  run [--language l] <file>         Run a file through the daemon

Daemon Commands:
  status                            Show daemon status

Integration Commands:
  events                            Tail execution events (needs RABBITMQ_URL)
  mcp [--http addr]                 Start MCP server on stdio (or HTTP)

Other:
  help                              Show this help message
  version                           Show version information

Environment:
  DOJO_ADDR   daemon address (default http://127.0.0.1:8080)

Examples:
  dojo topics --questions
  dojo question 3 --language go
  dojo ask --question 3 --file solve.py "why is my loop off by one?"
  dojo run solve.py`)
}
