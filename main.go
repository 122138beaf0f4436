package main

import (
	"fmt"
	"os"
	"strings"

	"spacetraveling/service"
)

const CliVersion = "1.0.0"

var exit = os.Exit

var commands = map[string]bool{
	"serve": true,
	"build": true,
	"pages": true,
	"posts": true,
	"post":  true,
}

func main() {
	RealMain()
}

func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	cmd := strings.ToLower(os.Args[1])
	switch {
	case cmd == "help":
		printHelp()
	case cmd == "version":
		fmt.Printf("spacetraveling version %s\n", CliVersion)
	case commands[cmd]:
		exit(service.HandleCommand(os.Args[1:]))
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		exit(1)
	}
}

func printHelp() {
	helpText := `Usage: spacetraveling <command> [options]

A blog front end for posts kept in a Prismic repository.

Commands:
  help                           Display this help message.
  version                        Show version information.
  serve                          Build the configured post pages and run the blog server.
  build                          Build post pages into the page store.
  pages list|clean|backup        Manage the page store.
  pages restore <file>           Restore the page store from a backup.
  posts [--all]                  Print the home page list.
  post <slug>                    Print a single post with its reading time.

Configuration is read from config.yaml and .env in the working directory or
one of its parents. PRISMIC_API_ENDPOINT and PRISMIC_ACCESS_TOKEN override
the content settings.
`
	fmt.Println(helpText)
}
