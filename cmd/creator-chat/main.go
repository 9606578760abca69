package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd := "chat"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	flags := parseFlags(args)

	var err error
	switch cmd {
	case "chat":
		err = runChat(flags)
	case "watch":
		err = runWatch(flags, os.Stdout)
	case "send":
		err = runSend(flags, os.Stdout)
	case "encrypt":
		err = runEncrypt(flags, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'creator-chat --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`creator-chat - terminal client for the creator-tools assistant

USAGE:
    creator-chat [COMMAND] [FLAGS]

COMMANDS:
    chat        Open the interactive chat (default)
    send TEXT   Send one message and print the conversation
    watch       Attach to a stream URL and print parts as they change
    encrypt V   Encrypt a config secret with CREATORCHAT_CONFIG_KEY

FLAGS:
    -h, --help          Show this help message
    --config PATH       Config file path (default: ./creator-chat.yaml)
    --chat ID           Conversation id (overrides backend.chat_id)
    --web-search        Enable the web search tool for send
    --url URL           Stream URL for watch
    --id ID             Message id for watch (default: watch)
    --log-level LEVEL   debug, info, warn or error

CONFIGURATION:
    Config file: ./creator-chat.yaml
    Environment: CREATORCHAT_* variables override config

EXAMPLES:
    creator-chat --chat c_123
    creator-chat send --chat c_123 --web-search "latest on the launch?"
    creator-chat watch --url https://api.example.com/stream/m_9
    CREATORCHAT_CONFIG_KEY=... creator-chat encrypt sk-secret`)
}

// cliFlags holds the flags shared by all commands.
type cliFlags struct {
	Config    string
	ChatID    string
	URL       string
	MessageID string
	LogLevel  string
	WebSearch bool
	Args      []string // positional arguments
}

// parseFlags extracts --name value and --name=value flags from args.
// Anything else is kept as a positional argument.
func parseFlags(args []string) cliFlags {
	var flags cliFlags
	str := map[string]*string{
		"--config":    &flags.Config,
		"--chat":      &flags.ChatID,
		"--url":       &flags.URL,
		"--id":        &flags.MessageID,
		"--log-level": &flags.LogLevel,
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--web-search" {
			flags.WebSearch = true
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			if dst, known := str[name]; known {
				*dst = value
				continue
			}
		}
		if dst, known := str[arg]; known && i+1 < len(args) {
			*dst = args[i+1]
			i++
			continue
		}
		flags.Args = append(flags.Args, arg)
	}
	return flags
}

// configPath resolves the config file: --config flag, then
// CREATORCHAT_CONFIG, then ./creator-chat.yaml.
func configPath(flags cliFlags) string {
	if flags.Config != "" {
		return flags.Config
	}
	if p := os.Getenv("CREATORCHAT_CONFIG"); p != "" {
		return p
	}
	return "creator-chat.yaml"
}
