// Command jarvisctl talks to a running jarvisd over its control socket.
//
// Usage:
//
//	jarvisctl say "what time is it"
//	jarvisctl status
//	jarvisctl shutdown
package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"github.com/oppositecube/jarvis/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", "/tmp/jarvisd.sock", "Control socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	msg, err := buildMessage(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jarvisctl:", err)
		usage()
		os.Exit(2)
	}

	resp, err := ipc.Send(*socket, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jarvisctl:", err)
		os.Exit(1)
	}

	if !resp.OK {
		fmt.Fprintln(os.Stderr, "jarvisctl:", resp.Error)
		os.Exit(1)
	}
	if resp.Result != "" {
		fmt.Println(resp.Result)
	}
}

func buildMessage(args []string) (ipc.ControlMessage, error) {
	switch args[0] {
	case "say":
		if len(args) < 2 {
			return ipc.ControlMessage{}, fmt.Errorf("say requires an utterance")
		}
		return ipc.ControlMessage{Cmd: ipc.CmdSay, Arg: strings.Join(args[1:], " ")}, nil

	case "status":
		return ipc.ControlMessage{Cmd: ipc.CmdStatus}, nil

	case "shutdown":
		return ipc.ControlMessage{Cmd: ipc.CmdShutdown}, nil

	default:
		return ipc.ControlMessage{}, fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: jarvisctl [--socket PATH] <command>

commands:
  say <utterance>   dispatch an utterance and print the reply
  status            print daemon status
  shutdown          stop the daemon`)
}
