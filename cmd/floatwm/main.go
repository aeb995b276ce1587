package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/floatwm/floatwm/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: floatwm daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: floatwm daemon")
			os.Exit(2)
		}
		runDaemon()
	case "toggle":
		os.Exit(runWindowCommand("toggle", os.Args[2:], func(c *ipc.Client, win uint32) error {
			return c.ToggleFloat(win)
		}))
	case "float":
		os.Exit(runWindowCommand("float", os.Args[2:], func(c *ipc.Client, win uint32) error {
			return c.Float(win)
		}))
	case "unfloat":
		os.Exit(runWindowCommand("unfloat", os.Args[2:], func(c *ipc.Client, win uint32) error {
			return c.Unfloat(win)
		}))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: floatwm <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the window manager (foreground)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  toggle [window]     Toggle floating on a window (default: focused)")
	fmt.Fprintln(w, "  float [window]      Make a window float")
	fmt.Fprintln(w, "  unfloat [window]    Return a window to the tiled layer")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  monitors            List monitors")
	fmt.Fprintln(w, "  reload              Reload configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  help                Show this help")
}

func runWindowCommand(name string, args []string, send func(*ipc.Client, uint32) error) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: floatwm %s [window-id]\n", name)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Window id may be decimal or 0x-hex; omit it to act on the focused window.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "%s takes at most one window id\n", name)
		fs.Usage()
		return 2
	}

	var window uint32
	if fs.NArg() == 1 {
		id, err := strconv.ParseUint(fs.Arg(0), 0, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid window id %q: %v\n", fs.Arg(0), err)
			return 2
		}
		window = uint32(id)
	}

	if err := send(ipc.NewClient(), window); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: floatwm status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:    %v\n", status.DaemonRunning)
	fmt.Printf("window_count:      %d\n", status.WindowCount)
	fmt.Printf("floating_count:    %d\n", status.FloatingCount)
	fmt.Printf("current_workspace: %d\n", status.CurrentWorkspace)
	fmt.Printf("dragging:          %v\n", status.Dragging)
	fmt.Printf("uptime_seconds:    %d\n", status.UptimeSeconds)
	return 0
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: floatwm monitors")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List monitors known to the daemon.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "monitors takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	data, err := client.GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, m := range data.Monitors {
		marker := ""
		if m.Pointer {
			marker = " (pointer)"
		}
		fmt.Printf("%d: %s %dx%d+%d+%d%s\n", m.ID, m.Name, m.Width, m.Height, m.X, m.Y, marker)
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: floatwm reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to reload its configuration.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("configuration reloaded")
	return 0
}
