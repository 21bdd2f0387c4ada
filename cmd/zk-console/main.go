// Command zk-console is an interactive console for a single ZK
// fingerprint scanner. It exists for bench work: verifying a scanner
// answers on the network, inspecting its user table, test-enrolling a
// finger, and watching the live capture stream, all without running the
// coordinator daemon.
//
// Usage:
//
//	zk-console [flags]
//
// Flags:
//
//	-addr string      Scanner address (default "192.168.1.201:4370")
//	-comm-key uint    Device communication password (0 = unset)
//	-timeout duration Connect timeout (default 10s)
//	-trace string     Write a protocol trace to this file
//
// Commands:
//
//	connect [addr]  - Connect to the scanner
//	disconnect      - Close the session
//	info            - Firmware version and record capacity
//	users           - List the scanner's user table
//	enroll <uid> [name] - Test-enroll a finger for uid
//	template <uid>  - Read back the stored template for uid
//	delete <uid>    - Delete a user and their templates
//	identify        - Wait for one finger press and name the match
//	monitor         - Stream live capture events until Enter
//	test            - Dial and close, connectivity check only
//	quit            - Exit
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/attendd/attendd/pkg/prototrace"
	"github.com/attendd/attendd/pkg/zk"
)

var opts struct {
	addr      string
	commKey   uint
	timeout   time.Duration
	tracePath string
}

func init() {
	flag.StringVar(&opts.addr, "addr", "192.168.1.201:4370", "Scanner address")
	flag.UintVar(&opts.commKey, "comm-key", 0, "Device communication password (0 = unset)")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Connect timeout")
	flag.StringVar(&opts.tracePath, "trace", "", "Write a protocol trace to this file")
}

// console holds the session state for the command loop.
type console struct {
	driver zk.Driver
	conn   zk.Conn
	addr   string
	rl     *readline.Instance
}

func main() {
	flag.Parse()

	var tracer prototrace.Logger
	if opts.tracePath != "" {
		fl, err := prototrace.NewFileLogger(opts.tracePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trace file: %v\n", err)
			os.Exit(1)
		}
		defer fl.Close()
		tracer = fl
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "zk> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	c := &console{
		driver: zk.NewTCPDriver(zk.Options{CommKey: uint32(opts.commKey), Tracer: tracer}),
		addr:   opts.addr,
		rl:     rl,
	}
	defer c.disconnect()

	c.printHelp()
	c.run()
}

func (c *console) out() io.Writer { return c.rl.Stdout() }

func (c *console) run() {
	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect", "c":
			c.cmdConnect(args)

		case "disconnect", "d":
			c.disconnect()

		case "info", "i":
			c.cmdInfo()

		case "users", "u":
			c.cmdUsers()

		case "enroll", "e":
			c.cmdEnroll(args)

		case "template", "t":
			c.cmdTemplate(args)

		case "delete":
			c.cmdDelete(args)

		case "identify", "id":
			c.cmdIdentify()

		case "monitor", "m":
			c.cmdMonitor()

		case "test":
			c.cmdTest()

		case "quit", "exit", "q":
			fmt.Fprintln(c.out(), "Exiting...")
			return

		default:
			fmt.Fprintf(c.out(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *console) printHelp() {
	fmt.Fprint(c.out(), `Commands:
  connect [addr]      - Connect to the scanner
  disconnect          - Close the session
  info                - Firmware version and record capacity
  users               - List the scanner's user table
  enroll <uid> [name] - Test-enroll a finger for uid
  template <uid>      - Read back the stored template for uid
  delete <uid>        - Delete a user and their templates
  identify            - Wait for one finger press and name the match
  monitor             - Stream live capture events until Enter
  test                - Dial and close, connectivity check only
  quit                - Exit
`)
}

// connected ensures a live session before command work.
func (c *console) connected() bool {
	if c.conn == nil {
		fmt.Fprintln(c.out(), "Not connected (use 'connect')")
		return false
	}
	return true
}

func (c *console) cmdConnect(args []string) {
	if c.conn != nil {
		fmt.Fprintf(c.out(), "Already connected to %s\n", c.conn.RemoteAddr())
		return
	}
	if len(args) > 0 {
		c.addr = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	fmt.Fprintf(c.out(), "Connecting to %s...\n", c.addr)
	conn, err := c.driver.Connect(ctx, c.addr, opts.timeout)
	if err != nil {
		fmt.Fprintf(c.out(), "Connect failed: %v\n", err)
		return
	}
	c.conn = conn
	fmt.Fprintln(c.out(), "Connected")
}

func (c *console) disconnect() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		fmt.Fprintf(c.out(), "Close: %v\n", err)
	}
	c.conn = nil
	fmt.Fprintln(c.out(), "Disconnected")
}

func (c *console) cmdInfo() {
	if !c.connected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	version, err := c.conn.Version(ctx)
	if err != nil {
		fmt.Fprintf(c.out(), "Version: %v\n", err)
	} else {
		fmt.Fprintf(c.out(), "Firmware: %s\n", version)
	}

	usage, err := c.conn.Capacity(ctx)
	if err != nil {
		fmt.Fprintf(c.out(), "Capacity: %v\n", err)
		return
	}
	fmt.Fprintf(c.out(), "Users: %d/%d  Fingers: %d/%d  Records: %d/%d\n",
		usage.Users, usage.UsersCap, usage.Fingers, usage.FingersCap, usage.Records, usage.RecordsCap)
}

func (c *console) cmdUsers() {
	if !c.connected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	users, err := c.conn.Users(ctx)
	if err != nil {
		fmt.Fprintf(c.out(), "Users: %v\n", err)
		return
	}
	if len(users) == 0 {
		fmt.Fprintln(c.out(), "No users on device")
		return
	}
	for _, u := range users {
		fmt.Fprintf(c.out(), "  uid=%-6d user_id=%-10s name=%s\n", u.UID, u.UserID, u.Name)
	}
	fmt.Fprintf(c.out(), "%d users\n", len(users))
}

func parseUID(args []string) (uint16, bool) {
	if len(args) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 || n > 65535 {
		return 0, false
	}
	return uint16(n), true
}

func (c *console) cmdEnroll(args []string) {
	if !c.connected() {
		return
	}
	uid, ok := parseUID(args)
	if !ok {
		fmt.Fprintln(c.out(), "Usage: enroll <uid> [name]")
		return
	}
	name := "Test User"
	if len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := c.conn.Disable(ctx); err != nil {
		fmt.Fprintf(c.out(), "Disable: %v\n", err)
		return
	}
	defer func() {
		if err := c.conn.Enable(context.Background()); err != nil {
			fmt.Fprintf(c.out(), "Enable: %v\n", err)
		}
	}()

	user := zk.User{UID: uid, Name: name, UserID: strconv.Itoa(int(uid))}
	if err := c.conn.SetUser(ctx, user); err != nil {
		fmt.Fprintf(c.out(), "SetUser: %v\n", err)
		return
	}

	fmt.Fprintln(c.out(), "Press the finger on the scanner (three times)...")
	tpl, err := c.conn.Enroll(ctx, uid, 0)
	if err != nil {
		fmt.Fprintf(c.out(), "Enroll: %v\n", err)
		return
	}
	if tpl == nil {
		if tpl, err = c.conn.UserTemplate(ctx, uid, 0); err != nil || tpl == nil {
			fmt.Fprintf(c.out(), "Enrolled, but no template readable: %v\n", err)
			return
		}
	}
	fmt.Fprintf(c.out(), "Enrolled uid=%d, template %d bytes\n", uid, len(tpl.Data))
}

func (c *console) cmdTemplate(args []string) {
	if !c.connected() {
		return
	}
	uid, ok := parseUID(args)
	if !ok {
		fmt.Fprintln(c.out(), "Usage: template <uid>")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	tpl, err := c.conn.UserTemplate(ctx, uid, 0)
	if err != nil {
		fmt.Fprintf(c.out(), "UserTemplate: %v\n", err)
		return
	}
	if tpl == nil {
		fmt.Fprintf(c.out(), "No template stored for uid=%d\n", uid)
		return
	}
	encoded := base64.StdEncoding.EncodeToString(tpl.Data)
	if len(encoded) > 60 {
		encoded = encoded[:60] + "..."
	}
	fmt.Fprintf(c.out(), "uid=%d finger=%d %d bytes\n  %s\n", tpl.UID, tpl.Finger, len(tpl.Data), encoded)
}

func (c *console) cmdDelete(args []string) {
	if !c.connected() {
		return
	}
	uid, ok := parseUID(args)
	if !ok {
		fmt.Fprintln(c.out(), "Usage: delete <uid>")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := c.conn.DeleteUser(ctx, uid); err != nil {
		fmt.Fprintf(c.out(), "DeleteUser: %v\n", err)
		return
	}
	fmt.Fprintf(c.out(), "Deleted uid=%d\n", uid)
}

func (c *console) cmdIdentify() {
	if !c.connected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Fprintln(c.out(), "Press a finger on the scanner...")
	user, err := c.conn.Identify(ctx)
	if err != nil {
		fmt.Fprintf(c.out(), "Identify: %v\n", err)
		return
	}
	if user == nil {
		fmt.Fprintln(c.out(), "No finger within the wait window")
		return
	}
	fmt.Fprintf(c.out(), "Matched uid=%d user_id=%s name=%s\n", user.UID, user.UserID, user.Name)
}

// cmdMonitor streams capture events until the operator presses Enter.
// The live stream owns the session, so the console disconnects after
// the stream ends.
func (c *console) cmdMonitor() {
	if !c.connected() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.conn.LiveCapture(ctx)
	if err != nil {
		cancel()
		fmt.Fprintf(c.out(), "LiveCapture: %v\n", err)
		return
	}

	fmt.Fprintln(c.out(), "Monitoring captures, press Enter to stop...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			fmt.Fprintf(c.out(), "  CAPTURE uid=%d user_id=%s at %s\n",
				ev.UID, ev.UserID, ev.Timestamp.Format(time.RFC3339))
		}
	}()

	_, _ = c.rl.Readline()
	cancel()
	<-done

	c.disconnect()
	fmt.Fprintln(c.out(), "Monitor stopped (reconnect to continue)")
}

func (c *console) cmdTest() {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.driver.Connect(ctx, c.addr, opts.timeout)
	if err != nil {
		fmt.Fprintf(c.out(), "FAIL %s: %v\n", c.addr, err)
		return
	}
	_ = conn.Close()
	fmt.Fprintf(c.out(), "OK %s (%s)\n", c.addr, time.Since(start).Round(time.Millisecond))
}
