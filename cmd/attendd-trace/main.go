// Command attendd-trace views and analyzes ZK protocol trace files.
//
// Trace files are written by attendd (trace_path in the config) or
// zk-console (-trace flag) while talking to the scanners.
//
// Usage:
//
//	attendd-trace <command> [flags] <file.trace>
//
// Commands:
//
//	view     View trace events in human-readable format
//	filter   Filter a trace and write the matches to a new file
//	stats    Show per-command and per-device statistics
//	export   Export trace events as JSON lines
//
// Examples:
//
//	# View all events
//	attendd-trace view attendd.trace
//
//	# View only pushed capture traffic
//	attendd-trace view -category push attendd.trace
//
//	# Narrow a trace to one scanner
//	attendd-trace filter -device lab-a -o lab-a.trace attendd.trace
//
//	# Per-command breakdown
//	attendd-trace stats attendd.trace
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/attendd/attendd/pkg/prototrace"
	"github.com/attendd/attendd/pkg/zk/zkproto"
)

const usage = `attendd-trace - ZK protocol trace analyzer

Usage:
  attendd-trace <command> [flags] <file.trace>

Commands:
  view     View trace events in human-readable format
  filter   Filter a trace and write the matches to a new file
  stats    Show per-command and per-device statistics
  export   Export trace events as JSON lines

Use "attendd-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "export":
		runExport(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared selection flags and returns a
// builder that assembles the prototrace filter after parsing.
func filterFlags(fs *flag.FlagSet) func() prototrace.Filter {
	device := fs.String("device", "", "Filter by scanner identifier")
	connID := fs.String("conn-id", "", "Filter by connection id")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	layer := fs.String("layer", "", "Filter by layer (transport, packet, driver)")
	category := fs.String("category", "", "Filter by category (message, push, state, error)")

	return func() prototrace.Filter {
		f := prototrace.Filter{DeviceID: *device, ConnectionID: *connID}
		if *direction != "" {
			d, err := parseDirection(*direction)
			if err != nil {
				fatal(err)
			}
			f.Direction = &d
		}
		if *layer != "" {
			l, err := parseLayer(*layer)
			if err != nil {
				fatal(err)
			}
			f.Layer = &l
		}
		if *category != "" {
			c, err := parseCategory(*category)
			if err != nil {
				fatal(err)
			}
			f.Category = &c
		}
		return f
	}
}

func parseDirection(s string) (prototrace.Direction, error) {
	switch s {
	case "in":
		return prototrace.DirectionIn, nil
	case "out":
		return prototrace.DirectionOut, nil
	}
	return 0, fmt.Errorf("unknown direction %q (in, out)", s)
}

func parseLayer(s string) (prototrace.Layer, error) {
	switch s {
	case "transport":
		return prototrace.LayerTransport, nil
	case "packet":
		return prototrace.LayerPacket, nil
	case "driver":
		return prototrace.LayerDriver, nil
	}
	return 0, fmt.Errorf("unknown layer %q (transport, packet, driver)", s)
}

func parseCategory(s string) (prototrace.Category, error) {
	switch s {
	case "message":
		return prototrace.CategoryMessage, nil
	case "push":
		return prototrace.CategoryPush, nil
	case "state":
		return prototrace.CategoryState, nil
	case "error":
		return prototrace.CategoryError, nil
	}
	return 0, fmt.Errorf("unknown category %q (message, push, state, error)", s)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func tracePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	build := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	r, err := prototrace.NewFilteredReader(tracePath(fs), build())
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	count := 0
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal(err)
		}
		printEvent(ev)
		count++
	}
	fmt.Printf("%d events\n", count)
}

func printEvent(ev prototrace.Event) {
	ts := ev.Timestamp.Format("15:04:05.000")
	id := ev.DeviceID
	if id == "" && len(ev.ConnectionID) >= 8 {
		id = ev.ConnectionID[:8]
	}

	switch {
	case ev.Packet != nil:
		fmt.Printf("%s %-8s %-3s %-16s session=%d reply=%d data=%dB\n",
			ts, id, ev.Direction, zkproto.CommandName(ev.Packet.Command),
			ev.Packet.SessionID, ev.Packet.ReplyID, ev.Packet.DataSize)
	case ev.Frame != nil:
		fmt.Printf("%s %-8s %-3s FRAME %dB\n", ts, id, ev.Direction, ev.Frame.Size)
	case ev.StateChange != nil:
		sc := ev.StateChange
		fmt.Printf("%s %-8s     %s %s -> %s %s\n", ts, id, sc.Entity, sc.OldState, sc.NewState, sc.Reason)
	case ev.Error != nil:
		fmt.Printf("%s %-8s     ERROR [%s] %s (%s)\n", ts, id, ev.Error.Layer, ev.Error.Message, ev.Error.Context)
	default:
		fmt.Printf("%s %-8s     %s/%s\n", ts, id, ev.Layer, ev.Category)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	build := filterFlags(fs)
	out := fs.String("o", "", "Output trace file (required)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *out == "" {
		fmt.Fprintln(os.Stderr, "Error: -o output file required")
		os.Exit(1)
	}

	r, err := prototrace.NewFilteredReader(tracePath(fs), build())
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	w, err := prototrace.NewFileLogger(*out)
	if err != nil {
		fatal(err)
	}
	defer w.Close()

	count := 0
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal(err)
		}
		w.Log(ev)
		count++
	}
	fmt.Printf("Wrote %d events to %s\n", count, *out)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	build := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	r, err := prototrace.NewFilteredReader(tracePath(fs), build())
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	var total, errCount int
	byCommand := map[string]int{}
	byDevice := map[string]int{}
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal(err)
		}
		total++
		if ev.Error != nil {
			errCount++
		}
		if ev.Packet != nil {
			byCommand[zkproto.CommandName(ev.Packet.Command)]++
		}
		if ev.DeviceID != "" {
			byDevice[ev.DeviceID]++
		}
	}

	fmt.Printf("Events: %d (%d errors)\n", total, errCount)
	printCounts("By command:", byCommand)
	printCounts("By device:", byDevice)
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })

	fmt.Println(title)
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, counts[k])
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	build := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	r, err := prototrace.NewFilteredReader(tracePath(fs), build())
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	enc := json.NewEncoder(os.Stdout)
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			fatal(err)
		}
		if err := enc.Encode(ev); err != nil {
			fatal(err)
		}
	}
}
