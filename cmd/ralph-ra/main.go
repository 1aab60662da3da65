package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/raymyers/ralph-ra/pkg/ir"
	"github.com/raymyers/ralph-ra/pkg/irload"
	"github.com/raymyers/ralph-ra/pkg/liveness"
	"github.com/raymyers/ralph-ra/pkg/machine"
	"github.com/raymyers/ralph-ra/pkg/mem2reg"
	"github.com/raymyers/ralph-ra/pkg/spiller"
	"github.com/raymyers/ralph-ra/pkg/x64"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dIR      bool
	dMem2reg bool
	dMach    bool
	dLive    bool
	dAsm     bool
	verbose  bool
)

// Pass options
var spillRegs []string

// debugFlagInfo holds metadata for a debug flag
type debugFlagInfo struct {
	flag *bool
	desc string
}

// debugFlags maps flag names to descriptions for unimplemented warnings
var debugFlags = map[string]debugFlagInfo{
	"dasm": {&dAsm, "dump encoded assembly"},
}

// ErrNotImplemented indicates a feature is not yet implemented
var ErrNotImplemented = errors.New("not yet implemented")

// ErrWrongFixture is returned when a flag is used on a fixture it cannot apply to
var ErrWrongFixture = errors.New("flag does not apply to this fixture")

// checkDebugFlags checks if any unimplemented debug flags are set and returns an error
func checkDebugFlags(w io.Writer) error {
	for name, info := range debugFlags {
		if *info.flag {
			fmt.Fprintf(w, "ralph-ra: warning: -%s (%s) is not yet implemented\n", name, info.desc)
			return ErrNotImplemented
		}
	}
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize single-dash debug flags to double-dash for pflag compatibility
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that also accept single-dash style
var debugFlagNames = []string{"dir", "dmem2reg", "dmach", "dlive", "dasm", "spill"}

// normalizeFlags converts single-dash flags like -dmem2reg to --dmem2reg
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName || strings.HasPrefix(arg, "-"+flagName+"=") {
				result[i] = "-" + arg
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-ra [file.yaml]",
		Short: "ralph-ra runs the register-pressure passes on IR fixtures",
		Long: `ralph-ra loads an SSA module or a machine function from a YAML
fixture, runs memory-to-register promotion or spills the requested
virtual registers, and dumps the result.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDebugFlags(errOut); err != nil {
				return err
			}
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]
			logger := newLogger(errOut)

			data, err := os.ReadFile(filename)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-ra: error reading %s: %v\n", filename, err)
				return err
			}
			kind, err := irload.Detect(data)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-ra: %s: %v\n", filename, err)
				return err
			}
			logger.Debug("loaded fixture", "file", filename, "kind", kind.String())

			if kind == irload.KindModule {
				return doModule(filename, data, logger, out, errOut)
			}
			return doMachine(filename, data, logger, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Add debug flags
	rootCmd.Flags().BoolVarP(&dIR, "dir", "", false, "Dump SSA IR as loaded")
	rootCmd.Flags().BoolVarP(&dMem2reg, "dmem2reg", "", false, "Run memory-to-register promotion and dump")
	rootCmd.Flags().BoolVarP(&dMach, "dmach", "", false, "Dump machine IR as loaded")
	rootCmd.Flags().BoolVarP(&dLive, "dlive", "", false, "Dump the live-register matrix")
	rootCmd.Flags().BoolVarP(&dAsm, "dasm", "", false, "Dump encoded assembly")
	rootCmd.Flags().StringArrayVar(&spillRegs, "spill", nil, "Spill virtual register vN (repeatable, applied in order)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pass decisions to stderr")

	return rootCmd
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// doModule handles an SSA module fixture (-dir, -dmem2reg)
func doModule(filename string, data []byte, logger *slog.Logger, out, errOut io.Writer) error {
	if dMach || dLive || len(spillRegs) > 0 {
		fmt.Fprintf(errOut, "ralph-ra: %s holds an SSA module; -dmach, -dlive and -spill need a machine function\n", filename)
		return ErrWrongFixture
	}
	m, err := irload.LoadModule(data)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-ra: %s: %v\n", filename, err)
		return err
	}

	if dIR {
		ir.NewPrinter(out).PrintModule(m)
	}
	if !dMem2reg {
		if !dIR {
			fmt.Fprintf(errOut, "ralph-ra: loaded %s (%d functions)\n", filename, len(m.Functions))
		}
		return nil
	}

	stats := mem2reg.New(mem2reg.WithLogger(logger)).RunOnModule(m)
	logger.Info("mem2reg", "allocas", stats.Allocas, "promotable", stats.Promotable,
		"single_store", stats.SingleStore, "single_block", stats.SingleBlock,
		"allocas_removed", stats.AllocasRemoved, "loads_removed", stats.LoadsRemoved)

	return writeDump(mem2regOutputFilename(filename), out, errOut, func(w io.Writer) {
		ir.NewPrinter(w).PrintModule(m)
	})
}

// doMachine handles a machine function fixture (-dmach, -spill, -dlive)
func doMachine(filename string, data []byte, logger *slog.Logger, out, errOut io.Writer) error {
	if dIR || dMem2reg {
		fmt.Fprintf(errOut, "ralph-ra: %s holds a machine function; -dir and -dmem2reg need an SSA module\n", filename)
		return ErrWrongFixture
	}
	fn, err := irload.LoadMachine(data)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-ra: %s: %v\n", filename, err)
		return err
	}
	if err := x64.Verify(fn); err != nil {
		fmt.Fprintf(errOut, "ralph-ra: %s: %v\n", filename, err)
		return err
	}

	if dMach {
		x64.NewPrinter(out).PrintFunction(fn)
	}
	if len(spillRegs) == 0 && !dLive {
		if !dMach {
			fmt.Fprintf(errOut, "ralph-ra: loaded %s (%d instructions)\n", filename, countInstrs(fn))
		}
		return nil
	}

	matrix, err := liveness.Compute(fn)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-ra: liveness: %v\n", err)
		return err
	}

	if len(spillRegs) > 0 {
		var notes []string
		sp := spiller.New(fn, matrix, spiller.WithLogger(logger))
		for _, name := range spillRegs {
			v, err := parseVReg(name)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-ra: -spill %s: %v\n", name, err)
				return err
			}
			regs, err := sp.Spill(v)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-ra: %v\n", err)
				return err
			}
			notes = append(notes, fmt.Sprintf("; spill %s -> %s", v, joinRegs(regs)))
		}
		err := writeDump(spillOutputFilename(filename), out, errOut, func(w io.Writer) {
			for _, n := range notes {
				fmt.Fprintln(w, n)
			}
			x64.NewPrinter(w).PrintFunction(fn)
		})
		if err != nil {
			return err
		}
	}

	if dLive {
		fmt.Fprint(out, matrix.Tree().String())
		printInterference(out, liveness.BuildInterference(matrix))
	}
	return nil
}

func printInterference(w io.Writer, g *liveness.InterferenceGraph) {
	fmt.Fprintln(w, "interference:")
	for _, r := range g.Nodes() {
		fmt.Fprintf(w, "  %s: %s\n", r, joinRegs(g.Neighbors(r)))
	}
}

// writeDump prints to out and writes the same text to filename
func writeDump(filename string, out, errOut io.Writer, print func(io.Writer)) error {
	outFile, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-ra: error creating %s: %v\n", filename, err)
		return err
	}
	defer outFile.Close()

	print(outFile)
	print(out)
	return nil
}

func parseVReg(s string) (machine.VReg, error) {
	var n uint32
	if _, err := fmt.Sscanf(s, "v%d", &n); err != nil || n == 0 || fmt.Sprintf("v%d", n) != s {
		return 0, fmt.Errorf("not a virtual register name")
	}
	return machine.VReg(n), nil
}

func joinRegs(regs []machine.VReg) string {
	if len(regs) == 0 {
		return "(none)"
	}
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

func countInstrs(fn *machine.Function) int {
	n := 0
	for _, bb := range fn.Blocks() {
		n += len(bb.Instrs)
	}
	return n
}

// mem2regOutputFilename returns the output filename for -dmem2reg
// input.yaml -> input.mem2reg
func mem2regOutputFilename(filename string) string {
	return trimFixtureExt(filename) + ".mem2reg"
}

// spillOutputFilename returns the output filename for -spill
// input.yaml -> input.spill
func spillOutputFilename(filename string) string {
	return trimFixtureExt(filename) + ".spill"
}

func trimFixtureExt(filename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(filename, ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}
