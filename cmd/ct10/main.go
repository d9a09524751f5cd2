// Command ct10 is the headless CLI driver for the CT-10 emulator core: it
// loads a program, optionally feeds tape/terminal input, runs the engine
// to halt or a step budget, and prints a PASS/FAIL verdict with the exit
// codes for the headless driver.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	core "github.com/digiac10/ct10emu"
	"github.com/digiac10/ct10emu/program"
	"github.com/digiac10/ct10emu/tapeio"
)

const defaultMaxSteps = 200000
const maxStepsCeiling = 10000000

// Exit codes for the headless driver.
const (
	exitPass           = 0
	exitFail           = 1
	exitNonTermination = 2
	exitArgError       = 3
)

var (
	flagTape           string
	flagTapeAlpha      bool
	flagTapeHex        bool
	flagTerminalIn     string
	flagTerminalAlpha  bool
	flagTerminalHex    bool
	flagMaxSteps       int
	flagExpectTerm     string
	flagExpectPrinter  string
	flagIOMode         string
)

func main() {
	os.Exit(run())
}

func run() int {
	code := exitPass
	root := &cobra.Command{
		Use:          "ct10 [program] [max-steps]",
		Short:        "Run a CT-10 program headlessly to halt or a step budget",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := runHeadless(args)
			code = c
			return err
		},
	}

	root.Flags().StringVar(&flagTape, "tape", "", "paper tape input file")
	root.Flags().BoolVar(&flagTapeAlpha, "tape-alpha", false, "load --tape as alpha text")
	root.Flags().BoolVar(&flagTapeHex, "tape-hex", false, "load --tape as whitespace-separated hex")
	root.Flags().StringVar(&flagTerminalIn, "terminal-in", "", "terminal input file")
	root.Flags().BoolVar(&flagTerminalAlpha, "terminal-alpha", false, "load --terminal-in as alpha text")
	root.Flags().BoolVar(&flagTerminalHex, "terminal-hex", false, "load --terminal-in as whitespace-separated hex")
	root.Flags().IntVar(&flagMaxSteps, "max-steps", 0, "microstep budget (default 200000, max 10000000)")
	root.Flags().StringVar(&flagExpectTerm, "expect-term", "", "file the terminal output buffer must match")
	root.Flags().StringVar(&flagExpectPrinter, "expect-printer", "", "file the printer output buffer must match")
	root.Flags().StringVar(&flagIOMode, "io-mode", "", "rexmt|off|octal|hex|alpha")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		if code == exitPass {
			code = exitArgError
		}
	}
	return code
}

func runHeadless(args []string) (int, error) {
	var programPath string
	if len(args) > 0 {
		programPath = args[0]
	}

	maxSteps := defaultMaxSteps
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return exitArgError, fmt.Errorf("invalid max-step argument %q: %w", args[1], err)
		}
		maxSteps = n
	}
	if flagMaxSteps > 0 {
		maxSteps = flagMaxSteps
	}
	if maxSteps > maxStepsCeiling {
		return exitArgError, fmt.Errorf("max-steps %d exceeds ceiling %d", maxSteps, maxStepsCeiling)
	}

	s := core.NewMachineState()

	var spec program.ProgramSpec
	if programPath != "" {
		data, err := os.ReadFile(programPath)
		if err != nil {
			return exitArgError, fmt.Errorf("reading program %s: %w", programPath, err)
		}
		if len(data) == 0 {
			return exitArgError, fmt.Errorf("program %s is empty", programPath)
		}
		result := program.Parse(string(data))
		spec = result.Parsed
		program.LoadInto(s, spec)
	}

	if flagTape != "" {
		data, err := os.ReadFile(flagTape)
		if err != nil {
			return exitArgError, fmt.Errorf("reading tape %s: %w", flagTape, err)
		}
		switch {
		case flagTapeHex:
			bytes, _ := tapeio.LoadHex(data)
			s.IO.InputData = bytes
		case flagTapeAlpha:
			s.IO.InputData = tapeio.LoadAlpha(data)
		default:
			s.IO.InputData = data
		}
	}

	if flagTerminalIn != "" {
		data, err := os.ReadFile(flagTerminalIn)
		if err != nil {
			return exitArgError, fmt.Errorf("reading terminal input %s: %w", flagTerminalIn, err)
		}
		switch {
		case flagTerminalHex:
			bytes, _ := tapeio.LoadHex(data)
			s.IO.TerminalInput = bytes
		case flagTerminalAlpha:
			s.IO.TerminalInput = tapeio.LoadAlpha(data)
		default:
			s.IO.TerminalInput = data
		}
	}

	if flagIOMode != "" {
		mode, err := parseIOMode(flagIOMode)
		if err != nil {
			return exitArgError, err
		}
		s.Panel.IOMode = mode
	}

	s.Mode.Halted = false
	steps := 0
	for steps < maxSteps && !s.Mode.Halted {
		core.Step(s)
		core.AdvanceTiming(&s.Timing)
		steps++
	}

	if !s.Mode.Halted {
		fmt.Printf("FAIL: did not halt within %d microsteps\n", maxSteps)
		return exitNonTermination, nil
	}

	for _, exp := range spec.Expects {
		got := s.Mem.Read(exp.Addr)
		if got != exp.Byte {
			fmt.Printf("FAIL: memory[0x%03X] = 0x%02X, want 0x%02X\n", exp.Addr, got, exp.Byte)
			return exitFail, nil
		}
	}

	if flagExpectTerm != "" {
		if ok, err := compareExpectFile(flagExpectTerm, s.IO.TerminalOutput); err != nil {
			return exitArgError, err
		} else if !ok {
			fmt.Println("FAIL: terminal output does not match --expect-term")
			return exitFail, nil
		}
	}
	if flagExpectPrinter != "" {
		if ok, err := compareExpectFile(flagExpectPrinter, s.IO.PrinterOutput); err != nil {
			return exitArgError, err
		} else if !ok {
			fmt.Println("FAIL: printer output does not match --expect-printer")
			return exitFail, nil
		}
	}

	fmt.Printf("PASS: halted after %d microsteps\n", steps)
	return exitPass, nil
}

func compareExpectFile(path string, got []byte) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(want) != len(got) {
		return false, nil
	}
	for i := range want {
		if want[i] != got[i] {
			return false, nil
		}
	}
	return true, nil
}

// parseIOMode maps the --io-mode flag onto core.PanelInput.IOMode's
// (unchanged=0, off=1, hex=2, alpha=3) encoding. "rexmt" and "octal" are
// legacy synonyms for "off"; the flag never produces the unchanged value.
func parseIOMode(mode string) (uint8, error) {
	switch mode {
	case "rexmt", "off", "octal":
		return 1, nil
	case "hex":
		return 2, nil
	case "alpha":
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown --io-mode %q", mode)
	}
}
