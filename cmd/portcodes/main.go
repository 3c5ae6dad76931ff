package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/mulimoen/portcodes/internal/adapters/serialport"
	"github.com/mulimoen/portcodes/internal/cliconfig"
	"github.com/mulimoen/portcodes/pkg/log"
	"github.com/mulimoen/portcodes/pkg/trigger"
)

const helpDescription = `
Send EEG trigger codes (portcodes) over a serial link emulating a parallel port.

Without arguments a built-in self-test sequence is sent, pausing between codes
so each trigger is visible on the recorder. Pass codes as arguments to send a
custom sequence; 0 inserts a flush barrier.

Codes are conventionally powers of two (1, 2, 4, ..., 128) so that triggers
arriving close together remain distinguishable after they are OR-combined into
a single byte. Without a reachable serial port, codes are emulated on the log
unless --emulate=false.
`

var exampleUsage = strings.TrimSpace(`
  portcodes --port /dev/ttyUSB0
  portcodes --port COM3 4 0 8 0 128
  portcodes --list-ports
`)

// selfTestCodes mirrors the classic smoke-test sequence: single bits, a
// simultaneous pair, and the full byte.
var selfTestCodes = []int{1, 4, 8, 1, 255, 2}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath   string
		listPorts bool
		verbose   bool
	)

	root := &cobra.Command{
		Use:     "portcodes [codes...]",
		Short:   "Send EEG trigger codes over a serial link",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listPorts {
				return runListPorts(cmd)
			}

			// Build set of changed flags so file and env config never
			// override explicit flags.
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			codes, err := parseCodes(args)
			if err != nil {
				return err
			}
			if len(codes) == 0 {
				codes = selfTestCodes
			}

			return run(cfg, codes, cliconfig.Logger(verbose))
		},
	}

	root.Flags().StringVarP(&cfgPath, "config", "c", "", "path to TOML config file (default $HOME/.portcodes/config.toml)")
	root.Flags().StringVarP(&cfg.Port, "port", "p", cfg.Port, "serial device, e.g. /dev/ttyUSB0 or COM3")
	root.Flags().IntVarP(&cfg.Baud, "baud", "b", cfg.Baud, "baud rate for the serial link")
	root.Flags().BoolVar(&cfg.Emulate, "emulate", cfg.Emulate, "emulate codes on the log when the port cannot be opened")
	root.Flags().IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "request queue capacity")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "bound on a single serial write")
	root.Flags().IntVar(&cfg.WriteRetries, "retries", cfg.WriteRetries, "write retries before a code is dropped")
	root.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "pause between codes")
	root.Flags().BoolVar(&listPorts, "list-ports", false, "list serial ports and exit")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runListPorts(cmd *cobra.Command) error {
	names, err := serialport.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no serial ports found")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func parseCodes(args []string) ([]int, error) {
	codes := make([]int, 0, len(args))
	for _, arg := range args {
		code, err := strconv.Atoi(arg)
		if err != nil || code < 0 || code > 255 {
			return nil, fmt.Errorf("invalid code %q: must be an integer in 0..255", arg)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func run(cfg cliconfig.Config, codes []int, logger log.Logger) error {
	d, err := trigger.New(trigger.Config{
		PortName:      cfg.Port,
		BaudRate:      cfg.Baud,
		QueueSize:     cfg.QueueSize,
		WriteTimeout:  cfg.WriteTimeout,
		WriteRetries:  cfg.WriteRetries,
		EmulateOnFail: cfg.Emulate,
	}, trigger.WithLogger(logger))
	if err != nil {
		return err
	}
	defer d.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	for i, code := range codes {
		if err := d.SendPortcode(code); err != nil {
			return err
		}
		if i == len(codes)-1 {
			break
		}
		select {
		case <-time.After(cfg.Interval):
		case sig := <-interrupt:
			logger.Warn("interrupted, draining pending codes", log.String("signal", sig.String()))
			return d.Close()
		}
	}

	// Barrier so every code is on the wire before the port is released.
	if err := d.Flush(); err != nil {
		return err
	}
	return d.Close()
}
