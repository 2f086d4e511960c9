package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/goushi/pkg/config"
	"github.com/itohio/goushi/pkg/device"
	"github.com/itohio/goushi/pkg/session"
	"github.com/itohio/goushi/pkg/units"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ushi",
		Usage: "Ramp the motor speed and record load cell readings from the controller",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Configuration file path"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "Serial port override (e.g., COM3 or /dev/ttyUSB0)"},
			&cli.BoolFlag{Name: "choose-port", Usage: "List serial ports and pick one interactively"},
			&cli.BoolFlag{Name: "mock", Usage: "Use the simulated controller instead of a serial port"},
			&cli.BoolFlag{Name: "headless", Usage: "Draw the live plot in the terminal instead of a window"},
			&cli.BoolFlag{Name: "once", Usage: "Exit after a single run"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Start without waiting for confirmation"},
			&cli.BoolFlag{Name: "echo", Usage: "Print every line received from the controller"},
			&cli.StringFlag{Name: "dir", Usage: "Directory for logs and graph images"},
			&cli.StringFlag{Name: "memo", Usage: "Memo used in file names"},
			&cli.StringFlag{Name: "initial", Usage: "Initial rpm"},
			&cli.StringFlag{Name: "final", Usage: "Final rpm"},
			&cli.StringFlag{Name: "steps", Usage: "Number of speed changes"},
			&cli.StringFlag{Name: "duration", Usage: "Run time in seconds"},
		},
		Commands: []*cli.Command{
			{
				Name:   "ports",
				Usage:  "List available serial ports",
				Action: listPorts,
			},
			{
				Name:   "config",
				Usage:  "Write the effective configuration to the configuration file",
				Action: saveConfig,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the configuration file and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if port := c.String("port"); port != "" {
		cfg.Serial.Port = port
	}
	if dir := c.String("dir"); dir != "" {
		cfg.Logging.Directory = dir
	}
	if c.Bool("echo") {
		cfg.Logging.EchoResponses = true
	}
	return cfg, nil
}

func listPorts(c *cli.Context) error {
	ports, err := device.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	for _, p := range ports {
		fmt.Printf("%s\t%s\n", p.Name, p.Description)
	}
	return nil
}

func saveConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Save(c.String("config")); err != nil {
		return err
	}
	fmt.Println("Configuration saved to", c.String("config"))
	return nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to load configuration: %v", err), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPrompter(os.Stdin, os.Stdout)

	useMock := c.Bool("mock")
	if c.Bool("choose-port") && !useMock {
		ports, err := device.Ports()
		if err != nil {
			return err
		}
		name, err := p.choosePort(ctx, ports)
		if err != nil {
			return err
		}
		cfg.Serial.Port = name
		fmt.Println("Selected port:", name)
	}

	sup := &supervisor{
		cfg:    cfg,
		prompt: p,
		open:   newOpener(cfg, useMock),
		preset: runParams{
			Initial:  c.String("initial"),
			Final:    c.String("final"),
			Steps:    c.String("steps"),
			Duration: c.String("duration"),
			Memo:     c.String("memo"),
		},
		once: c.Bool("once"),
		yes:  c.Bool("yes"),
	}

	if c.Bool("headless") {
		return sup.runHeadless(ctx)
	}
	return runGUI(ctx, sup)
}

// newOpener returns the controller connection used for every run.
func newOpener(cfg *config.Config, useMock bool) session.Opener {
	if useMock {
		return func() (device.Channel, error) {
			fmt.Println("Using simulated controller")
			return device.NewMock(&cfg.Mock, units.New(cfg.LoadCell, cfg.Motor)), nil
		}
	}
	return func() (device.Channel, error) {
		s, err := device.Open(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.SettleDelay)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Connected to serial port: %s\n", cfg.Serial.Port)
		return s, nil
	}
}
