package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
)

// Version is set at build time via ldflags
var version = "dev"

type cliMode int

const (
	modeOverlay cliMode = iota
	modeConsole
	modeVersion
	modeDaemon
	modeStop
	modeStatus
	modeSetPassword
)

type cliArgs struct {
	mode        cliMode
	daemonChild bool
	// forward are the arguments handed to the daemon child.
	forward []string
}

// parseArgs reads the command line. --daemon and --daemon-child may be
// combined with --console.
func parseArgs(args []string) cliArgs {
	var cli cliArgs
	for _, arg := range args {
		switch arg {
		case "--version", "-v":
			return cliArgs{mode: modeVersion}
		case "--stop":
			return cliArgs{mode: modeStop}
		case "--status":
			return cliArgs{mode: modeStatus}
		case "--set-password":
			return cliArgs{mode: modeSetPassword}
		case "--daemon-child":
			cli.daemonChild = true
		case "--console":
			if cli.mode != modeDaemon {
				cli.mode = modeConsole
			}
			cli.forward = append(cli.forward, arg)
		case "--daemon":
			cli.mode = modeDaemon
		default:
			cli.forward = append(cli.forward, arg)
		}
	}
	return cli
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli := parseArgs(args)

	switch cli.mode {
	case modeVersion:
		fmt.Printf("livesub v%s\n", version)
		return 0
	case modeStop:
		daemonStop()
		return 0
	case modeStatus:
		daemonStatus()
		return 0
	case modeSetPassword:
		if err := setPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Printf("❌ Error: %v\n", err)
			return 1
		}
		return 0
	case modeDaemon:
		opts := loadOptions()
		if err := daemonize(cli.forward, opts.CaptionCommand); err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		return 0
	}

	log := newLogger(os.Stderr)
	if cli.daemonChild {
		logFile, err := os.OpenFile(logFilePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		}
		defer removePIDFile()
	}

	opts := loadOptions()
	app := NewApp(AppConfig{
		Options:      opts,
		SettingsPath: getSettingsPath(),
		Console:      cli.mode == modeConsole,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("livesub v%s", version)
	log.Infof("🎙️ caption source: %s %s", opts.CaptionCommand, strings.Join(opts.CaptionArgs, " "))
	if cli.mode != modeConsole && opts.Config.OverlayPasswordHash != "" {
		log.Info("🔐 overlay password enabled")
	}

	if err := app.Run(ctx); err != nil {
		log.WithError(err).Error("livesub stopped with error")
		return 1
	}
	return 0
}

// setPassword reads the overlay password from in and stores its bcrypt
// hash. An empty line removes the password.
func setPassword(in io.Reader, out io.Writer) error {
	fmt.Fprint(out, "New overlay password (empty to disable): ")
	scanner := bufio.NewScanner(in)
	var password string
	if scanner.Scan() {
		password = strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	config, err := loadConfig()
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load config: %w", err)
		}
		config = &Config{}
	}

	if password == "" {
		config.OverlayPasswordHash = ""
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		config.OverlayPasswordHash = string(hash)
	}

	if err := saveConfig(config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if password == "" {
		fmt.Fprintln(out, "\n✅ Overlay password removed")
	} else {
		fmt.Fprintln(out, "\n✅ Overlay password saved")
	}
	return nil
}
