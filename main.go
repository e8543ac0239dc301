package main

import (
	"os"

	"hadydotai/synvm/logging"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	LogLevel logging.LogLevel `short:"l" long:"loglevel" description:"Set the level of logging" choice:"none" choice:"info" choice:"debug" default:"info"`
	LogFile  string           `long:"logfile" description:"Also write debug level logs to this file"`
	Journal  bool             `long:"journal" description:"Also send logs to the systemd journal"`
}

var (
	opts        Options
	flagsparser = flags.NewParser(&opts, flags.Default)
)

func main() {
	flagsparser.CommandHandler = func(command flags.Commander, args []string) error {
		if err := logging.Setup(opts.LogLevel, opts.LogFile, opts.Journal); err != nil {
			return err
		}
		defer logging.Close()
		return command.Execute(args)
	}

	if _, err := flagsparser.Parse(); err != nil {
		switch flagsErr := err.(type) {
		case flags.ErrorType:
			if flagsErr == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		default:
			os.Exit(1)
		}
	}
}
