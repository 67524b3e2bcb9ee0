package main

import (
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	config "github.com/Dhanushkumar2/computer-forensic/config"
	"github.com/Dhanushkumar2/computer-forensic/services"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("forensic",
		"Disk image triage: artifact extraction, timeline and anomaly scoring.")

	config_path = app.Flag("config", "The configuration file.").
			Short('c').Envar("FORENSIC_CONFIG").String()

	verbose_flag = app.Flag(
		"verbose", "Enable verbose logging.").Short('v').
		Default("false").Bool()

	command_handlers []CommandHandler
)

func loadConfig() *config.Config {
	loader := &config.Loader{}
	config_obj, err := loader.
		WithFileLoader(*config_path).
		WithEnvLoader("FORENSIC_CONFIG").
		WithDefaultConfig().
		LoadAndValidate()
	kingpin.FatalIfError(err, "Unable to load config")

	if *verbose_flag && config_obj.Logging != nil {
		config_obj.Logging.Level = "debug"
	}
	return config_obj
}

func makeService() *services.Service {
	service, err := services.NewService(loadConfig())
	kingpin.FatalIfError(err, "Unable to open the artifact store")
	return service
}

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate).DefaultEnvars()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			break
		}
	}
}
