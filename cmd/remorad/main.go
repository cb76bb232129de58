/*
Remorad starts a remora server and begins listening for new connections.

Usage:

	remorad [flags]

Once started, the server listens for HTTP requests under /api/v1 and responds
to them using REST protocol. Clients create sessions holding a source in one of
the loaded languages, then send edits to it; every edit re-parses the source
incrementally and returns the new tree.

The flags are:

	--version
		Give the current version of the remora server and then exit.

	-C, --config FILE
		Read the server configuration from the given TOML file. Flags given on
		the command line take priority over values in the file.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, will default to the value of environment variable
		REMORAD_LISTEN, and if that is not given, will default to the value in
		the config file or localhost:8080.

	--db DRIVER[:PARAMS]
		Use the given DB connection string. DRIVER must be one of the following:
		inmem, sqlite. inmem has no further params. sqlite needs the path to the
		DB file such as sqlite:path/to/remora.db. If not given, the value in the
		config file is used, and if there is none an in-memory database is
		used.

	-g, --grammar FILE
		Load the language defined by the given grammar file in addition to the
		built-in ones. May be given more than once.

	-v, --verbose
		Log more details. May be given more than once.
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dekarrin/remora/internal/version"
	"github.com/dekarrin/remora/server"
	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

const (
	EnvListen = "REMORAD_LISTEN"
)

var (
	flagVersion  = pflag.Bool("version", false, "Give the current version of the remora server and then exit.")
	flagConfig   = pflag.StringP("config", "C", "", "Read server configuration from the given TOML file.")
	flagListen   = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagDB       = pflag.String("db", "", "Use the given DB connection string.")
	flagGrammars = pflag.StringArrayP("grammar", "g", nil, "Load the language in the given grammar file. May be repeated.")
	flagVerbose  = pflag.CountP("verbose", "v", "Log more details. May be repeated.")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s (remora v%s)\n", version.ServerCurrent, version.Current)
		return
	}

	if len(pflag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		os.Exit(1)
	}

	commonlog.Configure(*flagVerbose, nil)
	log := commonlog.GetLogger("remora.server")

	// assemble a server config
	var cfg server.Config
	if *flagConfig != "" {
		var err error
		cfg, err = server.LoadConfig(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}

	if envListen := os.Getenv(EnvListen); envListen != "" {
		cfg.Listen = envListen
	}
	if pflag.Lookup("listen").Changed {
		cfg.Listen = *flagListen
	}

	if pflag.Lookup("db").Changed {
		db, err := server.ParseDBConnString(*flagDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Not a valid DB string: %s\nDo -h for help.\n", err)
			os.Exit(1)
		}
		cfg.DB = db
	}

	cfg.Grammars = append(cfg.Grammars, *flagGrammars...)

	// configuration complete, initialize the server
	rs, err := server.New(context.Background(), cfg, log)
	if err != nil {
		log.Criticalf("could not start server: %s", err.Error())
		os.Exit(1)
	}
	defer rs.Close()
	log.Debug("server initialized")

	log.Noticef("starting remora server %s...", version.ServerCurrent)
	if err := rs.ServeForever(); err != nil {
		log.Criticalf("%s", err.Error())
		rs.Close()
		os.Exit(1)
	}
}
