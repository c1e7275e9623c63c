package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/shlex"

	"mcping/internal/logging"
	"mcping/internal/ping"
)

const (
	exitOK       = 0
	exitNotFound = 1
	exitUsage    = 2
)

type App struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	now    func() time.Time

	// color enables ANSI styling of stderr messages.
	color bool
}

func NewApp() *App {
	return &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
		now:    time.Now,
		color:  isTerminal(os.Stderr.Fd()),
	}
}

type typeList []string

func (t *typeList) String() string {
	return strings.Join(*t, ",")
}

func (t *typeList) Set(value string) error {
	*t = append(*t, value)
	return nil
}

type options struct {
	types          typeList
	noSRV          bool
	faviconFile    string
	faviconOut     bool
	verbose        bool
	protocol       int
	connect        time.Duration
	read           time.Duration
	bedrockPort    int
	configPath     string
	writeConfig    bool
	save           bool
	report         reportOptions
	destination    string
	hasDestination bool
}

// plan lists the dialects to probe in order. With fallbackLegacy the legacy
// probe only runs when the modern Java probe failed.
type plan struct {
	editions       []ping.Edition
	fallbackLegacy bool
}

func (a *App) Run(args []string) int {
	args, err := a.withEnvOptions(args)
	if err != nil {
		a.warnf("MCPING_OPTS: %v", err)
		return exitUsage
	}

	opts, err := a.parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		a.warnf("%v", err)
		printUsage(a.stderr)
		return exitUsage
	}

	settings, err := loadSettings(opts.configPath)
	if err != nil {
		a.warnf("settings: %v", err)
		return exitUsage
	}
	settings, err = settings.withOverrides(Settings{
		ProtocolVersion:      opts.protocol,
		ConnectTimeoutMillis: int(opts.connect / time.Millisecond),
		ReadTimeoutMillis:    int(opts.read / time.Millisecond),
		BedrockLocalPort:     opts.bedrockPort,
	})
	if err != nil {
		a.warnf("settings: %v", err)
		return exitUsage
	}
	if err := settings.Validate(); err != nil {
		a.warnf("settings: %v", err)
		return exitUsage
	}
	logging.SetVerbose(opts.verbose || settings.Verbose)

	if opts.writeConfig {
		if err := a.writeConfig(opts.configPath, settings); err != nil {
			a.warnf("settings: %v", err)
			return exitUsage
		}
		if !opts.hasDestination {
			return exitOK
		}
	}
	if !opts.hasDestination {
		a.warnf("missing DESTADDR")
		printUsage(a.stderr)
		return exitUsage
	}

	dialects, err := planDialects(opts.types)
	if err != nil {
		a.warnf("%v", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := ping.NewClient(settings.ClientConfig())
	enableSRV := settings.EnableSRV && !opts.noSRV
	return a.probe(ctx, client, dialects, opts, settings, enableSRV)
}

func (a *App) parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("mcping", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Var(&opts.types, "type", "dialect to probe")
	fs.BoolVar(&opts.noSRV, "nosrv", false, "skip SRV lookup")
	fs.StringVar(&opts.faviconFile, "favicon", "", "favicon output file")
	fs.BoolVar(&opts.faviconOut, "favicon-out", false, "favicon to stdout")
	fs.BoolVar(&opts.faviconOut, "fo", false, "favicon to stdout")
	fs.BoolVar(&opts.verbose, "verbose", false, "diagnostics")
	fs.BoolVar(&opts.verbose, "v", false, "diagnostics")
	fs.IntVar(&opts.protocol, "protocol", 0, "handshake protocol version")
	fs.DurationVar(&opts.connect, "connect-timeout", 0, "connect timeout")
	fs.DurationVar(&opts.read, "read-timeout", 0, "read timeout")
	fs.IntVar(&opts.bedrockPort, "bedrock-port", 0, "local bedrock port")
	fs.StringVar(&opts.configPath, "config", "", "settings file")
	fs.BoolVar(&opts.writeConfig, "write-config", false, "store settings")
	fs.BoolVar(&opts.save, "save", false, "append report to results file")
	fs.BoolVar(&opts.report.NoPlayers, "no-players", false, "hide player sample")
	fs.BoolVar(&opts.report.NoUUID, "no-uuid", false, "hide player ids")
	fs.BoolVar(&opts.report.HideAnonymous, "hide-anonymous", false, "hide anonymous players")
	fs.BoolVar(&opts.report.Channels, "channels", false, "list forge channels")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(a.stdout)
		}
		return opts, err
	}
	if opts.faviconOut && opts.faviconFile != "" {
		return opts, fmt.Errorf("--favicon and --favicon-out are mutually exclusive")
	}
	switch fs.NArg() {
	case 0:
	case 1:
		opts.destination = fs.Arg(0)
		opts.hasDestination = true
		if _, _, err := ping.ParseEndpoint(opts.destination, ping.DefaultJavaPort); err != nil {
			return opts, err
		}
	default:
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	return opts, nil
}

// withEnvOptions prepends the shell-split contents of MCPING_OPTS to args.
func (a *App) withEnvOptions(args []string) ([]string, error) {
	extra := strings.TrimSpace(a.getenv("MCPING_OPTS"))
	if extra == "" {
		return args, nil
	}
	words, err := shlex.Split(extra)
	if err != nil {
		return nil, err
	}
	return append(words, args...), nil
}

func planDialects(types []string) (plan, error) {
	if len(types) == 0 {
		return plan{editions: []ping.Edition{ping.EditionJava}}, nil
	}
	wanted := map[ping.Edition]bool{}
	all := false
	for _, value := range types {
		if strings.EqualFold(strings.TrimSpace(value), "all") {
			all = true
			continue
		}
		edition, err := ping.ParseEdition(value)
		if err != nil {
			return plan{}, fmt.Errorf("unknown --type %q", value)
		}
		wanted[edition] = true
	}

	var p plan
	for _, edition := range []ping.Edition{ping.EditionJava, ping.EditionLegacy, ping.EditionBedrock} {
		if all || wanted[edition] {
			p.editions = append(p.editions, edition)
		}
	}
	p.fallbackLegacy = all && !wanted[ping.EditionLegacy]
	return p, nil
}

func (a *App) probe(ctx context.Context, client *ping.Client, dialects plan, opts options, settings Settings, enableSRV bool) int {
	log := logging.Logger()
	found := false
	javaFound := false
	var reports []string

	for _, edition := range dialects.editions {
		if edition == ping.EditionLegacy && dialects.fallbackLegacy && javaFound {
			continue
		}
		status, err := client.Execute(ctx, ping.ExecuteConfig{
			Edition:   edition,
			Address:   opts.destination,
			EnableSRV: enableSRV,
		})
		if err != nil {
			log.Error("probe failed", "edition", edition, "destination", opts.destination, "err", err)
			a.warnf("No %s Server found", edition.Title())
			continue
		}
		found = true
		if edition == ping.EditionJava {
			javaFound = true
		}

		if err := a.emitFavicon(status, opts); err != nil {
			a.warnf("favicon: %v", err)
		}
		if opts.faviconOut {
			continue
		}
		report := formatStatus(status, opts.report)
		if len(reports) > 0 {
			fmt.Fprintln(a.stdout)
		}
		fmt.Fprint(a.stdout, report)
		reports = append(reports, report)
	}

	if len(reports) > 0 && (opts.save || settings.SaveResults) {
		title := fmt.Sprintf("mcping %s", opts.destination)
		if err := a.saveResult(settings.ResultsPath, title, strings.Join(reports, "\n")); err != nil {
			a.warnf("save result: %v", err)
		}
	}

	if !found {
		return exitNotFound
	}
	return exitOK
}

func (a *App) emitFavicon(status *ping.Status, opts options) error {
	if !opts.faviconOut && opts.faviconFile == "" {
		return nil
	}
	if status.Edition != ping.EditionJava {
		return nil
	}
	if !status.Has(ping.FieldFavicon) {
		return fmt.Errorf("server reported no favicon")
	}
	data, err := ping.DataURLToBytes(status.Favicon)
	if err != nil {
		return err
	}
	if opts.faviconOut {
		_, err = a.stdout.Write(data)
		return err
	}
	return os.WriteFile(opts.faviconFile, data, 0o644)
}

func (a *App) writeConfig(path string, settings Settings) error {
	if path == "" {
		var err error
		if path, err = settingsPath(); err != nil {
			return err
		}
	}
	if err := saveSettings(path, settings); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "%s\n", a.style("Settings written to "+path, colorBold))
	return nil
}
