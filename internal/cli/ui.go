package cli

import (
	"fmt"
	"io"
	"strings"
)

const (
	colorReset = "\033[0m"
	colorWarn  = "\033[33m"
	colorBold  = "\033[1m"
)

func (a *App) supportsColor() bool {
	if !a.color || a.getenv("NO_COLOR") != "" {
		return false
	}
	term := strings.TrimSpace(a.getenv("TERM"))
	return term != "" && term != "dumb"
}

func (a *App) style(text, color string) string {
	if !a.supportsColor() || color == "" {
		return text
	}
	return color + text + colorReset
}

func (a *App) warnf(format string, args ...any) {
	fmt.Fprintln(a.stderr, a.style(fmt.Sprintf(format, args...), colorWarn))
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `mcping

Usage:
  mcping [flags] DESTADDR

DESTADDR is host, host:port, [ipv6] or [ipv6]:port.

Flags:
  --type java|je|legacy|bedrock|be|all   dialect to probe, repeatable (default java)
  --nosrv                                do not follow _minecraft._tcp SRV records
  --favicon FILE                         write the server favicon to FILE
  --favicon-out                          write the server favicon to stdout only
  --verbose, -v                          diagnostics on stderr
  --protocol N                           protocol version sent in the handshake
  --connect-timeout D                    TCP connect timeout (default 5s)
  --read-timeout D                       receive timeout (default 10s)
  --bedrock-port N                       local UDP port for Bedrock probes (default ephemeral)
  --no-players, --no-uuid, --hide-anonymous
                                         player sample display
  --channels                             list Forge channels
  --save                                 append the report to the results file
  --config FILE                          settings file (default user config dir)
  --write-config                         store the effective settings in the settings file

Extra default flags can be set in MCPING_OPTS.
`)
}
