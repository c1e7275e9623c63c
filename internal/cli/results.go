package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mcping/internal/ping"
)

type reportOptions struct {
	NoPlayers     bool
	NoUUID        bool
	HideAnonymous bool
	Channels      bool
}

const rowFormat = "\t%-20s: %s\n"

func formatStatus(status *ping.Status, opts reportOptions) string {
	var builder strings.Builder
	switch status.Edition {
	case ping.EditionJava:
		formatJava(&builder, status, opts)
	case ping.EditionLegacy:
		formatLegacy(&builder, status)
	case ping.EditionBedrock:
		formatBedrock(&builder, status)
	}
	return builder.String()
}

func formatJava(builder *strings.Builder, status *ping.Status, opts reportOptions) {
	if status.Has(ping.FieldSRVRedirect) {
		builder.WriteString(fmt.Sprintf("The server uses SRV Record, request is redirected to %s\n", status.SRVRedirect))
	}
	writePing(builder, status)

	if status.Has(ping.FieldDescription) {
		motd := ping.StripFormatting(status.Description.String())
		lines := strings.SplitN(motd, "\n", 4)
		builder.WriteString("Message Of The Day:\n")
		builder.WriteString("\t" + strings.Join(lines, "\n\t") + "\n")
	}
	writeVersion(builder, status)
	writePlayers(builder, status)

	if status.Has(ping.FieldPlayersSample) && !opts.NoPlayers {
		label := "Sample"
		for _, player := range status.PlayersSample {
			anonymous := player.Anonymous()
			if anonymous && opts.HideAnonymous {
				continue
			}
			display := fmt.Sprintf("%-16s (%s)", player.Name, player.ID)
			switch {
			case anonymous:
				display = "Anonymous by server"
			case opts.NoUUID:
				display = player.Name
			}
			builder.WriteString(fmt.Sprintf(rowFormat, label, display))
			label = ""
		}
	}

	if len(status.Sections) > 0 {
		builder.WriteString("Non-vanilla Sections:\n")
		for _, section := range status.Sections {
			builder.WriteString(fmt.Sprintf(rowFormat, section.Key, sectionValue(section.Value)))
		}
	}

	info, ok, err := status.ForgeInfo()
	if ok {
		writeForge(builder, info, err, opts.Channels)
	}
}

func formatLegacy(builder *strings.Builder, status *ping.Status) {
	writePing(builder, status)
	if status.Has(ping.FieldMOTD) {
		builder.WriteString("Message Of The Day:\n")
		builder.WriteString("\t" + ping.StripFormatting(status.MOTD) + "\n")
	}
	builder.WriteString("Version:\n")
	builder.WriteString(fmt.Sprintf(rowFormat, "Response Version", strconv.Itoa(status.ResponseVersion)))
	if status.Has(ping.FieldProtocol) {
		builder.WriteString(fmt.Sprintf(rowFormat, "Protocol Version", status.Protocol))
		builder.WriteString(fmt.Sprintf(rowFormat, "Version Name", status.VersionName))
	}
	writePlayers(builder, status)
}

func formatBedrock(builder *strings.Builder, status *ping.Status) {
	writePing(builder, status)
	if status.Has(ping.FieldMOTD) {
		builder.WriteString("Message Of The Day:\n")
		builder.WriteString("\t" + ping.StripFormatting(status.MOTD) + "\n")
		if status.Has(ping.FieldMOTD2) {
			builder.WriteString("\t" + ping.StripFormatting(status.MOTD2) + "\n")
		}
	}
	writeVersion(builder, status)
	writePlayers(builder, status)
	if status.Has(ping.FieldEditionName) {
		builder.WriteString(fmt.Sprintf("Edition:\n\t%s\n", status.EditionName))
	}
	if status.Has(ping.FieldServerGUID) {
		builder.WriteString(fmt.Sprintf("Server GUID:\n\t%s\n", status.ServerGUID))
	}
	if status.Has(ping.FieldGameMode) {
		builder.WriteString(fmt.Sprintf("Server Game Mode:\n\t%s\n", status.GameMode))
	}
}

func writePing(builder *strings.Builder, status *ping.Status) {
	if status.Has(ping.FieldPing) {
		builder.WriteString(fmt.Sprintf("Ping to server (%s) is %dms\n", status.Edition.Title(), status.PingMillis))
	}
}

func writeVersion(builder *strings.Builder, status *ping.Status) {
	builder.WriteString("Version:\n")
	if !status.Has(ping.FieldProtocol) && !status.Has(ping.FieldVersionName) {
		builder.WriteString(fmt.Sprintf(rowFormat, "Protocol Version", "Unknown"))
		builder.WriteString(fmt.Sprintf(rowFormat, "Version Name", "Unknown"))
		return
	}
	builder.WriteString(fmt.Sprintf(rowFormat, "Protocol Version", status.Protocol))
	builder.WriteString(fmt.Sprintf(rowFormat, "Version Name", status.VersionName))
}

func writePlayers(builder *strings.Builder, status *ping.Status) {
	if !status.Has(ping.FieldPlayersOnline) && !status.Has(ping.FieldPlayersMax) {
		return
	}
	builder.WriteString("Online players:\n")
	builder.WriteString(fmt.Sprintf(rowFormat, "Online Count", status.PlayersOnline))
	builder.WriteString(fmt.Sprintf(rowFormat, "Max Players", status.PlayersMax))
}

func writeForge(builder *strings.Builder, info *ping.ForgeInfo, err error, channels bool) {
	builder.WriteString("Forge:\n")
	if info == nil {
		builder.WriteString(fmt.Sprintf(rowFormat, "Mod Data", "unreadable: "+err.Error()))
		return
	}
	version := info.NetworkVersion
	if version == "" {
		version = "Unknown"
	}
	builder.WriteString(fmt.Sprintf(rowFormat, "Network Version", version))
	if info.Truncated {
		builder.WriteString(fmt.Sprintf(rowFormat, "Mod List", "truncated by server"))
	}
	label := "Mods"
	for _, mod := range info.Mods {
		display := mod.ID
		switch {
		case mod.Unchecked:
			display += " (<UNCHECKED>)"
		case mod.Version != "":
			display += " (" + mod.Version + ")"
		}
		builder.WriteString(fmt.Sprintf(rowFormat, label, display))
		label = ""
		if channels {
			writeChannels(builder, mod.Channels)
		}
	}
	if channels && len(info.Channels) > 0 {
		builder.WriteString(fmt.Sprintf(rowFormat, "Channels", ""))
		writeChannels(builder, info.Channels)
	}
	if err != nil {
		builder.WriteString(fmt.Sprintf(rowFormat, "Mod Data", "incomplete: "+err.Error()))
	}
}

func writeChannels(builder *strings.Builder, channels []ping.ForgeChannel) {
	for _, ch := range channels {
		marker := " "
		if ch.Required {
			marker = "*"
		}
		builder.WriteString(fmt.Sprintf("\t\tChannel%s %s (%d)\n", marker, ch.Name, ch.Version))
	}
}

// sectionValue renders a non-vanilla status value the way the report shows it.
func sectionValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case 'n':
		return "[Null]"
	case '[':
		return "[Array]"
	case '{':
		return "[Object]"
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return string(trimmed)
		}
		return s
	default:
		return string(trimmed)
	}
}

func (a *App) saveResult(path, title, content string) error {
	path, err := ensureResultsPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s\n", title))
	builder.WriteString(fmt.Sprintf("Saved at: %s\n", a.now().Format(time.RFC3339)))
	builder.WriteString("\n")
	builder.WriteString(content)
	builder.WriteString("\n")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(builder.String()); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ensureResultsPath turns a directory (existing, or spelled with a trailing
// separator) into a timestamped file inside it.
func ensureResultsPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultResultsPath()
	}
	hasSeparator := strings.HasSuffix(trimmed, string(os.PathSeparator))
	clean := filepath.Clean(trimmed)
	info, err := os.Stat(clean)
	if err == nil && info.IsDir() {
		return filepath.Join(clean, fmt.Sprintf("result-%d.txt", time.Now().Unix())), nil
	}
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if hasSeparator {
		return filepath.Join(clean, fmt.Sprintf("result-%d.txt", time.Now().Unix())), nil
	}
	return clean, nil
}
