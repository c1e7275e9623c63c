package ping

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type Edition string

const (
	EditionJava    Edition = "java"
	EditionLegacy  Edition = "legacy"
	EditionBedrock Edition = "bedrock"
)

func ParseEdition(value string) (Edition, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "java", "je":
		return EditionJava, nil
	case "legacy":
		return EditionLegacy, nil
	case "bedrock", "be":
		return EditionBedrock, nil
	default:
		return "", fmt.Errorf("unknown edition: %q", value)
	}
}

func (e Edition) Title() string {
	switch e {
	case EditionJava:
		return "Java"
	case EditionLegacy:
		return "Legacy"
	case EditionBedrock:
		return "Bedrock"
	default:
		return string(e)
	}
}

// Field names one entry of a Status. A field the server did not report is absent.
type Field uint32

const (
	FieldPing Field = 1 << iota
	FieldSRVRedirect
	FieldDescription
	FieldMOTD
	FieldMOTD2
	FieldVersionName
	FieldProtocol
	FieldPlayersOnline
	FieldPlayersMax
	FieldPlayersSample
	FieldFavicon
	FieldServerGUID
	FieldEditionName
	FieldGameMode
	FieldResponseVersion
)

// Status is the normalized answer of one probe. String fields keep the
// server's text verbatim, formatting codes included. Numbers reported by the
// server (protocol, player counts) are kept as their decimal text.
type Status struct {
	Edition         Edition
	PingMillis      int64
	SRVRedirect     string
	Description     TextComponent
	MOTD            string
	MOTD2           string
	VersionName     string
	Protocol        string
	PlayersOnline   string
	PlayersMax      string
	PlayersSample   []Player
	Favicon         string
	ServerGUID      string
	EditionName     string
	GameMode        string
	ResponseVersion int
	// Sections holds top-level status keys outside the vanilla set, in server order.
	Sections []Section

	fields Field
}

func (s *Status) Has(field Field) bool {
	return s.fields&field != 0
}

func (s *Status) set(field Field) {
	s.fields |= field
}

// Section returns the raw value of a non-vanilla top-level key.
func (s *Status) Section(key string) (json.RawMessage, bool) {
	for _, section := range s.Sections {
		if section.Key == key {
			return section.Value, true
		}
	}
	return nil, false
}

type Section struct {
	Key   string
	Value json.RawMessage
}

type Player struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Anonymous reports whether the server replaced the player's id with the nil UUID.
func (p Player) Anonymous() bool {
	id, err := uuid.Parse(p.ID)
	return err == nil && id == uuid.Nil
}

var mcFormatRE = regexp.MustCompile(`(?i)\x{00A7}[0-9A-FK-OR]`)

// StripFormatting removes Minecraft section-sign formatting codes.
func StripFormatting(s string) string {
	return mcFormatRE.ReplaceAllString(s, "")
}
