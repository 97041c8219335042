package catalog

import (
	"slices"
	"strings"

	"github.com/unknproject/loader/internal/domain"
)

// unversionedGames are split into a game and a version on the first space,
// e.g. "CSS v34" lists under "CSS" / "v34".
const unversionedGames = "CSS"

const unknownVersion = "Unknown version"

// List is an immutable snapshot of the catalog.
type List struct {
	payloads []domain.Payload
}

func NewList(payloads []domain.Payload) *List {
	return &List{payloads: slices.Clone(payloads)}
}

// Payloads returns the payloads in catalog order.
func (l *List) Payloads() []domain.Payload {
	return slices.Clone(l.payloads)
}

func (l *List) Len() int {
	return len(l.payloads)
}

// ByName returns the first payload with exactly this name.
func (l *List) ByName(name string) (domain.Payload, bool) {
	for _, p := range l.payloads {
		if p.Name == name {
			return p, true
		}
	}
	return domain.Payload{}, false
}

// Processes returns the distinct target processes, sorted.
func (l *List) Processes() []string {
	seen := make(map[string]struct{}, len(l.payloads))
	var out []string
	for _, p := range l.payloads {
		if p.TargetProcess == "" {
			continue
		}
		if _, ok := seen[p.TargetProcess]; ok {
			continue
		}
		seen[p.TargetProcess] = struct{}{}
		out = append(out, p.TargetProcess)
	}
	slices.Sort(out)
	return out
}

// Group is the payloads of one game, split by version.
type Group struct {
	Game     string         `json:"game"`
	Versions []VersionGroup `json:"versions"`
}

type VersionGroup struct {
	Version  string           `json:"version,omitempty"`
	Payloads []domain.Payload `json:"payloads"`
}

// GroupByGame groups payloads by game, then by version. Only CSS titles carry
// a version; every other game has a single group with an empty version.
// Games and versions are sorted; payloads keep catalog order.
func (l *List) GroupByGame() []Group {
	byGame := make(map[string]map[string][]domain.Payload)
	for _, p := range l.payloads {
		game, version := splitGame(p.Game)
		if byGame[game] == nil {
			byGame[game] = make(map[string][]domain.Payload)
		}
		byGame[game][version] = append(byGame[game][version], p)
	}

	games := make([]string, 0, len(byGame))
	for g := range byGame {
		games = append(games, g)
	}
	slices.Sort(games)

	out := make([]Group, 0, len(games))
	for _, g := range games {
		versions := make([]string, 0, len(byGame[g]))
		for v := range byGame[g] {
			versions = append(versions, v)
		}
		slices.Sort(versions)

		group := Group{Game: g}
		for _, v := range versions {
			group.Versions = append(group.Versions, VersionGroup{Version: v, Payloads: byGame[g][v]})
		}
		out = append(out, group)
	}
	return out
}

func splitGame(game string) (string, string) {
	if !strings.HasPrefix(game, unversionedGames) {
		return game, ""
	}
	fields := strings.Fields(game)
	if len(fields) == 0 {
		return unversionedGames, unknownVersion
	}
	if len(fields) == 1 {
		return fields[0], unknownVersion
	}
	return fields[0], strings.Join(fields[1:], " ")
}
