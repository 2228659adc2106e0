package realtime

import "scoresheet/internal/wire"

// GameRule describes how one game shapes its scores. The registry replaces
// per-slug branching in the endpoint logic: snapshot assembly is generic
// over the rule.
type GameRule struct {
	Mode      wire.ScoringMode
	TeamBased bool
	TeamSize  int
}

var gameRules = map[string]GameRule{
	"mille-bornes":         {Mode: wire.ScoringRounds},
	"mille-bornes-equipes": {Mode: wire.ScoringRounds, TeamBased: true, TeamSize: 2},
	"belote":               {Mode: wire.ScoringRounds, TeamBased: true, TeamSize: 2},
	"tarot":                {Mode: wire.ScoringRounds},
	"yams":                 {Mode: wire.ScoringCategories},
	"generic":              {Mode: wire.ScoringRounds},
}

// LookupGame returns the rule for a slug. Unknown slugs fall back to the
// session row's own scoring mode so custom games still render.
func LookupGame(slug string, sessionMode string) GameRule {
	if rule, ok := gameRules[slug]; ok {
		return rule
	}
	mode := wire.ScoringMode(sessionMode)
	if mode != wire.ScoringRounds && mode != wire.ScoringCategories {
		mode = wire.ScoringRounds
	}
	return GameRule{Mode: mode}
}
