package narrative

import "strings"

// directionRule maps a feedback keyword to the direction it implies.
type directionRule struct {
	keyword   string
	direction string
}

// directionRules is evaluated top to bottom; the first keyword contained in
// the feedback wins, so the order here is load-bearing and must stay stable.
var directionRules = []directionRule{
	{"darker", "exploring darker themes"},
	{"lighter", "moving toward lighter, brighter content"},
	{"faster", "increasing energy and pace"},
	{"slower", "slowing down, contemplative"},
	{"abstract", "embracing abstraction and surrealism"},
	{"narrative", "building toward clearer narrative"},
	{"emotional", "focusing on emotional resonance"},
	{"violent", "exploring conflict and tension"},
	{"peaceful", "seeking calm and serenity"},
	{"weird", "leaning into the strange and surreal"},
	{"funny", "looking for humor and levity"},
}

// InferDirection scans feedback for the first matching direction keyword and
// returns the implied direction. The second return reports whether any
// keyword matched.
func InferDirection(feedback string) (string, bool) {
	lowered := strings.ToLower(feedback)
	for _, rule := range directionRules {
		if strings.Contains(lowered, rule.keyword) {
			return rule.direction, true
		}
	}
	return "", false
}
