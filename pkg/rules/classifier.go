package rules

import "strings"

// Action is the kind of handling a classified message gets.
type Action int

const (
	// ActionNone leaves the message untouched.
	ActionNone Action = iota
	// ActionReply sends a templated reply and tags the thread.
	ActionReply
	// ActionTagLowRating labels a one-star complaint and clears unread.
	ActionTagLowRating
	// ActionMarkRead only clears the unread flag.
	ActionMarkRead
)

func (a Action) String() string {
	switch a {
	case ActionReply:
		return "reply"
	case ActionTagLowRating:
		return "tag-low-rating"
	case ActionMarkRead:
		return "mark-read"
	default:
		return "none"
	}
}

// Outcome is the classification result for one message. Template and
// SubjectPrefix are set for ActionReply; Rating is set (HasRating true)
// when rating extraction drove the decision.
type Outcome struct {
	Action        Action
	Template      string
	SubjectPrefix string
	Rating        int
	HasRating     bool
}

// Classify maps one message's subject and body to an outcome. It is a pure
// function: no I/O, deterministic for identical inputs and rule set.
//
// Rules are scanned in declared order and the first match wins. Matching
// is lowercase substring containment over subject+"\n"+body; a keyword
// inside a longer word still matches, intentionally. When no rule matches,
// a rating embedded in the body routes the message: 1 tags it as a low
// rating, 3 and up only marks it read. A rating of 2 is deliberately left
// unhandled and falls through to no action.
func Classify(subject, body string, rs *RuleSet) Outcome {
	text := strings.ToLower(subject) + "\n" + strings.ToLower(body)

	for _, rule := range rs.Rules {
		if len(rule.Keywords) == 0 {
			continue
		}
		if ruleMatches(rule, text) {
			return Outcome{
				Action:        ActionReply,
				Template:      rule.Template,
				SubjectPrefix: rule.SubjectPrefix,
			}
		}
	}

	if rating, ok := ExtractRating(body); ok {
		switch {
		case rating == 1:
			return Outcome{Action: ActionTagLowRating, Rating: rating, HasRating: true}
		case rating >= 3:
			return Outcome{Action: ActionMarkRead, Rating: rating, HasRating: true}
		default:
			// Rating 2 is explicitly unhandled, not a default bucket.
			return Outcome{Action: ActionNone, Rating: rating, HasRating: true}
		}
	}

	return Outcome{Action: ActionNone}
}

func ruleMatches(rule Rule, text string) bool {
	if strings.EqualFold(rule.MatchMode, MatchAll) {
		for _, kw := range rule.Keywords {
			if !strings.Contains(text, strings.ToLower(kw)) {
				return false
			}
		}
		return true
	}
	for _, kw := range rule.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
