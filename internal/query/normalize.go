package query

import (
	"regexp"
	"strings"
)

// word mirrors a Unicode-aware \w.
const word = `[\p{L}\p{N}_]+`

// Input is what a rule sees. Lower is the trimmed, lower-cased question as
// originally asked and never changes while the table runs; Text is the live
// text that earlier rules may already have rewritten.
type Input struct {
	Lower string
	Text  string
}

// Rule is one (predicate, transform) pair. Apply returns the replacement text
// and true when it fires. Rules that share a non-empty Group are mutually
// exclusive: once one fires the rest of the group is skipped.
type Rule struct {
	Name  string
	Group string
	Apply func(in Input) (string, bool)
}

// Normalizer rewrites informal questions into canonical imperative phrasings
// by running an ordered rule table.
type Normalizer struct {
	rules []Rule
}

// New returns a Normalizer over the given rules, in order.
func New(rules ...Rule) *Normalizer {
	n := &Normalizer{}
	n.rules = append(n.rules, rules...)
	return n
}

// Default returns a Normalizer loaded with the built-in rule table.
func Default() *Normalizer { return New(DefaultRules()...) }

// Append adds rules to the end of the table.
func (n *Normalizer) Append(rules ...Rule) { n.rules = append(n.rules, rules...) }

// Rules returns a copy of the rule table.
func (n *Normalizer) Rules() []Rule {
	out := make([]Rule, len(n.rules))
	copy(out, n.rules)
	return out
}

// Normalize rewrites q. It never fails and is deterministic.
func (n *Normalizer) Normalize(q string) string {
	out, _ := n.Explain(q)
	return out
}

// Explain is Normalize plus the names of the rules that fired, in order.
func (n *Normalizer) Explain(q string) (string, []string) {
	q = strings.TrimSpace(q)
	in := Input{Lower: strings.ToLower(q), Text: q}
	var fired []string
	groups := map[string]bool{}
	for _, r := range n.rules {
		if r.Apply == nil {
			continue
		}
		if r.Group != "" && groups[r.Group] {
			continue
		}
		out, ok := r.Apply(in)
		if !ok {
			continue
		}
		in.Text = out
		fired = append(fired, r.Name)
		if r.Group != "" {
			groups[r.Group] = true
		}
	}
	return in.Text, fired
}

var defaultNormalizer = Default()

// Normalize runs the built-in rule table over q.
func Normalize(q string) string { return defaultNormalizer.Normalize(q) }

// Explain runs the built-in rule table and reports which rules fired.
func Explain(q string) (string, []string) { return defaultNormalizer.Explain(q) }

// Accept reports whether a caller should send normalized instead of original:
// the rewrite must differ and keep more than ratio of the original length
// (in runes). Over-aggressive rewrites that drop most of the question are
// discarded.
func Accept(original, normalized string, ratio float64) bool {
	if normalized == original {
		return false
	}
	return float64(len([]rune(normalized))) > float64(len([]rune(original)))*ratio
}

// DefaultAcceptRatio is the length ratio Accept is normally called with.
const DefaultAcceptRatio = 0.7

// Match builds a rule from an anchored pattern tested against Input.Lower.
func Match(name, group, pattern string, rewrite func(m []string, in Input) (string, bool)) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{
		Name:  name,
		Group: group,
		Apply: func(in Input) (string, bool) {
			m := re.FindStringSubmatch(in.Lower)
			if m == nil {
				return "", false
			}
			return rewrite(m, in)
		},
	}
}

// Prefix builds a rule that fires when Input.Lower starts with prefix and
// replaces it with repl. Every occurrence of prefix is dropped from the
// remainder, not only the leading one.
func Prefix(name, group, prefix, repl string) Rule {
	return Rule{
		Name:  name,
		Group: group,
		Apply: func(in Input) (string, bool) {
			if !strings.HasPrefix(in.Lower, prefix) {
				return "", false
			}
			return repl + strings.ReplaceAll(in.Lower, prefix, ""), true
		},
	}
}

// Idiom builds a rule that fires on a whole-string, case-insensitive match
// against any of phrases.
func Idiom(name, group, to string, phrases ...string) Rule {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[p] = struct{}{}
	}
	return Rule{
		Name:  name,
		Group: group,
		Apply: func(in Input) (string, bool) {
			if _, ok := set[in.Lower]; ok {
				return to, true
			}
			return "", false
		},
	}
}

func extremum(op string) string {
	switch op {
	case "max", "maximum", "highest":
		return "maximum"
	default:
		return "minimum"
	}
}

func rowWhere(col, op string) string {
	return "show the row where " + col + " is " + extremum(op)
}

func sortTop(m []string, _ Input) (string, bool) {
	return "sort by " + m[2] + " descending and show first " + m[1] + " rows", true
}

// extremumTemplate substitutes the matched prefix of Input.Lower and keeps
// whatever follows it.
func extremumTemplate(name, op string) Rule {
	re := regexp.MustCompile(`^(?:which|who|what)\s+(?:has|have)\s+(?:the\s+)?` + op + `\s+(` + word + `)`)
	repl := "show the row where ${1} is " + extremum(op)
	return Rule{
		Name:  name,
		Group: "extremum",
		Apply: func(in Input) (string, bool) {
			if !re.MatchString(in.Lower) {
				return "", false
			}
			return re.ReplaceAllString(in.Lower, repl), true
		},
	}
}

var (
	actionWords = []string{"show", "display", "get", "find", "calculate", "list", "count"}
	flowWords   = []string{"sort", "filter", "where", "group"}
)

// Abbreviations are expanded in this order as plain substring replacements
// on the live text. A token only matches when surrounded by spaces.
var Abbreviations = [][2]string{
	{" exp ", " experience "},
	{" perf ", " performance "},
	{" dept ", " department "},
	{" sal ", " salary "},
	{" avg ", " average "},
}

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		Match("how-many-each", "how-many", `^how many (`+word+`) in each (`+word+`)`,
			func(m []string, _ Input) (string, bool) {
				return "count " + m[1] + " in each " + m[2], true
			}),
		{
			Name:  "how-many",
			Group: "how-many",
			Apply: func(in Input) (string, bool) {
				if !strings.HasPrefix(in.Lower, "how many ") {
					return "", false
				}
				rest := strings.TrimSpace(strings.ReplaceAll(in.Lower, "how many ", ""))
				return "count total number of " + rest, true
			},
		},
		Match("how-much", "", `^how much is the (total|average|sum|mean) (`+word+`)`,
			func(m []string, _ Input) (string, bool) {
				return "calculate the " + m[1] + " of " + m[2], true
			}),
		Match("what-is", "", `^what is the (average|sum|total|mean|median|max|min|maximum|minimum) (?:of )?(`+word+`)`,
			func(m []string, _ Input) (string, bool) {
				switch m[1] {
				case "max", "maximum", "min", "minimum":
					return rowWhere(m[2], m[1]), true
				}
				return "calculate the " + m[1] + " of " + m[2], true
			}),
		Match("what-are", "", `^what are the (`+word+`)`,
			func(m []string, in Input) (string, bool) {
				if strings.Contains(in.Lower, "unique") {
					return "", false
				}
				return "show unique values in " + m[1] + " column", true
			}),
		Match("where", "", `^where (?:is|are) (`+word+`)`,
			func(_ []string, in Input) (string, bool) {
				cond := strings.ReplaceAll(in.Lower, "where is ", "")
				cond = strings.ReplaceAll(cond, "where are ", "")
				return "show rows where " + cond, true
			}),
		Match("can-you", "", `^can you (show|give|get|find|display) (?:me )?(.+)`,
			func(m []string, _ Input) (string, bool) {
				return m[1] + " " + m[2], true
			}),
		Match("i-want", "", `^i want to (see|know|find|get) (.+)`,
			func(m []string, _ Input) (string, bool) {
				return "show " + m[2], true
			}),
		Prefix("tell-me", "", "tell me ", "show "),
		Prefix("give-me", "", "give me ", "show "),
		extremumTemplate("highest", "highest"),
		extremumTemplate("lowest", "lowest"),
		extremumTemplate("max", "max"),
		extremumTemplate("min", "min"),
		Match("top-n", "", `^top\s+(\d+)\s+(?:by\s+)?(`+word+`)`, sortTop),
		Match("sort-top-n", "", `^sort\s+(?:the\s+)?top\s+(\d+)\s+(?:by|rows by)\s+(`+word+`)`, sortTop),
		{
			Name: "average-column",
			Apply: func(in Input) (string, bool) {
				if !strings.HasPrefix(in.Lower, "average ") {
					return "", false
				}
				f := strings.Fields(in.Text)
				if len(f) != 2 {
					return "", false
				}
				return "calculate the average of " + f[1], true
			},
		},
		Match("department", "", `^(`+word+`)\s+(?:department|employees|workers)`,
			func(m []string, in Input) (string, bool) {
				if strings.HasPrefix(in.Lower, "show") {
					return "", false
				}
				return "show all rows where department equals " + m[1], true
			}),
		Idiom("oldest", "idiom", "show the row where age is maximum",
			"oldest", "who is oldest", "oldest employee", "who is the oldest"),
		Idiom("youngest", "idiom", "show the row where age is minimum",
			"youngest", "who is youngest", "youngest employee", "who is the youngest"),
		Idiom("best", "idiom", "show the row where performance_score is maximum",
			"best performer", "best employee", "highest performer", "who is the best"),
		{
			Name: "show-prefix",
			Apply: func(in Input) (string, bool) {
				for _, w := range actionWords {
					if strings.HasPrefix(in.Lower, w) {
						return "", false
					}
				}
				for _, w := range flowWords {
					if strings.Contains(in.Lower, w) {
						return "show " + in.Text, true
					}
				}
				return "", false
			},
		},
		{
			Name: "abbreviations",
			Apply: func(in Input) (string, bool) {
				out := in.Text
				for _, r := range Abbreviations {
					out = strings.ReplaceAll(out, r[0], r[1])
				}
				return out, out != in.Text
			},
		},
	}
}
