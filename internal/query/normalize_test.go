package query

import (
	"strings"
	"testing"
)

func TestNormalize_Rules(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"how many grouped", "How many employees in each department", "count employees in each department"},
		{"how many plain", "how many rows are there", "count total number of rows are there"},
		{"how much", "How much is the total revenue", "calculate the total of revenue"},
		{"what is average", "What is the average salary", "calculate the average of salary"},
		{"what is maximum", "What is the maximum salary", "show the row where salary is maximum"},
		{"what is min of", "what is the min of age", "show the row where age is minimum"},
		{"what is median of", "what is the median of bonus", "calculate the median of bonus"},
		{"what are", "What are the departments", "show unique values in departments column"},
		{"what are unique untouched", "what are the unique cities", "what are the unique cities"},
		{"where is", "Where is salary above 5000", "show show rows where salary above 5000"},
		{"can you", "Can you show me the first 5 rows", "show the first 5 rows"},
		{"can you get", "can you get total sales", "get total sales"},
		{"i want", "I want to see all salaries", "show all salaries"},
		{"tell me", "Tell me the average age", "show the average age"},
		{"give me", "give me the names", "show the names"},
		{"who has highest", "who has the highest score", "show the row where score is maximum"},
		{"which have lowest keeps tail", "which have lowest price today", "show the row where price is minimum today"},
		{"what has max", "what has max revenue", "show the row where revenue is maximum"},
		{"top n", "top 5 by revenue", "sort by revenue descending and show first 5 rows"},
		{"top n no by", "Top 10 salary", "sort by salary descending and show first 10 rows"},
		{"average column keeps case", "average Salary", "calculate the average of Salary"},
		{"average three words untouched", "average of salary", "average of salary"},
		{"department", "sales department", "show all rows where department equals sales"},
		{"workers", "remote workers", "show all rows where department equals remote"},
		{"oldest idiom", "oldest employee", "show the row where age is maximum"},
		{"oldest idiom case", "Who Is The Oldest", "show the row where age is maximum"},
		{"youngest idiom", "youngest", "show the row where age is minimum"},
		{"best idiom", "best performer", "show the row where performance_score is maximum"},
		{"show prefix", "filter rows by dept now", "show filter rows by department now"},
		{"no show prefix for action", "list where age > 30", "list where age > 30"},
		{"abbreviation", "show avg sal by dept please", "show average salary by department please"},
		{"trim", "   show first 5 rows  ", "show first 5 rows"},
		{"empty", "", ""},
		{"blank", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_HowManyEachIsExact(t *testing.T) {
	items := []string{"employees", "orders", "rows", "café", "item_2"}
	groups := []string{"department", "group", "region", "city", "where"}
	for _, it := range items {
		for _, g := range groups {
			q := "how many " + it + " in each " + g
			want := "count " + it + " in each " + g
			if got := Normalize(q); got != want {
				t.Fatalf("Normalize(%q) = %q, want %q", q, got, want)
			}
			if got := Normalize(strings.ToUpper(q[:1]) + q[1:]); got != want {
				t.Fatalf("capitalized %q = %q, want %q", q, got, want)
			}
		}
	}
}

// The action-word check reads the question as asked, so rewrites that start
// with "show" or "count" still gain the prefix.
func TestNormalize_ShowPrefixChecksOriginalQuestion(t *testing.T) {
	cases := map[string]string{
		"where are rows with salary over 100": "show show rows where rows with salary over 100",
		"can you show me rows where age > 30": "show show rows where age > 30",
		"how many employees where age > 30":   "show count total number of employees where age > 30",
		"i want to see rows sorted by salary": "show show rows sorted by salary",
		"give me the top group":               "show show the top group",
		"show rows where age > 30":            "show rows where age > 30",
		"count rows where dept = ops":         "count rows where department = ops",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_Total(t *testing.T) {
	inputs := []string{"\x00", "how many ", "top", "top 5", "average ", "where is", "🙂🙂", "\xff\xfe", strings.Repeat("where ", 200)}
	for _, in := range inputs {
		_ = Normalize(in)
	}
}

func TestExplain_ReportsFiredRules(t *testing.T) {
	out, fired := Explain("show avg sal")
	// trailing token has no space after it so only avg expands
	if out != "show average sal" {
		t.Fatalf("got %q", out)
	}
	if len(fired) != 1 || fired[0] != "abbreviations" {
		t.Fatalf("fired = %v", fired)
	}
}

func TestNormalizer_GroupExclusive(t *testing.T) {
	n := New(
		Rule{Name: "a", Group: "g", Apply: func(in Input) (string, bool) { return "A", true }},
		Rule{Name: "b", Group: "g", Apply: func(in Input) (string, bool) { return "B", true }},
		Rule{Name: "c", Apply: func(in Input) (string, bool) { return in.Text + "!", true }},
	)
	out, fired := n.Explain("x")
	if out != "A!" {
		t.Fatalf("got %q", out)
	}
	if strings.Join(fired, ",") != "a,c" {
		t.Fatalf("fired = %v", fired)
	}
}

func TestNormalizer_Append(t *testing.T) {
	n := Default()
	before := len(n.Rules())
	n.Append(Prefix("please", "", "please ", ""))
	if len(n.Rules()) != before+1 {
		t.Fatalf("append did not extend table")
	}
	if got := n.Normalize("please show first rows"); got != "show first rows" {
		t.Fatalf("got %q", got)
	}
	// the package-level table is unaffected
	if got := Normalize("please show first rows"); got != "please show first rows" {
		t.Fatalf("default table mutated: %q", got)
	}
}

func TestAccept(t *testing.T) {
	cases := []struct {
		orig, norm string
		ratio      float64
		want       bool
	}{
		{"show first 5 rows", "show first 5 rows", 0.7, false},
		{"What is the average salary", "calculate the average of salary", 0.7, true},
		{"what is the average salary of all the employees in the sales team", "calculate the average of salary", 0.7, false},
		{"abcdefghij", "abcdefg", 0.7, false},
		{"abcdefghij", "abcdefgh", 0.7, true},
		{"abcdefghij", "abc", 0.2, true},
	}
	for _, tc := range cases {
		if got := Accept(tc.orig, tc.norm, tc.ratio); got != tc.want {
			t.Fatalf("Accept(%q,%q,%v) = %v, want %v", tc.orig, tc.norm, tc.ratio, got, tc.want)
		}
	}
}
