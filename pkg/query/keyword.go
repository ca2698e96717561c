package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
)

// term finds one keyword in record content.
type term struct {
	literal string
	re      *regexp.Regexp
}

func compileTerm(k model.Keyword, caseSensitive bool) (*term, error) {
	if k.CaseSensitive != nil {
		caseSensitive = *k.CaseSensitive
	}

	// plain case-sensitive substring is the common path
	if !k.Regex && !k.WholeWord && caseSensitive {
		return &term{literal: k.Query}, nil
	}

	expr := k.Query
	if !k.Regex {
		expr = regexp.QuoteMeta(expr)
	}
	if k.WholeWord {
		expr = `\b(?:` + expr + `)\b`
	}
	if !caseSensitive {
		expr = `(?i)` + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "invalid keyword regex: "+err.Error(),
			goerr.V("keyword", k.Query),
			goerr.V("error", err.Error()))
	}
	return &term{re: re}, nil
}

func (t *term) found(content string) bool {
	if t.re != nil {
		return t.re.MatchString(content)
	}
	return strings.Contains(content, t.literal)
}

func (t *term) positions(content string) []model.MatchPosition {
	var out []model.MatchPosition
	if t.re != nil {
		for _, loc := range t.re.FindAllStringIndex(content, -1) {
			if loc[1] > loc[0] {
				out = append(out, model.MatchPosition{Offset: loc[0], Length: loc[1] - loc[0]})
			}
		}
		return out
	}

	for from := 0; from < len(content); {
		i := strings.Index(content[from:], t.literal)
		if i < 0 {
			break
		}
		out = append(out, model.MatchPosition{Offset: from + i, Length: len(t.literal)})
		from += i + len(t.literal)
	}
	return out
}

// Matcher evaluates a LogicalQuery: every must term, at least one any term
// when any is non-empty, and no none term.
type Matcher struct {
	must []*term
	any  []*term
	none []*term
}

// NewMatcher compiles q. Blank keywords are ignored. caseSensitive applies to
// keywords that do not set their own flag.
func NewMatcher(q model.LogicalQuery, caseSensitive bool) (*Matcher, error) {
	compile := func(keywords []model.Keyword) ([]*term, error) {
		var terms []*term
		for _, k := range keywords {
			if k.Query == "" {
				continue
			}
			t, err := compileTerm(k, caseSensitive)
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		return terms, nil
	}

	var m Matcher
	var err error
	if m.must, err = compile(q.Must); err != nil {
		return nil, err
	}
	if m.any, err = compile(q.Any); err != nil {
		return nil, err
	}
	if m.none, err = compile(q.None); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Matcher) Match(content string) bool {
	for _, t := range m.must {
		if !t.found(content) {
			return false
		}
	}
	for _, t := range m.none {
		if t.found(content) {
			return false
		}
	}
	if len(m.any) == 0 {
		return true
	}
	for _, t := range m.any {
		if t.found(content) {
			return true
		}
	}
	return false
}

// Positions returns the byte ranges of must and any matches in content,
// ordered by offset, without duplicates.
func (m *Matcher) Positions(content string) []model.MatchPosition {
	var out []model.MatchPosition
	for _, terms := range [][]*term{m.must, m.any} {
		for _, t := range terms {
			out = append(out, t.positions(content)...)
		}
	}
	if len(out) == 0 {
		return nil
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset < out[j].Offset
		}
		return out[i].Length < out[j].Length
	})

	uniq := out[:1]
	for _, p := range out[1:] {
		if p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}
	return uniq
}
