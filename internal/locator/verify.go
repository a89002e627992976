package locator

import (
	"fmt"

	"element-locator/internal/dom"
	"element-locator/internal/query"
)

// Verdict is the outcome of a uniqueness check. A selector the engine cannot
// parse is reported as not OK with the parse error in Reason.
type Verdict struct {
	OK      bool
	Matches int
	Reason  string
}

type Verifier struct {
	doc    *dom.Document
	engine *query.Engine
}

func NewVerifier(doc *dom.Document, engine *query.Engine) Verifier {
	if engine == nil {
		engine = query.Default()
	}

	return Verifier{doc: doc, engine: engine}
}

// Unique reports whether selector matches exactly one element of the whole
// document.
func (v Verifier) Unique(selector string) Verdict {
	matches, err := v.engine.SelectAll(v.doc.Root(), selector)
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("invalid selector: %v", err)}
	}

	verdict := Verdict{OK: len(matches) == 1, Matches: len(matches)}
	if !verdict.OK {
		verdict.Reason = fmt.Sprintf("matches %d elements", len(matches))
	}

	return verdict
}
