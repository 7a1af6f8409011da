package access

// Evaluator combines rule verdicts into a single decision. It holds no state
// beyond its fixed rule list and is constructed once at startup; decisions are
// computed fresh on every call and never cached.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator constructs an Evaluator from the supplied rules, filtering nil
// entries. Rule order is preserved and determines short-circuit behavior.
func NewEvaluator(rules ...Rule) *Evaluator {
	filtered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return &Evaluator{rules: filtered}
}

// Decide evaluates the rules against the snapshot. Any Deny wins immediately
// regardless of grants seen before or after it. With no deny, at least one
// Grant allows; all-abstain denies with ReasonNoGrant. An evaluator with no
// rules therefore denies everything.
func (e *Evaluator) Decide(s Snapshot, required Right) Decision {
	granted := false
	for _, r := range e.rules {
		switch r.Evaluate(s, required) {
		case VerdictDeny:
			return Decision{Allowed: false, Reason: ReasonExplicitlyDenied}
		case VerdictGrant:
			granted = true
		case VerdictAbstain:
		}
	}
	if granted {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Reason: ReasonNoGrant}
}

// RuleVerdict pairs a rule name with the verdict it returned, for diagnostic
// output.
type RuleVerdict struct {
	Rule    string
	Verdict Verdict
}

// Explain evaluates every rule without short-circuiting and returns the
// per-rule verdicts alongside the combined decision. Intended for operator
// tooling; request paths use Decide.
func (e *Evaluator) Explain(s Snapshot, required Right) ([]RuleVerdict, Decision) {
	verdicts := make([]RuleVerdict, 0, len(e.rules))
	denied := false
	granted := false
	for _, r := range e.rules {
		v := r.Evaluate(s, required)
		verdicts = append(verdicts, RuleVerdict{Rule: r.Name(), Verdict: v})
		switch v {
		case VerdictDeny:
			denied = true
		case VerdictGrant:
			granted = true
		case VerdictAbstain:
		}
	}
	switch {
	case denied:
		return verdicts, Decision{Allowed: false, Reason: ReasonExplicitlyDenied}
	case granted:
		return verdicts, Decision{Allowed: true}
	default:
		return verdicts, Decision{Allowed: false, Reason: ReasonNoGrant}
	}
}
