package errtax

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/yourorg/payment-connector/internal/envelope"
)

// RuleConfig declares one classification rule as a govaluate expression over
// the gateway error material. Rules let a gateway's taxonomy be extended
// without code changes, e.g.
//
//	{Name: "throttled", Expression: "http_status == 429 || code =~ 'rate.*'", Kind: KindRateLimited}
//
// Available parameters: code, message, decline_code (lowercased strings) and
// http_status (number).
type RuleConfig struct {
	Name       string
	Expression string
	Kind       envelope.ErrorKind
	StatusHint envelope.AttemptStatus // optional
}

type compiledRule struct {
	name       string
	expr       *govaluate.EvaluableExpression
	kind       envelope.ErrorKind
	statusHint envelope.AttemptStatus
}

func compileRules(configs []RuleConfig) ([]compiledRule, error) {
	rules := make([]compiledRule, 0, len(configs))
	for _, rc := range configs {
		if rc.Name == "" || rc.Expression == "" {
			return nil, fmt.Errorf("errtax: rule name and expression are required")
		}
		if rc.Kind == "" {
			return nil, fmt.Errorf("errtax: rule %q has no error kind", rc.Name)
		}
		expr, err := govaluate.NewEvaluableExpression(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("errtax: compiling rule %q: %w", rc.Name, err)
		}
		rules = append(rules, compiledRule{
			name:       rc.Name,
			expr:       expr,
			kind:       rc.Kind,
			statusHint: rc.StatusHint,
		})
	}
	return rules, nil
}

// evalRules runs the compiled rules in declaration order and returns the
// first match. Evaluation errors skip the rule; rules never make Map fail.
func (m *Mapper) evalRules(raw RawError, httpStatus int) (envelope.ErrorKind, envelope.AttemptStatus, bool) {
	if len(m.rules) == 0 {
		return "", "", false
	}
	params := map[string]any{
		"code":         strings.ToLower(strings.TrimSpace(raw.Code)),
		"message":      strings.ToLower(raw.Message),
		"decline_code": strings.ToLower(strings.TrimSpace(raw.DeclineCode)),
		"http_status":  float64(httpStatus),
	}
	for _, rule := range m.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			continue
		}
		if matched, ok := result.(bool); ok && matched {
			return rule.kind, rule.statusHint, true
		}
	}
	return "", "", false
}
