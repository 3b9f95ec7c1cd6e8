package bridge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/relayhq/relay/internal/script/state"
)

// hostAssert evaluates one matcher and records the outcome on the
// currently active test descriptor. It never throws: a failing
// assertion must not stop sibling assertions in the same body.
func (c *Capabilities) hostAssert(actual goja.Value, matcher string, expected goja.Value) bool {
	a := exportPlain(actual)
	e := exportPlain(expected)

	ok, detail := evalMatcher(a, matcher, e)

	status := state.StatusPass
	if !ok {
		status = state.StatusFail
	}
	c.reg.Record(status, detail)
	return ok
}

func exportPlain(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return v.Export()
}

// evalMatcher applies one named matcher. Unknown matcher names fail the
// assertion with a diagnostic rather than throwing.
func evalMatcher(actual interface{}, matcher string, expected interface{}) (bool, string) {
	desc := fmt.Sprintf("%s %s %s", display(actual), matcher, display(expected))
	switch matcher {
	case "eq":
		return looseEqual(actual, expected), desc
	case "neq":
		return !looseEqual(actual, expected), desc
	case "gt", "gte", "lt", "lte":
		an, aok := toNumber(actual)
		en, eok := toNumber(expected)
		if !aok || !eok {
			return false, desc + " (not comparable as numbers)"
		}
		switch matcher {
		case "gt":
			return an > en, desc
		case "gte":
			return an >= en, desc
		case "lt":
			return an < en, desc
		default:
			return an <= en, desc
		}
	case "contains":
		return strings.Contains(toString(actual), toString(expected)), desc
	case "notcontains":
		return !strings.Contains(toString(actual), toString(expected)), desc
	case "exists":
		return actual != nil, fmt.Sprintf("%s exists", display(actual))
	case "notexists":
		return actual == nil, fmt.Sprintf("%s notexists", display(actual))
	case "matches":
		re, err := regexp.Compile(toString(expected))
		if err != nil {
			return false, desc + " (invalid pattern)"
		}
		return re.MatchString(toString(actual)), desc
	case "type":
		return typeName(actual) == toString(expected), fmt.Sprintf("typeof %s is %s", display(actual), display(expected))
	default:
		return false, fmt.Sprintf("unknown matcher %q", matcher)
	}
}

// looseEqual compares numbers numerically and everything else by string
// form, mirroring how guests compare env values and response fields
func looseEqual(a, b interface{}) bool {
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return an == bn
		}
	}
	return toString(a) == toString(b)
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64, int:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	}
	return "object"
}

func display(v interface{}) string {
	if v == nil {
		return "undefined"
	}
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", v)
}
