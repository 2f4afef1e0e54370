package match

import (
	"bytes"
	"strings"

	"i4.energy/across/atlink/at"
)

// Rule maps a marker to the outcome it produces.
type Rule struct {
	Pattern []byte
	// Until, when set, must occur after Pattern for the rule to match. It
	// is used to wait for the end of a line that starts with Pattern.
	Until  []byte
	Result Outcome
}

// Spec is an ordered set of rules. The first rule is the success rule by
// convention; Expect builds specs in that shape.
type Spec struct {
	Rules []Rule
}

// Expect returns a spec whose success marker is success, followed by the
// given failure rules.
func Expect(success string, failures ...Rule) Spec {
	rules := make([]Rule, 0, len(failures)+1)
	rules = append(rules, Rule{Pattern: []byte(success), Result: OK()})
	rules = append(rules, failures...)
	return Spec{Rules: rules}
}

// Fail returns a rule reporting a protocol error with reason when pattern
// is seen.
func Fail(pattern, reason string) Rule {
	return Rule{Pattern: []byte(pattern), Result: Failure(reason)}
}

// Line returns a rule that completes once a full line starting with
// pattern has arrived.
func Line(pattern string, result Outcome) Rule {
	return Rule{Pattern: []byte(pattern), Until: []byte(at.CRLF), Result: result}
}

// With returns a copy of s with extra rules appended.
func (s Spec) With(rules ...Rule) Spec {
	out := make([]Rule, 0, len(s.Rules)+len(rules))
	out = append(out, s.Rules...)
	out = append(out, rules...)
	return Spec{Rules: out}
}

// Empty reports whether the spec has no rules.
func (s Spec) Empty() bool { return len(s.Rules) == 0 }

// Scan searches buf for the leftmost complete occurrence of any rule's
// pattern. Ties on the start offset go to the earlier rule. It reports
// false when nothing matched yet.
func (s Spec) Scan(buf []byte) (Outcome, bool) {
	best := -1
	var result Outcome
	for _, r := range s.Rules {
		if len(r.Pattern) == 0 {
			continue
		}
		i := bytes.Index(buf, r.Pattern)
		if i < 0 {
			continue
		}
		if len(r.Until) > 0 && !bytes.Contains(buf[i+len(r.Pattern):], r.Until) {
			continue
		}
		if best < 0 || i < best {
			best = i
			result = r.Result
		}
	}
	return result, best >= 0
}

// Scan is a convenience wrapper for spec.Scan(buf).
func Scan(buf []byte, spec Spec) (Outcome, bool) {
	return spec.Scan(buf)
}

// AT is the final-result spec of a plain AT command.
func AT() Spec {
	return Expect(at.OK,
		Fail(at.ERROR, ReasonError),
		Fail(at.CmeError, ReasonCME),
		Fail(at.CmsError, ReasonCMS),
		Fail(at.NoCarrier, ReasonNoCarrier),
	)
}

// Send is the spec of a data transmission command answered with SEND OK.
func Send() Spec {
	return Expect(at.SendOK,
		Fail(at.SendFail, ReasonSendFail),
		Fail(at.ERROR, ReasonError),
	)
}

// PeerLink waits for a Bluetooth peer to connect.
func PeerLink() Spec {
	return Expect(at.PeerConnected,
		Fail(at.PeerDisconnected, ReasonPeerDisconnected),
		Fail(at.NoPeers, ReasonNoPeers),
	)
}

// Sentence waits for one complete line starting with tag.
func Sentence(tag string) Spec {
	return Spec{Rules: []Rule{Line(tag, OK())}}
}

// ReasonFor returns the failure class reported for a known failure marker.
// Unknown markers are turned into a lower-case, underscore separated name.
func ReasonFor(pattern string) string {
	switch pattern {
	case at.ERROR:
		return ReasonError
	case at.SendFail:
		return ReasonSendFail
	case at.CmeError:
		return ReasonCME
	case at.CmsError:
		return ReasonCMS
	case at.NoCarrier:
		return ReasonNoCarrier
	case at.PeerDisconnected:
		return ReasonPeerDisconnected
	case at.NoPeers:
		return ReasonNoPeers
	}
	reason := strings.ToLower(strings.TrimSpace(pattern))
	reason = strings.Trim(reason, "+:")
	return strings.Join(strings.Fields(reason), "_")
}
