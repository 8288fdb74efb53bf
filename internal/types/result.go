package types

// CheckID names a check in the engine registry.
type CheckID string

// Known check identifiers.
const (
	CheckFilesystem   CheckID = "filesystem"
	CheckIngress      CheckID = "ingress"
	CheckEtcHosts     CheckID = "etc-hosts"
	CheckCerts        CheckID = "certs"
	CheckTimezone     CheckID = "timezone"
	CheckInstanceType CheckID = "instance-type"
	CheckDNS          CheckID = "dns"
	CheckService      CheckID = "service"
)

// OutcomeStatus is the binary result of a single check invocation.
type OutcomeStatus string

const (
	// OutcomeOK means the expectation was met.
	OutcomeOK OutcomeStatus = "ok"
	// OutcomeError means the expectation was not met or the fact could not be read.
	OutcomeError OutcomeStatus = "error"
)

// CheckOutcome is produced once per check invocation and never mutated.
// Message is always non-empty for OutcomeError.
type CheckOutcome struct {
	Check   CheckID       `json:"check"`
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
}

// OK reports whether the outcome passed.
func (o CheckOutcome) OK() bool {
	return o.Status == OutcomeOK
}

// Pass builds a passing outcome.
func Pass(check CheckID, message string) CheckOutcome {
	return CheckOutcome{Check: check, Status: OutcomeOK, Message: message}
}

// Fail builds a failing outcome. An empty message is replaced with a generic one.
func Fail(check CheckID, message string) CheckOutcome {
	if message == "" {
		message = string(check) + " check failed"
	}
	return CheckOutcome{Check: check, Status: OutcomeError, Message: message}
}
