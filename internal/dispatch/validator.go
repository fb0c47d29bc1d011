package dispatch

import (
	"strings"

	"github.com/ignite/mail-dispatch/internal/domain"
)

// Partition splits recipients into syntactically valid and invalid
// addresses. The partition is stable: relative order within each
// output matches input order. Syntax only; no DNS or mailbox check.
func Partition(recipients []domain.Recipient) (valid, invalid []domain.Recipient) {
	for _, r := range recipients {
		if isValidEmail(r.Email) {
			valid = append(valid, r)
		} else {
			invalid = append(invalid, r)
		}
	}
	return valid, invalid
}

// isValidEmail checks the general local@domain.tld shape: no
// whitespace, exactly one @, non-empty local part, and a dot in the
// domain with non-empty segments on both sides.
func isValidEmail(email string) bool {
	if len(email) < 5 || len(email) > 254 {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	if strings.Count(email, "@") != 1 {
		return false
	}
	at := strings.Index(email, "@")
	if at < 1 {
		return false
	}
	domainPart := email[at+1:]
	dot := strings.LastIndex(domainPart, ".")
	if dot < 1 || dot >= len(domainPart)-1 {
		return false
	}
	return true
}
