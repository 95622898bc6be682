package auth

import "time"

// Strategy issues and verifies tokens presented by collaborator services
// calling the ledger and withdrawal APIs.
type Strategy interface {
	IssueToken(caller string) (string, error)
	ParseToken(token string) (string, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
