// Package mail is the outbound email collaborator. Only password reset uses
// it today.
package mail

// Sender delivers transactional mail. Implementations must not leak whether
// the recipient address exists anywhere upstream.
type Sender interface {
	SendPasswordReset(to, resetURL string) error
}

// NoopSender is used when no mail server is configured; sends vanish.
type NoopSender struct{}

func (NoopSender) SendPasswordReset(string, string) error { return nil }
