package mail

import (
	"fmt"
	"net/smtp"
)

type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

func NewSMTPSender(host string, port int, username, password, sender string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, Username: username, Password: password, Sender: sender}
}

func (s *SMTPSender) SendPasswordReset(to, resetURL string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"Someone requested a password reset for your account.\r\n\r\n"+
			"Open this link to choose a new password:\r\n%s\r\n\r\n"+
			"The link expires in one hour. If you didn't ask for this, ignore this email.\r\n",
		resetURL)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.Sender, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	return smtp.SendMail(addr, auth, s.Sender, []string{to}, []byte(msg))
}
