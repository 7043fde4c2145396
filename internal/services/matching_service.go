package services

import (
	"context"
	"net/mail"
	"strings"
)

type MatcherService struct {
	Applications *ApplicationService
}

func NewMatcherService(apps *ApplicationService) *MatcherService {
	return &MatcherService{Applications: apps}
}

// FindCompanyFromEmail tries to match an email to a tracked company.
// It returns "" when nothing matches.
func (s *MatcherService) FindCompanyFromEmail(ctx context.Context, subject, rawSender string) (string, error) {
	// TODO: cache the company list between sync cycles
	companies, err := s.Applications.Companies(ctx)
	if err != nil {
		return "", err
	}
	return matchCompany(subject, rawSender, companies), nil
}

func matchCompany(subject, rawSender string, companies []string) string {
	// "Stripe Recruiting <jobs@stripe.com>" -> name="stripe recruiting", addr="jobs@stripe.com"
	senderName := ""
	senderAddr := ""
	if parsed, err := mail.ParseAddress(rawSender); err == nil {
		senderName = strings.ToLower(parsed.Name)
		senderAddr = strings.ToLower(parsed.Address)
	} else {
		senderAddr = strings.ToLower(rawSender)
	}

	domain := ""
	if parts := strings.Split(senderAddr, "@"); len(parts) == 2 {
		domain = parts[1]
	}

	subjectLower := strings.ToLower(subject)

	for _, company := range companies {
		name := strings.ToLower(strings.TrimSpace(company))
		// Very short names ("X", "Go") match everything.
		if len(name) < 3 {
			continue
		}

		// Subject line: "Update on your application to Stripe"
		if strings.Contains(subjectLower, name) {
			return company
		}
		// Sender display name: "Stripe Recruiting"
		if senderName != "" && strings.Contains(senderName, name) {
			return company
		}
		// Sender domain only, never the local part: "jobs@stripe.com"
		if domain != "" && strings.Contains(domain, name) {
			return company
		}
	}
	return ""
}
