package models

// All lists every table owned by the service, in migration order.
func All() []any {
	return []any{
		&Contact{},
		&Invoice{},
		&Payment{},
		&BankTransaction{},
		&MatchAuditLog{},
		&AutoMatchRun{},
	}
}
