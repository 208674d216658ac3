package postgres

import (
	"time"

	"github.com/fastygo/todo/domain"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullPriority(p *domain.Priority) interface{} {
	if p == nil {
		return nil
	}
	return int16(*p)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
