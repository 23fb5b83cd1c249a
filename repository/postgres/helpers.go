package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/qrmenu/backend/domain"
)

// SQLSTATE classes the audit tables can raise: unique_violation on the
// (organization_id, version) index, and raise_exception from the
// append-only triggers.
const (
	codeUniqueViolation = "23505"
	codeRaiseException  = "P0001"
)

// mapPgError translates store-level constraint failures into domain errors.
// Everything else passes through untouched for the usecase layer to wrap.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return domain.ErrVersionConflict
	case codeRaiseException:
		if strings.Contains(pgErr.Message, "append-only") {
			return domain.ErrImmutabilityViolation
		}
	}
	return err
}

func marshalMap(data map[string]any) []byte {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return b
}

func unmarshalMap(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
