// Package repository implements the service store interfaces on MySQL.
// Driver errors are translated here so services only ever see apperr codes
// for the cases they act on: a unique-key violation becomes DUPLICATE_ENTRY
// and a missing row becomes NOT_FOUND. Everything else is returned wrapped
// and surfaces as STORE_UNAVAILABLE.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/pharmapin/pharmapin/internal/apperr"
)

const errDuplicateKey = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateKey
}

// translate maps driver errors onto apperr codes. what names the entity for
// messages.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apperr.New(apperr.CodeNotFound, what+" not found")
	case isDuplicate(err):
		return apperr.Wrap(apperr.CodeDuplicateEntry, what+" already exists", err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeArg builds a case-insensitive substring pattern for LIKE. Wildcards in
// s match literally, using LIKE's default backslash escape.
func likeArg(s string) string { return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%" }

func joinList(items []string) string { return strings.Join(items, ",") }

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return "1=1"
	}
	return strings.Join(conds, " AND ")
}
