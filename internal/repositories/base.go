package repositories

import (
	"database/sql"
	"errors"
	"strings"

	intconfig "tourbooking/internal/config"
	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"

	"github.com/go-sql-driver/mysql"
)

// conn resolves the querier for a repository: the bound transaction, the
// injected DB, or the shared connection.
type conn struct {
	DB *sql.DB
	tx *sql.Tx
}

func (c conn) q() intdb.Querier {
	if c.tx != nil {
		return c.tx
	}
	if c.DB != nil {
		return c.DB
	}
	return intconfig.DB
}

func notFound(resource string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: resource, Err: err}
	}
	return err
}

// isDuplicate detects a unique-key violation (MySQL 1062).
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func like(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}

func orderBy(field string, desc bool, allowed map[string]string, def string) string {
	col, ok := allowed[field]
	if !ok {
		return def
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
