package code

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/peergate/peergate/platform/flake"
	"github.com/peergate/peergate/platform/pg"
)

const (
	pgInsertCode = `INSERT INTO %s.codes(json_data) VALUES($1)`
	pgUpdateCode = `
		UPDATE
			%s.codes
		SET
			json_data = $1
		WHERE
			(json_data->>'id')::BIGINT = $2::BIGINT`
	pgClaimCode = `
		UPDATE
			%s.codes
		SET
			json_data = json_data
				|| jsonb_build_object('used', true)
				|| jsonb_build_object('used_by_id', $2::BIGINT)
				|| jsonb_build_object('updated_at', $3::TEXT)
		WHERE
			(json_data->>'code')::TEXT = $1::TEXT
			AND (json_data->>'used')::BOOL = false
			AND (json_data->>'deleted')::BOOL = false`
	pgReleaseCode = `
		UPDATE
			%s.codes
		SET
			json_data = json_data
				|| jsonb_build_object('used', false)
				|| jsonb_build_object('used_by_id', 0)
				|| jsonb_build_object('updated_at', $2::TEXT)
		WHERE
			(json_data->>'code')::TEXT = $1::TEXT
			AND (json_data->>'used')::BOOL = true`

	pgClauseCodes    = `(json_data->>'code')::TEXT IN (?)`
	pgClauseDeleted  = `(json_data->>'deleted')::BOOL = ?::BOOL`
	pgClauseIDs      = `(json_data->>'id')::BIGINT IN (?)`
	pgClauseOwnerIDs = `(json_data->>'owner_id')::BIGINT IN (?)`
	pgClauseUsed     = `(json_data->>'used')::BOOL = ?::BOOL`

	pgOrderCreatedAt = `ORDER BY json_data->>'created_at' DESC`

	pgCountCodes = `SELECT count(json_data) FROM %s.codes
		%s`
	pgListCodes = `SELECT json_data FROM %s.codes
		%s`

	pgCreateSchema = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.codes
		(json_data JSONB NOT NULL)`
	pgDropTable = `DROP TABLE IF EXISTS %s.codes`

	pgIndexCode = `
		CREATE UNIQUE INDEX
			%s
		ON
			%s.codes(((json_data->>'code')::TEXT))
		WHERE
			(json_data->>'deleted')::BOOL = false`
	pgIndexOwnerUnused = `
		CREATE INDEX
			%s
		ON
			%s.codes(((json_data->>'owner_id')::BIGINT))
		WHERE
			(json_data->>'used')::BOOL = false
			AND (json_data->>'deleted')::BOOL = false`
)

type pgService struct {
	db *sqlx.DB
}

// PostgresService returns a Postgres based Service implementation.
func PostgresService(db *sqlx.DB) Service {
	return &pgService{db: db}
}

func (s *pgService) Claim(ns, codeValue string, userID uint64) (*Code, error) {
	var (
		now    = time.Now().UTC().Format(time.RFC3339Nano)
		params = []interface{}{codeValue, userID, now}
	)

	res, err := s.db.Exec(wrapNamespace(pgClaimCode, ns), params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			res, err = s.db.Exec(wrapNamespace(pgClaimCode, ns), params...)
		}

		if err != nil {
			return nil, err
		}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		cs, err := s.Query(ns, QueryOptions{
			Codes: []string{codeValue},
		})
		if err != nil {
			return nil, err
		}

		if len(cs) == 0 || cs[0].Deleted {
			return nil, wrapError(ErrNotFound, "code (%s) not found", codeValue)
		}

		return nil, wrapError(ErrAlreadyUsed, "code (%s)", codeValue)
	}

	cs, err := s.Query(ns, QueryOptions{
		Codes: []string{codeValue},
	})
	if err != nil {
		return nil, err
	}

	return cs[0], nil
}

func (s *pgService) Count(ns string, opts QueryOptions) (int, error) {
	where, params, err := convertOpts(opts, orderNone)
	if err != nil {
		return 0, err
	}

	return s.countCodes(ns, where, params...)
}

func (s *pgService) Put(ns string, c *Code) (*Code, error) {
	var (
		now   = time.Now().UTC()
		query = pgUpdateCode

		params []interface{}
	)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.ID != 0 {
		params = []interface{}{
			c.ID,
		}

		cs, err := s.Query(ns, QueryOptions{
			IDs: []uint64{
				c.ID,
			},
		})
		if err != nil {
			return nil, err
		}

		if len(cs) == 0 {
			return nil, ErrNotFound
		}

		c.CreatedAt = cs[0].CreatedAt
	} else {
		id, err := flake.NextID(flakeNamespace(ns))
		if err != nil {
			return nil, err
		}

		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.ID = id

		query = pgInsertCode
	}

	c.UpdatedAt = now

	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	params = append([]interface{}{data}, params...)

	_, err = s.db.Exec(wrapNamespace(query, ns), params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			_, err = s.db.Exec(wrapNamespace(query, ns), params...)
		}

		if pg.IsNotUnique(pg.WrapError(err)) {
			return nil, wrapError(ErrNotUnique, "code (%s) taken", c.Code)
		}
	}

	return c, err
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts, orderCreatedAt)
	if err != nil {
		return nil, err
	}

	return s.listCodes(ns, where, params...)
}

func (s *pgService) Release(ns, codeValue string) error {
	var (
		now    = time.Now().UTC().Format(time.RFC3339Nano)
		params = []interface{}{codeValue, now}
	)

	res, err := s.db.Exec(wrapNamespace(pgReleaseCode, ns), params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return err
			}

			res, err = s.db.Exec(wrapNamespace(pgReleaseCode, ns), params...)
		}

		if err != nil {
			return err
		}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return wrapError(ErrNotFound, "code (%s) not claimed", codeValue)
	}

	return nil
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		wrapNamespace(pgCreateSchema, ns),
		wrapNamespace(pgCreateTable, ns),
		pg.GuardIndex(ns, "code_code", pgIndexCode),
		pg.GuardIndex(ns, "code_owner_unused", pgIndexOwnerUnused),
	}

	for _, query := range qs {
		_, err := s.db.Exec(query)
		if err != nil {
			return fmt.Errorf("query (%s): %s", query, err)
		}
	}

	return nil
}

func (s *pgService) Teardown(ns string) error {
	_, err := s.db.Exec(wrapNamespace(pgDropTable, ns))
	return err
}

func (s *pgService) countCodes(
	ns, where string,
	params ...interface{},
) (int, error) {
	var (
		count = 0
		query = fmt.Sprintf(pgCountCodes, ns, where)
	)

	err := s.db.Get(&count, query, params...)
	if err != nil && pg.IsRelationNotFound(pg.WrapError(err)) {
		if err := s.Setup(ns); err != nil {
			return 0, err
		}

		err = s.db.Get(&count, query, params...)
	}

	return count, err
}

func (s *pgService) listCodes(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListCodes, ns, where)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			rows, err = s.db.Query(query, params...)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}
	defer rows.Close()

	cs := List{}

	for rows.Next() {
		var (
			c = &Code{}

			raw []byte
		)

		err := rows.Scan(&raw)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(raw, c)
		if err != nil {
			return nil, err
		}

		cs = append(cs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cs, nil
}

const (
	orderNone ordering = iota
	orderCreatedAt
)

type ordering int

func convertOpts(opts QueryOptions, order ordering) (string, []interface{}, error) {
	var (
		clauses = []string{}
		params  = []interface{}{}
	)

	if len(opts.Codes) > 0 {
		ps := []interface{}{}

		for _, c := range opts.Codes {
			ps = append(ps, c)
		}

		clause, _, err := sqlx.In(pgClauseCodes, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if opts.Deleted != nil {
		clause, _, err := sqlx.In(pgClauseDeleted, []interface{}{*opts.Deleted})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Deleted)
	}

	if len(opts.IDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.IDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if len(opts.OwnerIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.OwnerIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseOwnerIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if opts.Used != nil {
		clause, _, err := sqlx.In(pgClauseUsed, []interface{}{*opts.Used})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Used)
	}

	query := ""

	if len(clauses) > 0 {
		query = sqlx.Rebind(sqlx.DOLLAR, pg.ClausesToWhere(clauses...))
	}

	if order == orderCreatedAt {
		query = fmt.Sprintf("%s\n%s", query, pgOrderCreatedAt)
	}

	if opts.Limit > 0 {
		query = fmt.Sprintf("%s\nLIMIT %d", query, opts.Limit)
	}

	return query, params, nil
}

func wrapNamespace(query, namespace string) string {
	return fmt.Sprintf(query, namespace)
}
