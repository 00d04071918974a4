package request

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/peergate/peergate/platform/flake"
	"github.com/peergate/peergate/platform/pg"
)

const (
	pgInsertRequest = `INSERT INTO %s.requests(json_data) VALUES($1)`
	pgUpdateRequest = `
		UPDATE
			%s.requests
		SET
			json_data = $1
		WHERE
			(json_data->>'id')::BIGINT = $2::BIGINT`
	pgAcceptRequest = `
		UPDATE
			%s.requests
		SET
			json_data = json_data
				|| jsonb_build_object('accepted', true)
				|| jsonb_build_object('updated_at', $2::TEXT)
		WHERE
			(json_data->>'id')::BIGINT = $1::BIGINT
			AND (json_data->>'accepted')::BOOL = false
			AND (json_data->>'cancelled')::BOOL = false
			AND (json_data->>'rejected')::BOOL = false`
	pgDeleteRequest = `
		DELETE FROM
			%s.requests
		WHERE
			(json_data->>'id')::BIGINT = $1::BIGINT`

	pgClauseAccepted    = `(json_data->>'accepted')::BOOL = ?::BOOL`
	pgClauseBefore      = `json_data->>'created_at' < ?`
	pgClauseCancelled   = `(json_data->>'cancelled')::BOOL = ?::BOOL`
	pgClauseIDs         = `(json_data->>'id')::BIGINT IN (?)`
	pgClauseReceiverIDs = `(json_data->>'receiver_id')::BIGINT IN (?)`
	pgClauseRejected    = `(json_data->>'rejected')::BOOL = ?::BOOL`
	pgClauseSenderIDs   = `(json_data->>'sender_id')::BIGINT IN (?)`

	pgOrderCreatedAt = `ORDER BY json_data->>'created_at' DESC`

	pgCountRequests = `SELECT count(json_data) FROM %s.requests
		%s`
	pgListRequests = `SELECT json_data FROM %s.requests
		%s`

	pgCreateSchema = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.requests
		(json_data JSONB NOT NULL)`
	pgDropTable = `DROP TABLE IF EXISTS %s.requests`

	pgIndexID = `
		CREATE UNIQUE INDEX
			%s
		ON
			%s.requests(((json_data->>'id')::BIGINT))`
	pgIndexReceiver = `
		CREATE INDEX
			%s
		ON
			%s.requests(((json_data->>'receiver_id')::BIGINT))`
	pgIndexSender = `
		CREATE INDEX
			%s
		ON
			%s.requests(((json_data->>'sender_id')::BIGINT))`
)

type pgService struct {
	db *sqlx.DB
}

// PostgresService returns a Postgres based Service implementation.
func PostgresService(db *sqlx.DB) Service {
	return &pgService{db: db}
}

func (s *pgService) Accept(ns string, id uint64) (*Request, error) {
	var (
		now    = time.Now().UTC().Format(time.RFC3339Nano)
		params = []interface{}{id, now}
	)

	res, err := s.db.Exec(wrapNamespace(pgAcceptRequest, ns), params...)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return nil, err
			}

			res, err = s.db.Exec(wrapNamespace(pgAcceptRequest, ns), params...)
		}

		if err != nil {
			return nil, err
		}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	rs, err := s.Query(ns, QueryOptions{
		IDs: []uint64{id},
	})
	if err != nil {
		return nil, err
	}

	if len(rs) == 0 {
		return nil, wrapError(ErrNotFound, "request (%d) not found", id)
	}

	if affected == 0 {
		return nil, wrapError(ErrNotLive, "request (%d)", id)
	}

	return rs[0], nil
}

func (s *pgService) Count(ns string, opts QueryOptions) (int, error) {
	where, params, err := convertOpts(opts, orderNone)
	if err != nil {
		return 0, err
	}

	return s.countRequests(ns, where, params...)
}

func (s *pgService) Delete(ns string, id uint64) error {
	res, err := s.db.Exec(wrapNamespace(pgDeleteRequest, ns), id)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return err
			}

			res, err = s.db.Exec(wrapNamespace(pgDeleteRequest, ns), id)
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
		return wrapError(ErrNotFound, "request (%d) not found", id)
	}

	return nil
}

func (s *pgService) Put(ns string, r *Request) (*Request, error) {
	var (
		now   = time.Now().UTC()
		query = pgUpdateRequest

		params []interface{}
	)

	if err := r.Validate(); err != nil {
		return nil, err
	}

	if r.ID != 0 {
		params = []interface{}{
			r.ID,
		}

		rs, err := s.Query(ns, QueryOptions{
			IDs: []uint64{
				r.ID,
			},
		})
		if err != nil {
			return nil, err
		}

		if len(rs) == 0 {
			return nil, ErrNotFound
		}

		r.CreatedAt = rs[0].CreatedAt
	} else {
		id, err := flake.NextID(flakeNamespace(ns))
		if err != nil {
			return nil, err
		}

		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.ID = id

		if r.RequestedAt.IsZero() {
			r.RequestedAt = r.CreatedAt
		}
	}

	r.RequestedAt = r.RequestedAt.UTC()
	r.UpdatedAt = now

	data, err := json.Marshal(r)
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
	}

	return r, err
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts, orderCreatedAt)
	if err != nil {
		return nil, err
	}

	return s.listRequests(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		wrapNamespace(pgCreateSchema, ns),
		wrapNamespace(pgCreateTable, ns),
		pg.GuardIndex(ns, "request_id", pgIndexID),
		pg.GuardIndex(ns, "request_receiver", pgIndexReceiver),
		pg.GuardIndex(ns, "request_sender", pgIndexSender),
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

func (s *pgService) countRequests(
	ns, where string,
	params ...interface{},
) (int, error) {
	var (
		count = 0
		query = fmt.Sprintf(pgCountRequests, ns, where)
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

func (s *pgService) listRequests(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListRequests, ns, where)

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

	rs := List{}

	for rows.Next() {
		var (
			r = &Request{}

			raw []byte
		)

		err := rows.Scan(&raw)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(raw, r)
		if err != nil {
			return nil, err
		}

		rs = append(rs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rs, nil
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

	if opts.Accepted != nil {
		clause, _, err := sqlx.In(pgClauseAccepted, []interface{}{*opts.Accepted})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Accepted)
	}

	if !opts.Before.IsZero() {
		clauses = append(clauses, pgClauseBefore)
		params = append(params, opts.Before.UTC().Format(time.RFC3339Nano))
	}

	if opts.Cancelled != nil {
		clause, _, err := sqlx.In(pgClauseCancelled, []interface{}{*opts.Cancelled})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Cancelled)
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

	if len(opts.ReceiverIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.ReceiverIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseReceiverIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if opts.Rejected != nil {
		clause, _, err := sqlx.In(pgClauseRejected, []interface{}{*opts.Rejected})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Rejected)
	}

	if len(opts.SenderIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.SenderIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseSenderIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
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
