package presence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/peergate/peergate/platform/pg"
)

const (
	pgDeletePeer = `DELETE
		FROM %s.peers
		WHERE (json_data->>'user_id')::BIGINT = $1::BIGINT`
	pgInsertPeer = `INSERT INTO %s.peers(json_data) VALUES($1)`

	pgCountPeers = `SELECT count(json_data) FROM %s.peers
		%s`
	pgListPeers = `SELECT json_data FROM %s.peers
		%s`

	pgClauseUserIDs = `(json_data->>'user_id')::BIGINT IN (?)`

	pgOrderUserID = `ORDER BY (json_data->>'user_id')::BIGINT ASC`

	pgIndexUser = `
		CREATE UNIQUE INDEX
			%s
		ON
			%s.peers(((json_data->>'user_id')::BIGINT))`

	pgCreateSchema = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.peers
		(json_data JSONB NOT NULL)`
	pgDropTable = `DROP TABLE IF EXISTS %s.peers`
)

type pgService struct {
	db *sqlx.DB
}

// PostgresService returns a Postgres based Service implementation.
func PostgresService(db *sqlx.DB) Service {
	return &pgService{db: db}
}

func (s *pgService) Delete(ns string, userID uint64) error {
	_, err := s.db.Exec(wrapNamespace(pgDeletePeer, ns), userID)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return err
			}

			_, err = s.db.Exec(wrapNamespace(pgDeletePeer, ns), userID)
		}
	}

	return err
}

func (s *pgService) Put(ns string, p *Peer) (*Peer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	ps, err := s.Query(ns, QueryOptions{
		UserIDs: []uint64{p.UserID},
	})
	if err != nil {
		return nil, err
	}

	if len(ps) > 0 {
		p.CreatedAt = ps[0].CreatedAt
	} else {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.CreatedAt = p.CreatedAt.UTC()
	}

	if p.LastSeenAt.IsZero() {
		p.LastSeenAt = now
	}
	p.LastSeenAt = p.LastSeenAt.UTC()
	p.UpdatedAt = now

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(wrapNamespace(pgDeletePeer, ns), p.UserID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	_, err = tx.Exec(wrapNamespace(pgInsertPeer, ns), data)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts)
	if err != nil {
		return nil, err
	}

	return s.listPeers(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		wrapNamespace(pgCreateSchema, ns),
		wrapNamespace(pgCreateTable, ns),
		pg.GuardIndex(ns, "peer_user", pgIndexUser),
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

func (s *pgService) listPeers(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListPeers, ns, where)

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

	ps := List{}

	for rows.Next() {
		var (
			p = &Peer{}

			raw []byte
		)

		err := rows.Scan(&raw)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(raw, p)
		if err != nil {
			return nil, err
		}

		ps = append(ps, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ps, nil
}

func convertOpts(opts QueryOptions) (string, []interface{}, error) {
	var (
		clauses = []string{}
		params  = []interface{}{}
	)

	if len(opts.UserIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.UserIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseUserIDs, ps)
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

	query = fmt.Sprintf("%s\n%s", query, pgOrderUserID)

	if opts.Limit > 0 {
		query = fmt.Sprintf("%s\nLIMIT %d", query, opts.Limit)
	}

	return query, params, nil
}

func wrapNamespace(query, namespace string) string {
	return fmt.Sprintf(query, namespace)
}
