package friend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/peergate/peergate/platform/pg"
)

const (
	orderNone ordering = iota
	orderUpdatedAt
)

const (
	pgInsertFriend = `INSERT INTO %s.friends(json_data) VALUES($1)`
	pgUpdateFriend = `UPDATE %s.friends
		SET json_data = $3
		WHERE (json_data->>'user_id')::BIGINT = $1::BIGINT
		AND (json_data->>'friend_id')::BIGINT = $2::BIGINT`

	pgCountFriends = `SELECT count(json_data) FROM %s.friends
		%s`
	pgListFriends = `SELECT json_data FROM %s.friends
		%s`

	pgClauseActive    = `(json_data->>'active')::BOOL = ?::BOOL`
	pgClauseBefore    = `json_data->>'updated_at' < ?`
	pgClauseFriendIDs = `(json_data->>'friend_id')::BIGINT IN (?)`
	pgClauseUserIDs   = `(json_data->>'user_id')::BIGINT IN (?)`

	pgOrderUpdatedAt = `ORDER BY json_data->>'updated_at' DESC`

	pgIndexActiveOrigin = `
		CREATE INDEX
			%s
		ON
			%s.friends(((json_data->>'user_id')::BIGINT))
		WHERE
			(json_data->>'active')::BOOL = true`
	pgIndexActiveTarget = `
		CREATE INDEX
			%s
		ON
			%s.friends(((json_data->>'friend_id')::BIGINT))
		WHERE
			(json_data->>'active')::BOOL = true`
	pgIndexPair = `
		CREATE UNIQUE INDEX
			%s
		ON
			%s.friends(((json_data->>'user_id')::BIGINT), ((json_data->>'friend_id')::BIGINT))`

	pgCreateSchema = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.friends
		(json_data JSONB NOT NULL)`
	pgDropTable = `DROP TABLE IF EXISTS %s.friends`
)

type ordering int

type pgService struct {
	db *sqlx.DB
}

// PostgresService returns a Postgres based Service implementation.
func PostgresService(db *sqlx.DB) Service {
	return &pgService{db: db}
}

func (s *pgService) Count(ns string, opts QueryOptions) (int, error) {
	where, params, err := convertOpts(opts, orderNone)
	if err != nil {
		return 0, err
	}

	return s.countFriends(ns, where, params...)
}

func (s *pgService) Put(ns string, f *Friend) (*Friend, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		now    = time.Now().UTC()
		params = []interface{}{f.UserID, f.FriendID}

		query string
	)

	fs, err := s.Query(ns, QueryOptions{
		FriendIDs: []uint64{
			f.FriendID,
		},
		UserIDs: []uint64{
			f.UserID,
		},
	})
	if err != nil {
		return nil, err
	}

	if len(fs) > 0 {
		query = wrapNamespace(pgUpdateFriend, ns)

		f.CreatedAt = fs[0].CreatedAt
		f.UpdatedAt = now
	} else {
		params = []interface{}{}
		query = wrapNamespace(pgInsertFriend, ns)

		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}

		f.CreatedAt = f.CreatedAt.UTC()
		f.UpdatedAt = now
	}

	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(query, append(params, data)...)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts, orderUpdatedAt)
	if err != nil {
		return nil, err
	}

	return s.listFriends(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		wrapNamespace(pgCreateSchema, ns),
		wrapNamespace(pgCreateTable, ns),
		pg.GuardIndex(ns, "friend_active_origin", pgIndexActiveOrigin),
		pg.GuardIndex(ns, "friend_active_target", pgIndexActiveTarget),
		pg.GuardIndex(ns, "friend_pair", pgIndexPair),
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

func (s *pgService) countFriends(
	ns, where string,
	params ...interface{},
) (int, error) {
	var (
		count = 0
		query = fmt.Sprintf(pgCountFriends, ns, where)
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

func (s *pgService) listFriends(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListFriends, ns, where)

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

	fs := List{}

	for rows.Next() {
		var (
			f = &Friend{}

			raw []byte
		)

		err := rows.Scan(&raw)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(raw, f)
		if err != nil {
			return nil, err
		}

		fs = append(fs, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fs, nil
}

func convertOpts(opts QueryOptions, order ordering) (string, []interface{}, error) {
	var (
		clauses = []string{}
		params  = []interface{}{}
	)

	if opts.Active != nil {
		clause, _, err := sqlx.In(pgClauseActive, []interface{}{*opts.Active})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Active)
	}

	if !opts.Before.IsZero() {
		clauses = append(clauses, pgClauseBefore)
		params = append(params, opts.Before.UTC().Format(time.RFC3339Nano))
	}

	if len(opts.FriendIDs) > 0 {
		ps := []interface{}{}

		for _, id := range opts.FriendIDs {
			ps = append(ps, id)
		}

		clause, _, err := sqlx.In(pgClauseFriendIDs, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

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

	if order == orderUpdatedAt {
		query = fmt.Sprintf("%s\n%s", query, pgOrderUpdatedAt)
	}

	if opts.Limit > 0 {
		query = fmt.Sprintf("%s\nLIMIT %d", query, opts.Limit)
	}

	return query, params, nil
}

func wrapNamespace(query, namespace string) string {
	return fmt.Sprintf(query, namespace)
}
