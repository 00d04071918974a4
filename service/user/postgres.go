package user

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/peergate/peergate/platform/flake"
	"github.com/peergate/peergate/platform/pg"
)

const (
	orderNone ordering = iota
	orderCreatedAt
)

type ordering int

const (
	pgInsertUser = `INSERT INTO %s.users(json_data) VALUES($1)`
	pgUpdateUser = `
		UPDATE
			%s.users
		SET
			json_data = $1
		WHERE
			(json_data->>'id')::BIGINT = $2::BIGINT`
	pgClaimSlot = `
		UPDATE
			%s.users
		SET
			json_data = jsonb_set(
				jsonb_set(
					json_data,
					'{remaining_referral_slots}',
					to_jsonb((json_data->>'remaining_referral_slots')::INT - 1)
				),
				'{updated_at}',
				to_jsonb($2::TEXT)
			)
		WHERE
			(json_data->>'id')::BIGINT = $1::BIGINT
			AND (json_data->>'enabled')::BOOL = true
			AND (json_data->>'remaining_referral_slots')::INT > 0`

	pgClauseDeleted            = `(json_data->>'deleted')::BOOL = ?::BOOL`
	pgClauseEnabled            = `(json_data->>'enabled')::BOOL = ?::BOOL`
	pgClauseFriendRequestCodes = `(json_data->>'friend_request_code')::TEXT IN (?)`
	pgClauseIDs                = `(json_data->>'id')::BIGINT IN (?)`
	pgClauseNicknames          = `(json_data->>'nickname')::CITEXT IN (?)`
	pgClauseUsedReferralCodes  = `(json_data->>'used_referral_code')::TEXT IN (?)`

	pgOrderCreatedAt = `ORDER BY json_data->>'created_at' DESC`

	pgCountUsers = `SELECT count(json_data) FROM %s.users
		%s`
	pgListUsers = `SELECT json_data FROM %s.users
		%s`

	pgCreateSchema = `CREATE SCHEMA IF NOT EXISTS %s`
	pgCreateTable  = `CREATE TABLE IF NOT EXISTS %s.users
		(json_data JSONB NOT NULL)`
	pgDropTable = `DROP TABLE IF EXISTS %s.users`

	pgIndexFriendRequestCode = `
		CREATE UNIQUE INDEX
			%s
		ON
			%s.users(((json_data->>'friend_request_code')::TEXT))
		WHERE
			(json_data->>'enabled')::BOOL = true`
	pgIndexID = `
		CREATE INDEX
			%s
		ON
			%s.users(((json_data->>'id')::BIGINT))
		WHERE
			(json_data->>'enabled')::BOOL = true`
	pgIndexNickname = `
		CREATE UNIQUE INDEX
			%s
		ON
			%s.users(((json_data->>'nickname')::CITEXT))
		WHERE
			(json_data->>'enabled')::BOOL = true`
)

type pgService struct {
	db *sqlx.DB
}

// PostgresService returns a Postgres based Service implementation.
func PostgresService(db *sqlx.DB) Service {
	return &pgService{db: db}
}

func (s *pgService) ClaimReferralSlot(ns string, id uint64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.Exec(wrapNamespace(pgClaimSlot, ns), id, now)
	if err != nil {
		if pg.IsRelationNotFound(pg.WrapError(err)) {
			if err := s.Setup(ns); err != nil {
				return err
			}

			res, err = s.db.Exec(wrapNamespace(pgClaimSlot, ns), id, now)
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
		us, err := s.Query(ns, QueryOptions{
			Enabled: &defaultEnabled,
			IDs:     []uint64{id},
		})
		if err != nil {
			return err
		}

		if len(us) == 0 {
			return wrapError(ErrNotFound, "user (%d) not found", id)
		}

		return wrapError(ErrNoSlots, "user (%d) exhausted", id)
	}

	return nil
}

func (s *pgService) Count(ns string, opts QueryOptions) (int, error) {
	where, params, err := convertOpts(opts, orderNone)
	if err != nil {
		return 0, err
	}

	return s.countUsers(ns, where, params...)
}

func (s *pgService) Put(ns string, user *User) (*User, error) {
	var (
		now   = time.Now().UTC()
		query = pgUpdateUser

		params []interface{}
	)

	if err := user.Validate(); err != nil {
		return nil, err
	}

	if user.ID != 0 {
		params = []interface{}{
			user.ID,
		}

		us, err := s.Query(ns, QueryOptions{
			IDs: []uint64{
				user.ID,
			},
		})
		if err != nil {
			return nil, err
		}

		if len(us) == 0 {
			return nil, ErrNotFound
		}

		user.CreatedAt = us[0].CreatedAt
	} else {
		id, err := flake.NextID(flakeNamespace(ns))
		if err != nil {
			return nil, err
		}

		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.CreatedAt = user.CreatedAt.UTC()
		user.ID = id

		query = pgInsertUser
	}

	user.UpdatedAt = now

	data, err := json.Marshal(user)
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
			return nil, wrapError(ErrNotUnique, "nickname or code taken")
		}
	}

	return user, err
}

func (s *pgService) Query(ns string, opts QueryOptions) (List, error) {
	where, params, err := convertOpts(opts, orderCreatedAt)
	if err != nil {
		return nil, err
	}

	return s.listUsers(ns, where, params...)
}

func (s *pgService) Setup(ns string) error {
	qs := []string{
		wrapNamespace(pgCreateSchema, ns),
		wrapNamespace(pgCreateTable, ns),
		pg.GuardIndex(ns, "user_friend_request_code", pgIndexFriendRequestCode),
		pg.GuardIndex(ns, "user_id", pgIndexID),
		pg.GuardIndex(ns, "user_nickname", pgIndexNickname),
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

func (s *pgService) countUsers(
	ns, where string,
	params ...interface{},
) (int, error) {
	var (
		count = 0
		query = fmt.Sprintf(pgCountUsers, ns, where)
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

func (s *pgService) listUsers(
	ns, where string,
	params ...interface{},
) (List, error) {
	query := fmt.Sprintf(pgListUsers, ns, where)

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

	us := List{}

	for rows.Next() {
		var (
			u = &User{}

			raw []byte
		)

		err := rows.Scan(&raw)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(raw, u)
		if err != nil {
			return nil, err
		}

		us = append(us, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return us, nil
}

func convertOpts(opts QueryOptions, order ordering) (string, []interface{}, error) {
	var (
		clauses = []string{}
		params  = []interface{}{}
	)

	if opts.Deleted != nil {
		clause, _, err := sqlx.In(pgClauseDeleted, []interface{}{*opts.Deleted})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Deleted)
	}

	if opts.Enabled != nil {
		clause, _, err := sqlx.In(pgClauseEnabled, []interface{}{*opts.Enabled})
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, *opts.Enabled)
	}

	if len(opts.FriendRequestCodes) > 0 {
		ps := []interface{}{}

		for _, code := range opts.FriendRequestCodes {
			ps = append(ps, code)
		}

		clause, _, err := sqlx.In(pgClauseFriendRequestCodes, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
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

	if len(opts.Nicknames) > 0 {
		ps := []interface{}{}

		for _, nick := range opts.Nicknames {
			ps = append(ps, nick)
		}

		clause, _, err := sqlx.In(pgClauseNicknames, ps)
		if err != nil {
			return "", nil, err
		}

		clauses = append(clauses, clause)
		params = append(params, ps...)
	}

	if len(opts.UsedReferralCodes) > 0 {
		ps := []interface{}{}

		for _, code := range opts.UsedReferralCodes {
			ps = append(ps, code)
		}

		clause, _, err := sqlx.In(pgClauseUsedReferralCodes, ps)
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
