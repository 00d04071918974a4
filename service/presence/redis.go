package presence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/garyburd/redigo/redis"

	platformRedis "github.com/peergate/peergate/platform/redis"
)

const (
	keyPeer  = "%s:peer:%d"
	keyPeers = "%s:peers"
)

type redisService struct {
	pool *redis.Pool
}

// RedisService returns a Redis based Service implementation.
func RedisService(pool *redis.Pool) Service {
	return &redisService{pool: pool}
}

func (s *redisService) Delete(ns string, userID uint64) error {
	con := s.pool.Get()
	defer con.Close()

	if err := con.Send(platformRedis.CommandMulti); err != nil {
		return err
	}

	if err := con.Send(
		platformRedis.CommandDel,
		fmt.Sprintf(keyPeer, ns, userID),
	); err != nil {
		return err
	}

	if err := con.Send(
		platformRedis.CommandSRem,
		fmt.Sprintf(keyPeers, ns),
		userID,
	); err != nil {
		return err
	}

	_, err := con.Do(platformRedis.CommandExec)
	return err
}

func (s *redisService) Put(ns string, p *Peer) (*Peer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	con := s.pool.Get()
	defer con.Close()

	var (
		key = fmt.Sprintf(keyPeer, ns, p.UserID)
		now = time.Now().UTC()
	)

	raw, err := redis.Bytes(con.Do(platformRedis.CommandGet, key))
	if err != nil && err != redis.ErrNil {
		return nil, err
	}

	if len(raw) > 0 {
		stored := &Peer{}

		if err := json.Unmarshal(raw, stored); err != nil {
			return nil, err
		}

		p.CreatedAt = stored.CreatedAt
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

	if err := con.Send(platformRedis.CommandMulti); err != nil {
		return nil, err
	}

	if err := con.Send(platformRedis.CommandSet, key, data); err != nil {
		return nil, err
	}

	if err := con.Send(
		platformRedis.CommandSAdd,
		fmt.Sprintf(keyPeers, ns),
		p.UserID,
	); err != nil {
		return nil, err
	}

	if _, err := con.Do(platformRedis.CommandExec); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *redisService) Query(ns string, opts QueryOptions) (List, error) {
	con := s.pool.Get()
	defer con.Close()

	ids := opts.UserIDs

	if len(ids) == 0 {
		members, err := redis.Strings(
			con.Do(platformRedis.CommandSMembers, fmt.Sprintf(keyPeers, ns)),
		)
		if err != nil {
			return nil, err
		}

		for _, m := range members {
			id, err := strconv.ParseUint(m, 10, 64)
			if err != nil {
				return nil, err
			}

			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return List{}, nil
	}

	keys := []interface{}{}

	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(keyPeer, ns, id))
	}

	raws, err := redis.ByteSlices(con.Do(platformRedis.CommandMGet, keys...))
	if err != nil {
		return nil, err
	}

	ps := List{}

	for _, raw := range raws {
		if raw == nil {
			continue
		}

		p := &Peer{}

		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}

		ps = append(ps, p)
	}

	sort.Sort(ps)

	if opts.Limit > 0 && len(ps) > opts.Limit {
		ps = ps[:opts.Limit]
	}

	return ps, nil
}

func (s *redisService) Setup(ns string) error {
	con := s.pool.Get()
	defer con.Close()

	_, err := con.Do(platformRedis.CommandPing)
	return err
}

func (s *redisService) Teardown(ns string) error {
	con := s.pool.Get()
	defer con.Close()

	members, err := redis.Strings(
		con.Do(platformRedis.CommandSMembers, fmt.Sprintf(keyPeers, ns)),
	)
	if err != nil {
		return err
	}

	keys := []interface{}{fmt.Sprintf(keyPeers, ns)}

	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return err
		}

		keys = append(keys, fmt.Sprintf(keyPeer, ns, id))
	}

	_, err = con.Do(platformRedis.CommandDel, keys...)
	return err
}
