package friend

type sourcingService struct {
	producer Producer
	service  Service
}

// SourcingServiceMiddleware propagates state changes for the Service via the
// given Producer.
func SourcingServiceMiddleware(producer Producer) ServiceMiddleware {
	return func(service Service) Service {
		return &sourcingService{
			producer: producer,
			service:  service,
		}
	}
}

func (s *sourcingService) Count(ns string, opts QueryOptions) (int, error) {
	return s.service.Count(ns, opts)
}

func (s *sourcingService) Put(ns string, input *Friend) (new *Friend, err error) {
	var old *Friend

	defer func() {
		if err == nil {
			_, _ = s.producer.Propagate(ns, old, new)
		}
	}()

	fs, err := s.service.Query(ns, QueryOptions{
		FriendIDs: []uint64{
			input.FriendID,
		},
		UserIDs: []uint64{
			input.UserID,
		},
	})
	if err != nil {
		return nil, err
	}

	if len(fs) == 1 {
		old = fs[0]
	}

	return s.service.Put(ns, input)
}

func (s *sourcingService) Query(ns string, opts QueryOptions) (List, error) {
	return s.service.Query(ns, opts)
}

func (s *sourcingService) Setup(ns string) error {
	return s.service.Setup(ns)
}

func (s *sourcingService) Teardown(ns string) error {
	return s.service.Teardown(ns)
}
