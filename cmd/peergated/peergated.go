package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	awsSession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/go-kit/kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peergate/peergate/core"
	"github.com/peergate/peergate/platform/generate"
	"github.com/peergate/peergate/platform/metrics"
	"github.com/peergate/peergate/platform/redis"
	"github.com/peergate/peergate/service/code"
	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/presence"
	"github.com/peergate/peergate/service/request"
	"github.com/peergate/peergate/service/user"
)

// Logging and telemetry identifiers.
const (
	component        = "peergated"
	namespaceService = "service"
	namespaceSource  = "source"
	subsystemQueue   = "queue"
	storeCache       = "redis"
	storeService     = "postgres"
)

// Versions.
const (
	versionCurrent = "0.1"
)

// Supported source types.
const (
	sourceNop = "nop"
	sourceSQS = "sqs"
)

const codeLength = 8

// Buildtime vars.
var (
	revision = "0000000-dev"
)

func main() {
	var (
		begin = time.Now()

		awsID         = flag.String("aws.id", "", "Identifier for AWS requests")
		awsRegion     = flag.String("aws.region", "us-east-1", "AWS Region to operate in")
		awsSecret     = flag.String("aws.secret", "", "Identification secret for AWS requests")
		namespace     = flag.String("namespace", "peergate", "Namespace used to isolate service data")
		postgresURL   = flag.String("postgres.url", "", "Postgres URL to connect to")
		presenceStore = flag.String("presence.store", storeService, "Store used for the presence directory (postgres|redis)")
		redisAddr     = flag.String("redis.addr", ":6379", "Redis address to connect to")
		seedNickname  = flag.String("seed.nickname", "", "Nickname of the seed identity provisioned at startup")
		source        = flag.String("source", sourceNop, "Source type used for state change propagations")
		telemetryAddr = flag.String("telemetry.addr", ":9000", "HTTP bind address where prometheus telemetry is exposed")
	)
	flag.Parse()

	// Setup logging.
	logger := log.With(
		log.NewJSONLogger(os.Stdout),
		"caller", log.Caller(3),
		"component", component,
		"revision", revision,
	)

	hostname, err := os.Hostname()
	if err != nil {
		logger.Log("err", err, "lifecycle", "abort")
		os.Exit(1)
	}

	logger = log.With(logger, "host", hostname)

	// Setup instrumentation.
	serviceErrCount, serviceOpCount, serviceOpLatency := metrics.KeyMetrics(
		namespaceService,
		metrics.FieldComponent,
		metrics.FieldMethod,
		metrics.FieldNamespace,
		metrics.FieldService,
		metrics.FieldStore,
	)

	sourceFieldKeys := []string{
		metrics.FieldComponent,
		metrics.FieldMethod,
		metrics.FieldNamespace,
		metrics.FieldSource,
		metrics.FieldStore,
	}

	sourceErrCount, sourceOpCount, sourceOpLatency := metrics.KeyMetrics(
		namespaceSource,
		sourceFieldKeys...,
	)

	sourceQueueLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceSource,
			Subsystem: subsystemQueue,
			Name:      "latency_seconds",
			Help:      "Distribution of message queue latency in seconds",
			Buckets:   metrics.BucketsQueue,
		},
		sourceFieldKeys,
	)
	prometheus.MustRegister(sourceQueueLatency)

	// Setup clients.
	var (
		aSession = awsSession.New(&aws.Config{
			Credentials: credentials.NewStaticCredentials(*awsID, *awsSecret, ""),
			Region:      aws.String(*awsRegion),
		})
		redisPool = redis.Pool(*redisAddr, "")
		sqsAPI    = sqs.New(aSession)
	)

	pgClient, err := sqlx.Connect(storeService, *postgresURL)
	if err != nil {
		logger.Log("err", err, "lifecycle", "abort")
		os.Exit(1)
	}

	// Setup sources.
	var friendSource friend.Source

	switch *source {
	case sourceNop:
		friendSource = friend.NopSource()
	case sourceSQS:
		friendSource, err = friend.SQSSource(sqsAPI)
		if err != nil {
			logger.Log("err", err, "lifecycle", "abort")
			os.Exit(1)
		}
	default:
		logger.Log(
			"err", fmt.Sprintf("Source type '%s' not supported", *source),
			"lifecycle", "abort",
		)
		os.Exit(1)
	}

	friendSource = friend.InstrumentSourceMiddleware(
		component,
		*source,
		sourceErrCount,
		sourceOpCount,
		sourceOpLatency,
		sourceQueueLatency,
	)(friendSource)
	friendSource = friend.LogSourceMiddleware(*source, logger)(friendSource)

	// Setup services.
	var codes code.Service
	codes = code.PostgresService(pgClient)
	codes = code.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(codes)
	codes = code.LogServiceMiddleware(logger, storeService)(codes)

	var friends friend.Service
	friends = friend.PostgresService(pgClient)
	friends = friend.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(friends)
	friends = friend.LogServiceMiddleware(logger, storeService)(friends)
	// Combine friend service and source.
	friends = friend.SourcingServiceMiddleware(friendSource)(friends)

	var peers presence.Service

	switch *presenceStore {
	case storeCache:
		peers = presence.RedisService(redisPool)
	case storeService:
		peers = presence.PostgresService(pgClient)
	default:
		logger.Log(
			"err", fmt.Sprintf("Presence store '%s' not supported", *presenceStore),
			"lifecycle", "abort",
		)
		os.Exit(1)
	}

	peers = presence.InstrumentServiceMiddleware(
		component,
		*presenceStore,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(peers)
	peers = presence.LogServiceMiddleware(logger, *presenceStore)(peers)

	var requests request.Service
	requests = request.PostgresService(pgClient)
	requests = request.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(requests)
	requests = request.LogServiceMiddleware(logger, storeService)(requests)

	var users user.Service
	users = user.PostgresService(pgClient)
	users = user.InstrumentServiceMiddleware(
		component,
		storeService,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(users)
	users = user.LogServiceMiddleware(logger, storeService)(users)

	if *seedNickname != "" {
		seed, err := provisionSeed(
			*namespace,
			*seedNickname,
			core.InviteIssue(codes, users),
			users,
		)
		if err != nil {
			logger.Log("err", err, "lifecycle", "abort")
			os.Exit(1)
		}

		logger.Log(
			"lifecycle", "seed",
			"nickname", seed.Nickname,
			"user", seed.ID,
		)
	}

	// Consume friend state changes.
	if *source == sourceSQS {
		go func() {
			err := consumeFriend(friendSource, users, *namespace, logger)
			if err != nil {
				logger.Log("err", err, "lifecycle", "abort")
				os.Exit(1)
			}
		}()
	}

	http.Handle("/metrics", promhttp.Handler())

	logger.Log(
		"duration", time.Now().Sub(begin).Nanoseconds(),
		"lifecycle", "start",
		"listen", *telemetryAddr,
		"namespace", *namespace,
		"version", versionCurrent,
	)

	err = http.ListenAndServe(*telemetryAddr, nil)
	if err != nil {
		logger.Log("err", err, "lifecycle", "abort")
		os.Exit(1)
	}
}

// consumeFriend drains edge state changes off of the source and surfaces them
// in the log stream.
func consumeFriend(
	friendSource friend.Source,
	users user.Service,
	ns string,
	logger log.Logger,
) error {
	for {
		change, err := friendSource.Consume()
		if err != nil {
			if friend.IsEmptySource(err) {
				continue
			}
			return err
		}

		if change.Namespace != ns {
			err := friendSource.Ack(change.AckID)
			if err != nil {
				return err
			}

			continue
		}

		um, err := user.MapFromIDs(
			users,
			change.Namespace,
			change.New.UserID,
			change.New.FriendID,
		)
		if err != nil {
			return err
		}

		keyvals := []interface{}{
			"active", change.New.Active,
			"friend", change.New.FriendID,
			"namespace", change.Namespace,
			"origin", change.New.UserID,
			"sent_at", change.SentAt,
		}

		// Disabled identities drop out of the lookup.
		if u, ok := um[change.New.UserID]; ok {
			keyvals = append(keyvals, "origin_nickname", u.Nickname)
		}

		if u, ok := um[change.New.FriendID]; ok {
			keyvals = append(keyvals, "friend_nickname", u.Nickname)
		}

		logger.Log(keyvals...)

		err = friendSource.Ack(change.AckID)
		if err != nil {
			return err
		}
	}
}

// provisionSeed ensures an identity for the given nickname exists and holds a
// full hand of referral codes. Seed identities join without a referral.
func provisionSeed(
	ns, nickname string,
	issue core.InviteIssueFunc,
	users user.Service,
) (*user.User, error) {
	us, err := users.Query(ns, user.QueryOptions{
		Nicknames: []string{nickname},
	})
	if err != nil {
		return nil, err
	}

	var seed *user.User

	if len(us) > 0 {
		seed = us[0]
	} else {
		seed, err = users.Put(ns, &user.User{
			Enabled:                true,
			FriendRequestCode:      generate.RandomString(codeLength),
			Nickname:               nickname,
			RemainingReferralSlots: user.DefaultReferralSlots,
			UsedReferralCode:       user.CodeNone,
		})
		if err != nil {
			return nil, err
		}
	}

	for {
		_, err := issue(ns, core.Origin{UserID: seed.ID})
		if err != nil {
			if core.IsCapacity(err) {
				break
			}

			return nil, err
		}
	}

	return seed, nil
}
