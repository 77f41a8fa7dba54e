//go:build integration

package dedupe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KarimBkr/MyTsango/internal/platform/config"
	platformredis "github.com/KarimBkr/MyTsango/internal/platform/redis"
	"github.com/KarimBkr/MyTsango/internal/recon"
	"github.com/KarimBkr/MyTsango/internal/recon/dedupe"
	"github.com/KarimBkr/MyTsango/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	cache *dedupe.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())

	client, err := platformredis.New(config.RedisConfig{
		URL:          s.redis.URL,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	s.Require().NoError(err)
	s.Require().NotNil(client)
	s.cache = dedupe.NewRedisCache(client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisCacheSuite) TestSeenBeforeMark() {
	seen, err := s.cache.Seen(s.ctx, recon.KindPayment, "evt-1")
	s.Require().NoError(err)
	s.False(seen)
}

func (s *RedisCacheSuite) TestMarkThenSeen() {
	s.Require().NoError(s.cache.Mark(s.ctx, recon.KindPayment, "evt-1"))

	seen, err := s.cache.Seen(s.ctx, recon.KindPayment, "evt-1")
	s.Require().NoError(err)
	s.True(seen)
}

func (s *RedisCacheSuite) TestKindsAreIsolated() {
	s.Require().NoError(s.cache.Mark(s.ctx, recon.KindVerification, "evt-1"))

	seen, err := s.cache.Seen(s.ctx, recon.KindPayment, "evt-1")
	s.Require().NoError(err)
	s.False(seen)
}
