package srvenv

import (
	"context"

	"github.com/go-sod/sod/internal/database"
	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/pkg/rworker"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database  *database.DB
	pool      *rworker.Pool
	predictor predictor.ProvideFn
}

func (s *SrvEnv) ProvidePredictor() predictor.ProvideFn {
	return s.predictor
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func (s *SrvEnv) Pool() *rworker.Pool {
	return s.pool
}

func WithPredictor(fn predictor.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.predictor = fn
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func WithPool(p *rworker.Pool) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.pool = p
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
