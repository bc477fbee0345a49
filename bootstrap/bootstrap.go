// Package bootstrap builds the collaborators shared by the API server and oposctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"oposiciones/cache"
	"oposiciones/config"
	"oposiciones/events"
	"oposiciones/queries"
	"oposiciones/storage"
	"oposiciones/tools"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// NewEnv wires cache, events, storage, LLM providers, mailer and the BOE client
// from the configuration. The returned close function releases the connections.
func NewEnv(ctx context.Context, conf config.Configuration, database *gorm.DB, log *zap.Logger) (queries.Env, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	env := queries.Env{DB: database, Conf: conf, Log: log, BOE: tools.NewBOEClient()}
	var closers []func() error

	if conf.Redis.Addr != "" {
		rc, err := cache.NewRedis(cache.RedisConfig{Addr: conf.Redis.Addr, Password: conf.Redis.Password, DB: conf.Redis.DB})
		if err != nil {
			log.Warn("redis unavailable, using in-process cache", zap.Error(err))
			env.Cache = cache.NewMemory()
		} else {
			env.Cache = rc
			closers = append(closers, rc.Close)
		}
	} else {
		env.Cache = cache.NewMemory()
	}

	pub, err := events.New(conf.NatsURL)
	if err != nil {
		return env, nil, err
	}
	env.Events = pub
	closers = append(closers, pub.Close)

	if conf.Storage.S3Bucket != "" {
		s3, err := storage.NewS3Store(ctx, conf.Storage.S3Bucket, conf.Storage.S3Region, conf.Storage.S3Endpoint)
		if err != nil {
			return env, nil, fmt.Errorf("s3 store: %w", err)
		}
		env.Store = s3
	} else {
		env.Store = storage.LocalStore{Dir: conf.Storage.LocalDir}
	}

	llm, err := tools.NewLLMFromConfig(ctx, conf)
	if err != nil {
		return env, nil, err
	}
	if len(llm.Providers) == 0 {
		log.Warn("no AI provider keys configured; chat and verification will fail")
	}
	env.LLM = llm

	if conf.Email.ResendKey != "" {
		env.Mailer = tools.NewResendMailer(conf.Email.ResendKey, conf.Email.From)
	} else {
		env.Mailer = tools.LogMailer{Log: log}
	}

	closeAll := func() {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		if err := errors.Join(errs...); err != nil {
			log.Warn("closing collaborators", zap.Error(err))
		}
	}
	return env, closeAll, nil
}
