package bootstrap

import (
	"context"
	"testing"

	"oposiciones/cache"
	"oposiciones/config"
	"oposiciones/events"
	"oposiciones/storage"
	"oposiciones/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvDevelopmentDefaults(t *testing.T) {
	conf, err := config.Load("")
	require.NoError(t, err)
	conf.Redis.Addr = ""
	conf.NatsURL = ""
	conf.Storage.S3Bucket = ""
	conf.Email.ResendKey = ""
	conf.Storage.LocalDir = t.TempDir()

	env, closeFn, err := NewEnv(context.Background(), conf, nil, nil)
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &cache.MemoryCache{}, env.Cache)
	assert.IsType(t, &events.NoopPublisher{}, env.Events)
	assert.Equal(t, storage.LocalStore{Dir: conf.Storage.LocalDir}, env.Store)
	assert.IsType(t, tools.LogMailer{}, env.Mailer)
	assert.NotNil(t, env.BOE)
}

func TestNewEnvRejectsUnknownProvider(t *testing.T) {
	var conf config.Configuration
	conf.AI.Providers = []string{"mistral"}
	_, _, err := NewEnv(context.Background(), conf, nil, nil)
	assert.Error(t, err)
}
