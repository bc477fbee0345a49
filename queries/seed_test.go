package queries

import (
	"context"
	"testing"

	"oposiciones/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const seedYAML = `
laws:
  - slug: ley-40-2015
    short_name: Ley 40/2015
    name: Ley de Régimen Jurídico del Sector Público
    boe_id: BOE-A-2015-10566
oposiciones:
  - slug: auxiliar-age
    name: Auxiliar Administrativo del Estado
    topics:
      - number: 1
        title: La Constitución Española de 1978
        scopes:
          - law: ce
            articles: "1-3"
      - number: 3
        title: Régimen jurídico del sector público
        scopes:
          - law: ley-40-2015
  - slug: administrativo-age
    name: Administrativo del Estado
    short_name: C1
`

func TestSeedCatalog(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()

	// warm the cache so the seed has to invalidate it
	before, err := w.Env.resolver().ScopesForOposicion(ctx, w.Oposicion.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)

	var cat Catalog
	require.NoError(t, yaml.Unmarshal([]byte(seedYAML), &cat))
	report, err := SeedCatalog(ctx, w.Env, cat)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Laws: 1, Oposiciones: 2, Topics: 2, Scopes: 2}, report)

	after, err := w.Env.resolver().ScopesForOposicion(ctx, w.Oposicion.ID)
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, "La Constitución Española de 1978", after[0].Title)
	require.Len(t, after[0].Scopes, 1)
	assert.False(t, after[0].Scopes[0].Covers(w.CE.ID, "14 bis"))
	assert.True(t, after[0].Scopes[0].Covers(w.CE.ID, "2"))

	var admin models.Oposicion
	require.NoError(t, w.DB.Where("slug = ?", "administrativo-age").First(&admin).Error)
	assert.True(t, admin.IsActive)

	// seeding is idempotent
	report, err = SeedCatalog(ctx, w.Env, cat)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scopes)
	var laws int64
	require.NoError(t, w.DB.Model(&models.Law{}).Count(&laws).Error)
	assert.Equal(t, int64(3), laws)
}

func TestSeedCatalogValidation(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()

	cases := map[string]Catalog{
		"bad slug": {Laws: []CatalogLaw{{Slug: "Ley 1", ShortName: "x", Name: "x"}}},
		"repeated topic": {Oposiciones: []CatalogOposicion{{Slug: "x", Name: "x", Topics: []CatalogTopic{
			{Number: 1, Title: "a"}, {Number: 1, Title: "b"},
		}}}},
		"bad articles": {Oposiciones: []CatalogOposicion{{Slug: "x", Name: "x", Topics: []CatalogTopic{
			{Number: 1, Title: "a", Scopes: []CatalogScope{{Law: "ce", Articles: "10-2"}}},
		}}}},
	}
	for name, cat := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := SeedCatalog(ctx, w.Env, cat)
			requireErrorIs(t, err, ErrValidation)
		})
	}

	_, err := SeedCatalog(ctx, w.Env, Catalog{Oposiciones: []CatalogOposicion{{Slug: "x", Name: "x", Topics: []CatalogTopic{
		{Number: 1, Title: "a", Scopes: []CatalogScope{{Law: "no-existe"}}},
	}}}})
	requireErrorIs(t, err, ErrNotFound)

	// the failed seed rolled back
	var n int64
	require.NoError(t, w.DB.Model(&models.Oposicion{}).Where("slug = ?", "x").Count(&n).Error)
	assert.Zero(t, n)
}
