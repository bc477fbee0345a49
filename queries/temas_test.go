package queries

import (
	"context"
	"testing"

	"oposiciones/models"
	"oposiciones/schemas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArticleNumbers(t *testing.T) {
	got, err := ParseArticleNumbers("1,2, 5-7,14 bis,2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "5", "6", "7", "14 bis"}, got)

	got, err = ParseArticleNumbers("  ")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"7-5", "1-600", "a-3", "0-2", "14 quater bis"} {
		_, err := ParseArticleNumbers(bad)
		requireErrorIs(t, err, ErrValidation)
	}
}

func TestResolvedScopeCoversIgnoresSpacing(t *testing.T) {
	s := ResolvedScope{LawID: 1, Numbers: []string{"14 bis", "2"}}
	assert.True(t, s.Covers(1, "14  bis"))
	assert.True(t, s.Covers(1, " 14 BIS "))
	assert.True(t, s.Covers(1, "14\tbis"))
	assert.False(t, s.Covers(1, "14"))
	assert.False(t, s.Covers(2, "2"))

	// numbers stored with irregular spacing still match
	stored := ResolvedScope{LawID: 1, Numbers: []string{"14  Bis"}}
	assert.True(t, stored.Covers(1, "14 bis"))

	assert.True(t, ResolvedScope{LawID: 1}.Covers(1, "999"))
}

func TestResolver_TopicsForArticle(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()
	r := w.Env.resolver()

	topics, err := r.TopicsForArticle(ctx, w.Oposicion.ID, w.CE.ID, "14 bis")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, topics)

	topics, err = r.TopicsForArticle(ctx, w.Oposicion.ID, w.CE.ID, "14")
	require.NoError(t, err)
	assert.Empty(t, topics)

	// whole-law scope
	topics, err = r.TopicsForArticle(ctx, w.Oposicion.ID, w.LPAC.ID, "999")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, topics)
}

func TestResolver_ArticleIDsForTopics(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()
	r := w.Env.resolver()

	ids, err := r.ArticleIDsForTopics(ctx, w.Oposicion.ID, []int{1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{
		w.Articles["ce:1"].ID, w.Articles["ce:2"].ID, w.Articles["ce:3"].ID, w.Articles["ce:14 bis"].ID,
	}, ids)

	all, err := r.ArticleIDsForTopics(ctx, w.Oposicion.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	// inactive articles drop out
	require.NoError(t, w.DB.Model(&models.Article{}).Where("id = ?", w.Articles["lpac:22"].ID).UpdateColumn("is_active", false).Error)
	all, err = r.ArticleIDsForTopics(ctx, w.Oposicion.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestResolver_ScopesAreCached(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()
	r := w.Env.resolver()

	first, err := r.ScopesForOposicion(ctx, w.Oposicion.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// a write behind the cache's back is not seen until invalidation
	require.NoError(t, w.DB.Where("1 = 1").Delete(&models.TopicScope{}).Error)
	cached, err := r.ScopesForOposicion(ctx, w.Oposicion.ID)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	InvalidateCatalog(ctx, w.Env.Cache)
	fresh, err := r.ScopesForOposicion(ctx, w.Oposicion.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh[0].Scopes)
}

func TestReplaceTopicScopes(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()

	var topic models.Topic
	require.NoError(t, w.DB.Where("topic_number = ?", 1).First(&topic).Error)

	_, err := ReplaceTopicScopes(ctx, w.Env, topic.ID, []schemas.TopicScopeInput{{LawID: 9999}})
	requireErrorIs(t, err, ErrValidation)

	_, err = ReplaceTopicScopes(ctx, w.Env, topic.ID, []schemas.TopicScopeInput{{LawID: w.CE.ID, ArticleNumbers: "9-1"}})
	requireErrorIs(t, err, ErrValidation)

	_, err = ReplaceTopicScopes(ctx, w.Env, 9999, nil)
	requireErrorIs(t, err, ErrNotFound)

	// warm the cache so the replacement must invalidate it
	_, err = w.Env.resolver().ScopesForOposicion(ctx, w.Oposicion.ID)
	require.NoError(t, err)

	scopes, err := ReplaceTopicScopes(ctx, w.Env, topic.ID, []schemas.TopicScopeInput{{LawID: w.CE.ID, ArticleNumbers: "14"}})
	require.NoError(t, err)
	require.Len(t, scopes, 1)

	topics, err := w.Env.resolver().TopicsForArticle(ctx, w.Oposicion.ID, w.CE.ID, "14")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, topics)
}

func TestTopicsWithCounts(t *testing.T) {
	w := setupWorld(t)
	counts, err := TopicsWithCounts(context.Background(), w.Env, w.Oposicion.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, int64(12), counts[0].QuestionCount)
	assert.Equal(t, int64(6), counts[1].QuestionCount)
}

func TestResolveTemas(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()

	m, err := ResolveTemas(ctx, w.Env, schemas.TemaResolveQuery{Oposicion: "auxiliar-age", Law: "ce", Article: "2"})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, m.Topics)
	assert.Equal(t, "ce", m.Law)

	m, err = ResolveTemas(ctx, w.Env, schemas.TemaResolveQuery{Oposicion: "auxiliar-age", Law: "ce", Article: "99"})
	require.NoError(t, err)
	assert.Empty(t, m.Topics)

	_, err = ResolveTemas(ctx, w.Env, schemas.TemaResolveQuery{Oposicion: "nope", Law: "ce", Article: "2"})
	requireErrorIs(t, err, ErrNotFound)
}
