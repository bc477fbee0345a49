package queries

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"oposiciones/cache"
	"oposiciones/models"
	"oposiciones/schemas"

	"github.com/jinzhu/gorm"
)

// maxRangeSpan bounds "a-b" ranges so a typo cannot expand to millions of entries.
const maxRangeSpan = 500

const scopeCacheTTL = 10 * time.Minute

// ParseArticleNumbers expands "1,2,5-7,14 bis" into ["1","2","5","6","7","14 bis"].
// Duplicates are dropped keeping the first occurrence.
func ParseArticleNumbers(list string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, part := range strings.Split(list, ",") {
		part = normalizeArticleNumber(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err1 := strconv.Atoi(strings.TrimSpace(lo))
			to, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				return nil, validationf("invalid article range %q", part)
			}
			if from <= 0 || to < from {
				return nil, validationf("invalid article range %q", part)
			}
			if to-from >= maxRangeSpan {
				return nil, validationf("article range %q is too wide", part)
			}
			for n := from; n <= to; n++ {
				add(strconv.Itoa(n))
			}
			continue
		}
		if !schemas.IsArticleNumber(part) {
			return nil, validationf("invalid article number %q", part)
		}
		add(part)
	}
	return out, nil
}

// normalizeArticleNumber lowercases and collapses whitespace: " 14   BIS" -> "14 bis".
func normalizeArticleNumber(n string) string {
	return strings.ToLower(strings.Join(strings.Fields(n), " "))
}

// ResolvedScope is a TopicScope with its article list expanded. Numbers is nil for a whole-law scope.
type ResolvedScope struct {
	LawID   int64    `json:"law_id"`
	Numbers []string `json:"numbers"`
}

func (s ResolvedScope) Covers(lawID int64, number string) bool {
	if s.LawID != lawID {
		return false
	}
	if s.Numbers == nil {
		return true
	}
	number = normalizeArticleNumber(number)
	for _, n := range s.Numbers {
		if normalizeArticleNumber(n) == number {
			return true
		}
	}
	return false
}

type TopicScopes struct {
	TopicID     int64           `json:"topic_id"`
	TopicNumber int             `json:"topic_number"`
	Title       string          `json:"title"`
	Scopes      []ResolvedScope `json:"scopes"`
}

// Resolver maps articles to the topics (temas) of an oposición and back.
type Resolver struct {
	DB    *gorm.DB
	Cache cache.Cache
}

func scopeCacheKey(oposicionID int64) string {
	return fmt.Sprintf("scope:%d", oposicionID)
}

// ScopesForOposicion returns every topic of the oposición ordered by number with its expanded scopes.
func (r Resolver) ScopesForOposicion(ctx context.Context, oposicionID int64) ([]TopicScopes, error) {
	c := r.Cache
	if c == nil {
		c = cache.Nop{}
	}
	key := scopeCacheKey(oposicionID)

	var cached []TopicScopes
	if ok, err := c.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	var topics []models.Topic
	if err := r.DB.Where("oposicion_id = ?", oposicionID).Order("topic_number asc").Find(&topics).Error; err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return []TopicScopes{}, nil
	}

	ids := make([]int64, len(topics))
	for i, t := range topics {
		ids[i] = t.ID
	}
	var scopes []models.TopicScope
	if err := r.DB.Where("topic_id IN (?)", ids).Order("id asc").Find(&scopes).Error; err != nil {
		return nil, err
	}

	byTopic := map[int64][]ResolvedScope{}
	for _, s := range scopes {
		rs := ResolvedScope{LawID: s.LawID}
		if strings.TrimSpace(s.ArticleNumbers) != "" {
			nums, err := ParseArticleNumbers(s.ArticleNumbers)
			if err != nil {
				return nil, fmt.Errorf("topic scope %d: %w", s.ID, err)
			}
			rs.Numbers = nums
		}
		byTopic[s.TopicID] = append(byTopic[s.TopicID], rs)
	}

	out := make([]TopicScopes, len(topics))
	for i, t := range topics {
		out[i] = TopicScopes{
			TopicID:     t.ID,
			TopicNumber: t.TopicNumber,
			Title:       t.Title,
			Scopes:      byTopic[t.ID],
		}
	}
	_ = c.Set(ctx, key, out, scopeCacheTTL)
	return out, nil
}

// TopicsForArticle returns the sorted topic numbers whose scopes include the article.
func (r Resolver) TopicsForArticle(ctx context.Context, oposicionID, lawID int64, number string) ([]int, error) {
	topics, err := r.ScopesForOposicion(ctx, oposicionID)
	if err != nil {
		return nil, err
	}
	out := []int{}
	for _, t := range topics {
		for _, s := range t.Scopes {
			if s.Covers(lawID, number) {
				out = append(out, t.TopicNumber)
				break
			}
		}
	}
	sort.Ints(out)
	return out, nil
}

// ArticleIDsForTopics returns the active article ids covered by the given topics.
// An empty topic list means every topic of the oposición.
func (r Resolver) ArticleIDsForTopics(ctx context.Context, oposicionID int64, topicNumbers []int) ([]int64, error) {
	topics, err := r.ScopesForOposicion(ctx, oposicionID)
	if err != nil {
		return nil, err
	}
	wanted := map[int]bool{}
	for _, n := range topicNumbers {
		wanted[n] = true
	}

	var scopes []ResolvedScope
	lawSet := map[int64]bool{}
	for _, t := range topics {
		if len(wanted) > 0 && !wanted[t.TopicNumber] {
			continue
		}
		for _, s := range t.Scopes {
			scopes = append(scopes, s)
			lawSet[s.LawID] = true
		}
	}
	if len(lawSet) == 0 {
		return []int64{}, nil
	}

	lawIDs := make([]int64, 0, len(lawSet))
	for id := range lawSet {
		lawIDs = append(lawIDs, id)
	}
	var articles []models.Article
	if err := r.DB.Select("id, law_id, article_number").
		Where("law_id IN (?) AND is_active = ?", lawIDs, true).
		Order("id asc").
		Find(&articles).Error; err != nil {
		return nil, err
	}

	out := []int64{}
	for _, a := range articles {
		for _, s := range scopes {
			if s.Covers(a.LawID, a.ArticleNumber) {
				out = append(out, a.ID)
				break
			}
		}
	}
	return out, nil
}

// ReplaceTopicScopes swaps every scope of a topic in one transaction.
func ReplaceTopicScopes(ctx context.Context, env Env, topicID int64, input []schemas.TopicScopeInput) ([]models.TopicScope, error) {
	var topic models.Topic
	if err := env.DB.First(&topic, topicID).Error; err != nil {
		return nil, wrapNotFound(err, "topic")
	}

	scopes := make([]models.TopicScope, 0, len(input))
	for i, in := range input {
		var law models.Law
		if err := env.DB.First(&law, in.LawID).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return nil, validationf("scopes[%d]: law %d does not exist", i, in.LawID)
			}
			return nil, err
		}
		numbers := strings.TrimSpace(in.ArticleNumbers)
		if numbers != "" {
			if _, err := ParseArticleNumbers(numbers); err != nil {
				return nil, err
			}
		}
		scopes = append(scopes, models.TopicScope{TopicID: topicID, LawID: in.LawID, ArticleNumbers: numbers})
	}

	err := env.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_id = ?", topicID).Delete(&models.TopicScope{}).Error; err != nil {
			return err
		}
		for i := range scopes {
			if err := tx.Create(&scopes[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	InvalidateCatalog(ctx, env.cache())
	return scopes, nil
}

// TopicCount is a topic with the number of active questions its scopes cover.
type TopicCount struct {
	TopicID       int64  `json:"topic_id"`
	TopicNumber   int    `json:"topic_number"`
	Title         string `json:"title"`
	QuestionCount int64  `json:"question_count"`
}

func TopicsWithCounts(ctx context.Context, env Env, oposicionID int64) ([]TopicCount, error) {
	topics, err := env.resolver().ScopesForOposicion(ctx, oposicionID)
	if err != nil {
		return nil, err
	}
	out := make([]TopicCount, 0, len(topics))
	for _, t := range topics {
		ids, err := env.resolver().ArticleIDsForTopics(ctx, oposicionID, []int{t.TopicNumber})
		if err != nil {
			return nil, err
		}
		var count int64
		if len(ids) > 0 {
			if err := env.DB.Model(&models.Question{}).
				Where("article_id IN (?) AND is_active = ?", ids, true).
				Count(&count).Error; err != nil {
				return nil, err
			}
		}
		out = append(out, TopicCount{TopicID: t.TopicID, TopicNumber: t.TopicNumber, Title: t.Title, QuestionCount: count})
	}
	return out, nil
}

// TemaMatch is the answer of GET /api/temas/resolve.
type TemaMatch struct {
	Oposicion string `json:"oposicion"`
	Law       string `json:"law"`
	Article   string `json:"article"`
	Topics    []int  `json:"topics"`
}

// ResolveTemas maps an article, given by slugs, to the topics of the oposición that cover it.
// The article does not need to exist: scopes are matched by number.
func ResolveTemas(ctx context.Context, env Env, in schemas.TemaResolveQuery) (TemaMatch, error) {
	op, err := OposicionBySlug(ctx, env, in.Oposicion)
	if err != nil {
		return TemaMatch{}, err
	}
	law, err := LawBySlug(ctx, env, in.Law)
	if err != nil {
		return TemaMatch{}, err
	}
	topics, err := env.resolver().TopicsForArticle(ctx, op.ID, law.ID, in.Article)
	if err != nil {
		return TemaMatch{}, err
	}
	return TemaMatch{Oposicion: op.Slug, Law: law.Slug, Article: in.Article, Topics: topics}, nil
}
