package queries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oposiciones/cache"
	"oposiciones/models"
	"oposiciones/schemas"

	"github.com/jinzhu/gorm"
)

const slugCacheTTL = time.Hour

// InvalidateCatalog drops every cached slug lookup and topic scope.
func InvalidateCatalog(ctx context.Context, c cache.Cache) {
	_ = c.DeletePrefix(ctx, "slug:")
	_ = c.DeletePrefix(ctx, "scope:")
}

func ListOposiciones(db *gorm.DB, includeInactive bool) ([]models.Oposicion, error) {
	q := db.Order("name asc")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	out := []models.Oposicion{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func OposicionBySlug(ctx context.Context, env Env, slug string) (models.Oposicion, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	key := "slug:oposicion:" + slug

	var op models.Oposicion
	if ok, err := env.cache().Get(ctx, key, &op); err == nil && ok {
		return op, nil
	}
	if err := env.DB.Where("slug = ?", slug).First(&op).Error; err != nil {
		return models.Oposicion{}, wrapNotFound(err, "oposicion "+slug)
	}
	_ = env.cache().Set(ctx, key, op, slugCacheTTL)
	return op, nil
}

func LawBySlug(ctx context.Context, env Env, slug string) (models.Law, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	key := "slug:law:" + slug

	var law models.Law
	if ok, err := env.cache().Get(ctx, key, &law); err == nil && ok {
		return law, nil
	}
	if err := env.DB.Where("slug = ?", slug).First(&law).Error; err != nil {
		return models.Law{}, wrapNotFound(err, "law "+slug)
	}
	_ = env.cache().Set(ctx, key, law, slugCacheTTL)
	return law, nil
}

// LawsBySlugs resolves every slug or fails naming the first unknown one.
func LawsBySlugs(ctx context.Context, env Env, slugs []string) ([]models.Law, error) {
	out := make([]models.Law, 0, len(slugs))
	for _, s := range slugs {
		law, err := LawBySlug(ctx, env, s)
		if err != nil {
			return nil, err
		}
		out = append(out, law)
	}
	return out, nil
}

type LawSummary struct {
	models.Law
	ArticleCount int64 `json:"article_count"`
}

func ListLaws(db *gorm.DB) ([]LawSummary, error) {
	var laws []models.Law
	if err := db.Order("short_name asc").Find(&laws).Error; err != nil {
		return nil, err
	}

	type row struct {
		LawID int64
		Total int64
	}
	var rows []row
	if err := db.Model(&models.Article{}).
		Select("law_id, count(*) as total").
		Where("is_active = ?", true).
		Group("law_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := map[int64]int64{}
	for _, r := range rows {
		counts[r.LawID] = r.Total
	}

	out := make([]LawSummary, len(laws))
	for i, l := range laws {
		out[i] = LawSummary{Law: l, ArticleCount: counts[l.ID]}
	}
	return out, nil
}

func LawDetail(ctx context.Context, env Env, slug string) (LawSummary, error) {
	law, err := LawBySlug(ctx, env, slug)
	if err != nil {
		return LawSummary{}, err
	}
	var count int64
	if err := env.DB.Model(&models.Article{}).Where("law_id = ? AND is_active = ?", law.ID, true).Count(&count).Error; err != nil {
		return LawSummary{}, err
	}
	return LawSummary{Law: law, ArticleCount: count}, nil
}

func ArticleByNumber(ctx context.Context, env Env, lawSlug, number string) (models.Article, error) {
	law, err := LawBySlug(ctx, env, lawSlug)
	if err != nil {
		return models.Article{}, err
	}
	number = strings.ToLower(strings.Join(strings.Fields(number), " "))
	if !schemas.IsArticleNumber(number) {
		return models.Article{}, validationf("invalid article number %q", number)
	}
	var art models.Article
	if err := env.DB.Where("law_id = ? AND article_number = ?", law.ID, number).First(&art).Error; err != nil {
		return models.Article{}, wrapNotFound(err, fmt.Sprintf("article %s of %s", number, law.Slug))
	}
	return art, nil
}

func CreateOposicion(ctx context.Context, env Env, in schemas.OposicionInput) (models.Oposicion, error) {
	if err := ensureUniqueSlug(env.DB, &models.Oposicion{}, in.Slug, 0); err != nil {
		return models.Oposicion{}, err
	}
	op := models.Oposicion{Slug: in.Slug, Name: in.Name, ShortName: in.ShortName, IsActive: true}
	if err := env.DB.Create(&op).Error; err != nil {
		return models.Oposicion{}, err
	}
	if in.IsActive != nil && !*in.IsActive {
		if err := env.DB.Model(&op).Update("is_active", false).Error; err != nil {
			return models.Oposicion{}, err
		}
		op.IsActive = false
	}
	InvalidateCatalog(ctx, env.cache())
	return op, nil
}

func UpdateOposicion(ctx context.Context, env Env, id int64, in schemas.OposicionInput) (models.Oposicion, error) {
	var op models.Oposicion
	if err := env.DB.First(&op, id).Error; err != nil {
		return models.Oposicion{}, wrapNotFound(err, "oposicion")
	}
	if err := ensureUniqueSlug(env.DB, &models.Oposicion{}, in.Slug, id); err != nil {
		return models.Oposicion{}, err
	}
	op.Slug, op.Name, op.ShortName = in.Slug, in.Name, in.ShortName
	if in.IsActive != nil {
		op.IsActive = *in.IsActive
	}
	if err := env.DB.Save(&op).Error; err != nil {
		return models.Oposicion{}, err
	}
	InvalidateCatalog(ctx, env.cache())
	return op, nil
}

func CreateLaw(ctx context.Context, env Env, in schemas.LawInput) (models.Law, error) {
	if err := ensureUniqueSlug(env.DB, &models.Law{}, in.Slug, 0); err != nil {
		return models.Law{}, err
	}
	law := models.Law{Slug: in.Slug, ShortName: in.ShortName, Name: in.Name, BoeID: in.BoeID}
	if err := env.DB.Create(&law).Error; err != nil {
		return models.Law{}, err
	}
	InvalidateCatalog(ctx, env.cache())
	return law, nil
}

func UpdateLaw(ctx context.Context, env Env, id int64, in schemas.LawInput) (models.Law, error) {
	var law models.Law
	if err := env.DB.First(&law, id).Error; err != nil {
		return models.Law{}, wrapNotFound(err, "law")
	}
	if err := ensureUniqueSlug(env.DB, &models.Law{}, in.Slug, id); err != nil {
		return models.Law{}, err
	}
	law.Slug, law.ShortName, law.Name, law.BoeID = in.Slug, in.ShortName, in.Name, in.BoeID
	if err := env.DB.Save(&law).Error; err != nil {
		return models.Law{}, err
	}
	InvalidateCatalog(ctx, env.cache())
	return law, nil
}

func CreateTopic(ctx context.Context, env Env, in schemas.TopicInput) (models.Topic, error) {
	if err := env.DB.First(&models.Oposicion{}, in.OposicionID).Error; err != nil {
		return models.Topic{}, wrapNotFound(err, "oposicion")
	}
	if err := ensureUniqueTopic(env.DB, in.OposicionID, in.TopicNumber, 0); err != nil {
		return models.Topic{}, err
	}
	topic := models.Topic{OposicionID: in.OposicionID, TopicNumber: in.TopicNumber, Title: strings.TrimSpace(in.Title)}
	if err := env.DB.Create(&topic).Error; err != nil {
		return models.Topic{}, err
	}
	InvalidateCatalog(ctx, env.cache())
	return topic, nil
}

func UpdateTopic(ctx context.Context, env Env, id int64, in schemas.TopicInput) (models.Topic, error) {
	var topic models.Topic
	if err := env.DB.First(&topic, id).Error; err != nil {
		return models.Topic{}, wrapNotFound(err, "topic")
	}
	if in.OposicionID != topic.OposicionID {
		return models.Topic{}, validationf("a topic cannot move to another oposicion")
	}
	if err := ensureUniqueTopic(env.DB, in.OposicionID, in.TopicNumber, id); err != nil {
		return models.Topic{}, err
	}
	topic.TopicNumber = in.TopicNumber
	topic.Title = strings.TrimSpace(in.Title)
	if err := env.DB.Save(&topic).Error; err != nil {
		return models.Topic{}, err
	}
	InvalidateCatalog(ctx, env.cache())
	return topic, nil
}

func ensureUniqueSlug(db *gorm.DB, model any, slug string, exceptID int64) error {
	var count int64
	if err := db.Model(model).Where("slug = ? AND id <> ?", slug, exceptID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return conflictf("slug %s already in use", slug)
	}
	return nil
}

func ensureUniqueTopic(db *gorm.DB, oposicionID int64, number int, exceptID int64) error {
	var count int64
	if err := db.Model(&models.Topic{}).
		Where("oposicion_id = ? AND topic_number = ? AND id <> ?", oposicionID, number, exceptID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return conflictf("topic %d already exists", number)
	}
	return nil
}

func GetLaw(db *gorm.DB, id int64) (models.Law, error) {
	var law models.Law
	if err := db.First(&law, id).Error; err != nil {
		return models.Law{}, wrapNotFound(err, "law")
	}
	return law, nil
}
