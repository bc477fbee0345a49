package queries

import (
	"context"
	"fmt"
	"strings"

	"oposiciones/models"
	"oposiciones/schemas"

	"github.com/jinzhu/gorm"
)

// Catalog is the seed file format of `oposctl seed`.
type Catalog struct {
	Laws        []CatalogLaw       `yaml:"laws"`
	Oposiciones []CatalogOposicion `yaml:"oposiciones"`
}

type CatalogLaw struct {
	Slug      string `yaml:"slug"`
	ShortName string `yaml:"short_name"`
	Name      string `yaml:"name"`
	BoeID     string `yaml:"boe_id"`
}

type CatalogOposicion struct {
	Slug      string         `yaml:"slug"`
	Name      string         `yaml:"name"`
	ShortName string         `yaml:"short_name"`
	Topics    []CatalogTopic `yaml:"topics"`
}

type CatalogTopic struct {
	Number int            `yaml:"number"`
	Title  string         `yaml:"title"`
	Scopes []CatalogScope `yaml:"scopes"`
}

// CatalogScope references a law by slug. An empty article list covers the whole law.
type CatalogScope struct {
	Law      string `yaml:"law"`
	Articles string `yaml:"articles"`
}

type SeedReport struct {
	Laws        int `json:"laws"`
	Oposiciones int `json:"oposiciones"`
	Topics      int `json:"topics"`
	Scopes      int `json:"scopes"`
}

// SeedCatalog upserts laws, oposiciones, topics and their scopes by slug and number.
// Scopes of every seeded topic are replaced.
func SeedCatalog(ctx context.Context, env Env, cat Catalog) (SeedReport, error) {
	var report SeedReport
	if err := validateCatalog(cat); err != nil {
		return report, err
	}

	err := env.DB.Transaction(func(tx *gorm.DB) error {
		lawIDs := map[string]int64{}
		for _, l := range cat.Laws {
			var law models.Law
			err := tx.Where("slug = ?", l.Slug).First(&law).Error
			if err != nil && !gorm.IsRecordNotFoundError(err) {
				return err
			}
			law.Slug, law.ShortName, law.Name, law.BoeID = l.Slug, l.ShortName, l.Name, l.BoeID
			if err := tx.Save(&law).Error; err != nil {
				return err
			}
			lawIDs[l.Slug] = law.ID
			report.Laws++
		}

		for _, o := range cat.Oposiciones {
			var op models.Oposicion
			err := tx.Where("slug = ?", o.Slug).First(&op).Error
			if err != nil && !gorm.IsRecordNotFoundError(err) {
				return err
			}
			if op.ID == 0 {
				op.IsActive = true
			}
			op.Slug, op.Name, op.ShortName = o.Slug, o.Name, o.ShortName
			if err := tx.Save(&op).Error; err != nil {
				return err
			}
			report.Oposiciones++

			for _, t := range o.Topics {
				var topic models.Topic
				err := tx.Where("oposicion_id = ? AND topic_number = ?", op.ID, t.Number).First(&topic).Error
				if err != nil && !gorm.IsRecordNotFoundError(err) {
					return err
				}
				topic.OposicionID, topic.TopicNumber, topic.Title = op.ID, t.Number, t.Title
				if err := tx.Save(&topic).Error; err != nil {
					return err
				}
				report.Topics++

				if err := tx.Where("topic_id = ?", topic.ID).Delete(&models.TopicScope{}).Error; err != nil {
					return err
				}
				for _, s := range t.Scopes {
					lawID, ok := lawIDs[s.Law]
					if !ok {
						var law models.Law
						if err := tx.Where("slug = ?", s.Law).First(&law).Error; err != nil {
							return wrapNotFound(err, "law "+s.Law)
						}
						lawID = law.ID
						lawIDs[s.Law] = lawID
					}
					scope := models.TopicScope{TopicID: topic.ID, LawID: lawID, ArticleNumbers: strings.TrimSpace(s.Articles)}
					if err := tx.Create(&scope).Error; err != nil {
						return err
					}
					report.Scopes++
				}
			}
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}
	InvalidateCatalog(ctx, env.cache())
	return report, nil
}

func validateCatalog(cat Catalog) error {
	for i, l := range cat.Laws {
		if !schemas.IsSlug(l.Slug) || l.ShortName == "" || l.Name == "" {
			return validationf("laws[%d]: slug, short_name and name are required", i)
		}
	}
	for i, o := range cat.Oposiciones {
		if !schemas.IsSlug(o.Slug) || o.Name == "" {
			return validationf("oposiciones[%d]: slug and name are required", i)
		}
		seen := map[int]bool{}
		for j, t := range o.Topics {
			if t.Number <= 0 || t.Title == "" || seen[t.Number] {
				return validationf("oposiciones[%d].topics[%d]: invalid or repeated topic", i, j)
			}
			seen[t.Number] = true
			for k, s := range t.Scopes {
				if s.Law == "" {
					return validationf("oposiciones[%d].topics[%d].scopes[%d]: law is required", i, j, k)
				}
				if strings.TrimSpace(s.Articles) != "" {
					if _, err := ParseArticleNumbers(s.Articles); err != nil {
						return fmt.Errorf("oposiciones[%d].topics[%d].scopes[%d]: %w", i, j, k, err)
					}
				}
			}
		}
	}
	return nil
}
