package queries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oposiciones/boe"
	"oposiciones/events"
	"oposiciones/metrics"
	"oposiciones/models"
	"oposiciones/storage"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SyncConcurrency is how many laws are synced at once.
const SyncConcurrency = 3

type SyncReport struct {
	LawID     int64    `json:"law_id"`
	LawSlug   string   `json:"law_slug"`
	Fetched   int      `json:"fetched"`
	Unchanged int      `json:"unchanged"`
	New       []string `json:"new"`
	Modified  []string `json:"modified"`
	Removed   []string `json:"removed"`
	Enqueued  int      `json:"verifications_enqueued"`
	Snapshot  string   `json:"snapshot,omitempty"`
}

func (r SyncReport) Changed() bool {
	return len(r.New)+len(r.Modified)+len(r.Removed) > 0
}

// SyncLaw downloads the consolidated text of a law, stores a snapshot and
// applies the article changes. Questions of modified articles go back to
// unverified and get a verification queued.
func SyncLaw(ctx context.Context, env Env, law models.Law) (SyncReport, error) {
	report := SyncReport{LawID: law.ID, LawSlug: law.Slug, New: []string{}, Modified: []string{}, Removed: []string{}}
	if law.BoeID == "" {
		return report, validationf("law %s has no boe_id", law.Slug)
	}
	if env.BOE == nil {
		return report, fmt.Errorf("%w: BOE client not configured", ErrUpstream)
	}
	now := env.now()

	raw, err := env.BOE.FetchConsolidated(ctx, law.BoeID)
	if err != nil {
		return report, fmt.Errorf("%w: fetch %s: %v", ErrUpstream, law.BoeID, err)
	}
	if env.Store != nil {
		key := storage.SnapshotKey(law.BoeID, now.Format("20060102"))
		if err := env.Store.Put(ctx, key, raw, "application/xml"); err != nil {
			env.log().Warn("store BOE snapshot", zap.String("key", key), zap.Error(err))
		} else {
			report.Snapshot = key
		}
	}

	fetched, err := boe.ParseConsolidatedBytes(raw)
	if err != nil {
		return report, fmt.Errorf("parse %s: %w", law.BoeID, err)
	}
	report.Fetched = len(fetched)

	var existing []models.Article
	if err := env.DB.Where("law_id = ?", law.ID).Order("id asc").Find(&existing).Error; err != nil {
		return report, err
	}
	inactive := map[string]models.Article{}
	var stored []boe.Stored
	for _, a := range existing {
		if !a.IsActive {
			inactive[a.ArticleNumber] = a
			continue
		}
		stored = append(stored, boe.Stored{ID: a.ID, Number: a.ArticleNumber, Content: a.Content, Hash: a.ContentHash})
	}
	changes := boe.Diff(stored, fetched)

	var modifiedIDs []int64
	err = env.DB.Transaction(func(tx *gorm.DB) error {
		for _, c := range changes {
			switch c.Type {
			case boe.Unchanged:
				report.Unchanged++
				continue

			case boe.Modified:
				if err := tx.Model(&models.Article{}).Where("id = ?", c.StoredID).Updates(map[string]any{
					"title":        c.Fetched.Title,
					"content":      c.Fetched.Content,
					"content_hash": c.NewHash,
				}).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.Question{}).Where("article_id = ?", c.StoredID).
					UpdateColumn("verification_status", models.VERIFICATION_UNVERIFIED).Error; err != nil {
					return err
				}
				if err := recordChange(tx, c.StoredID, law.ID, models.CHANGE_MODIFIED, c, now); err != nil {
					return err
				}
				modifiedIDs = append(modifiedIDs, c.StoredID)
				report.Modified = append(report.Modified, c.Number)

			case boe.New:
				id, err := upsertFetchedArticle(tx, law.ID, c, inactive)
				if err != nil {
					return err
				}
				if err := recordChange(tx, id, law.ID, models.CHANGE_NEW, c, now); err != nil {
					return err
				}
				report.New = append(report.New, c.Number)

			case boe.Removed:
				if err := tx.Model(&models.Article{}).Where("id = ?", c.StoredID).UpdateColumn("is_active", false).Error; err != nil {
					return err
				}
				if err := recordChange(tx, c.StoredID, law.ID, models.CHANGE_REMOVED, c, now); err != nil {
					return err
				}
				report.Removed = append(report.Removed, c.Number)
			}
		}
		return tx.Model(&models.Law{}).Where("id = ?", law.ID).UpdateColumn("last_synced_at", now).Error
	})
	if err != nil {
		return report, err
	}

	report.Enqueued, err = EnqueueVerifications(env.DB, modifiedIDs, now)
	if err != nil {
		return report, err
	}

	metrics.ArticlesChanged.WithLabelValues(models.CHANGE_NEW).Add(float64(len(report.New)))
	metrics.ArticlesChanged.WithLabelValues(models.CHANGE_MODIFIED).Add(float64(len(report.Modified)))
	metrics.ArticlesChanged.WithLabelValues(models.CHANGE_REMOVED).Add(float64(len(report.Removed)))
	env.log().Info("law synced",
		zap.String("law", law.Slug),
		zap.Int("fetched", report.Fetched),
		zap.Int("new", len(report.New)),
		zap.Int("modified", len(report.Modified)),
		zap.Int("removed", len(report.Removed)),
		zap.Int("enqueued", report.Enqueued),
	)

	if report.Changed() {
		err := env.events().Publish(ctx, events.TopicArticlesChanged, events.ArticlesChanged{
			LawID:    law.ID,
			LawSlug:  law.Slug,
			New:      report.New,
			Modified: report.Modified,
			Removed:  report.Removed,
		})
		if err != nil {
			env.log().Warn("publish articles changed", zap.String("law", law.Slug), zap.Error(err))
		}
	}
	return report, nil
}

// upsertFetchedArticle creates a new article, or reactivates one that was removed before.
func upsertFetchedArticle(tx *gorm.DB, lawID int64, c boe.Change, inactive map[string]models.Article) (int64, error) {
	if old, ok := inactive[c.Number]; ok {
		err := tx.Model(&models.Article{}).Where("id = ?", old.ID).Updates(map[string]any{
			"title":        c.Fetched.Title,
			"content":      c.Fetched.Content,
			"content_hash": c.NewHash,
			"is_active":    true,
		}).Error
		if err != nil {
			return 0, err
		}
		if old.ContentHash != c.NewHash {
			if err := tx.Model(&models.Question{}).Where("article_id = ?", old.ID).
				UpdateColumn("verification_status", models.VERIFICATION_UNVERIFIED).Error; err != nil {
				return 0, err
			}
		}
		return old.ID, nil
	}
	art := models.Article{
		LawID:         lawID,
		ArticleNumber: c.Number,
		Title:         c.Fetched.Title,
		Content:       c.Fetched.Content,
		ContentHash:   c.NewHash,
		IsActive:      true,
	}
	if err := tx.Create(&art).Error; err != nil {
		return 0, err
	}
	return art.ID, nil
}

func recordChange(tx *gorm.DB, articleID, lawID int64, changeType string, c boe.Change, now time.Time) error {
	return tx.Create(&models.ArticleChange{
		ArticleID:    articleID,
		LawID:        lawID,
		ChangeType:   changeType,
		Similarity:   c.Similarity,
		PreviousHash: c.OldHash,
		NewHash:      c.NewHash,
		DetectedAt:   &now,
	}).Error
}

// SyncLaws syncs the laws SyncConcurrency at a time. A failing law does not stop the others;
// the failures are joined in the returned error.
func SyncLaws(ctx context.Context, env Env, laws []models.Law) ([]SyncReport, error) {
	reports := make([]SyncReport, len(laws))
	errs := make([]error, len(laws))

	var g errgroup.Group
	g.SetLimit(SyncConcurrency)
	for i, law := range laws {
		g.Go(func() error {
			r, err := SyncLaw(ctx, env, law)
			reports[i] = r
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", law.Slug, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, errors.Join(errs...)
}

// SyncableLaws are the laws with a BOE id.
func SyncableLaws(db *gorm.DB) ([]models.Law, error) {
	var laws []models.Law
	err := db.Where("boe_id <> ''").Order("id asc").Find(&laws).Error
	return laws, err
}
