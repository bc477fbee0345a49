package queries

import (
	"strings"
	"time"

	"oposiciones/config"
	"oposiciones/models"

	"github.com/jinzhu/gorm"
)

const freePlanSlug = "free"

func ListPlans(db *gorm.DB, onlyActive bool) ([]models.Plan, error) {
	q := db.Order("price_cents asc, id asc")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	plans := []models.Plan{}
	if err := q.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func GetPlan(db *gorm.DB, id int64) (models.Plan, error) {
	var plan models.Plan
	if err := db.First(&plan, id).Error; err != nil {
		return models.Plan{}, wrapNotFound(err, "plan")
	}
	return plan, nil
}

func CreatePlan(db *gorm.DB, plan models.Plan) (models.Plan, error) {
	plan.Slug = strings.ToLower(strings.TrimSpace(plan.Slug))
	if missing := plan.MissingFields(); missing != "" {
		return models.Plan{}, validationf("missing field %s", missing)
	}
	if plan.MonthlyTestLimit < 0 || plan.DailyAIChatLimit < 0 || plan.PriceCents < 0 {
		return models.Plan{}, validationf("limits and price cannot be negative")
	}
	var count int64
	if err := db.Model(&models.Plan{}).Where("slug = ?", plan.Slug).Count(&count).Error; err != nil {
		return models.Plan{}, err
	}
	if count > 0 {
		return models.Plan{}, conflictf("plan %s already exists", plan.Slug)
	}
	plan.ID = 0
	isActive := plan.IsActive
	if err := db.Create(&plan).Error; err != nil {
		return models.Plan{}, err
	}
	// gorm skips zero values that have a column default, so false needs its own write
	if !isActive {
		if err := db.Model(&plan).Update("is_active", false).Error; err != nil {
			return models.Plan{}, err
		}
	}
	return plan, nil
}

// UpdatePlan keeps the stored value for empty strings and negative numbers.
func UpdatePlan(db *gorm.DB, id int64, body models.Plan) (models.Plan, error) {
	plan, err := GetPlan(db, id)
	if err != nil {
		return models.Plan{}, err
	}

	if body.Name != "" {
		plan.Name = body.Name
	}
	plan.Description = body.Description
	if body.PriceCents >= 0 {
		plan.PriceCents = body.PriceCents
	}
	if body.MonthlyTestLimit >= 0 {
		plan.MonthlyTestLimit = body.MonthlyTestLimit
	}
	if body.DailyAIChatLimit >= 0 {
		plan.DailyAIChatLimit = body.DailyAIChatLimit
	}
	if body.Currency != "" {
		plan.Currency = body.Currency
	}
	if body.Interval != "" {
		plan.Interval = body.Interval
	}
	plan.IsActive = body.IsActive

	if err := db.Save(&plan).Error; err != nil {
		return models.Plan{}, err
	}
	return plan, nil
}

// DeletePlan refuses to drop a plan that still has users linked.
func DeletePlan(db *gorm.DB, id int64) error {
	if _, err := GetPlan(db, id); err != nil {
		return err
	}
	var linked int64
	if err := db.Model(&models.UserPlan{}).Where("plan_id = ?", id).Count(&linked).Error; err != nil {
		return err
	}
	if linked > 0 {
		return conflictf("plan has %d users", linked)
	}
	return db.Delete(&models.Plan{}, "id = ?", id).Error
}

// AssignPlan links the user to the plan, replacing any previous link.
func AssignPlan(db *gorm.DB, userID, planID int64, expiresAt *time.Time) (models.UserPlan, error) {
	if _, err := GetUser(db, userID); err != nil {
		return models.UserPlan{}, err
	}
	if _, err := GetPlan(db, planID); err != nil {
		return models.UserPlan{}, err
	}

	var link models.UserPlan
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&link).Error
		if gorm.IsRecordNotFoundError(err) {
			link = models.UserPlan{UserID: userID, PlanID: planID, ExpiresAt: expiresAt}
			return tx.Create(&link).Error
		}
		if err != nil {
			return err
		}
		link.PlanID = planID
		link.ExpiresAt = expiresAt
		return tx.Save(&link).Error
	})
	if err != nil {
		return models.UserPlan{}, err
	}
	return link, nil
}

// Limits are the effective quotas of a user. Zero means unlimited.
type Limits struct {
	PlanSlug     string     `json:"plan"`
	MonthlyTests int64      `json:"monthly_tests"`
	DailyAIChats int64      `json:"daily_ai_chats"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// LimitsForUser resolves the user's plan. Expired links and inactive plans fall back to the free tier.
func LimitsForUser(db *gorm.DB, conf config.Configuration, userID int64, now time.Time) (Limits, error) {
	free := Limits{
		PlanSlug:     freePlanSlug,
		MonthlyTests: int64(conf.Plans.FreeMonthlyTests),
		DailyAIChats: int64(conf.AI.FreeDailyChats),
	}

	var link models.UserPlan
	if err := db.Where("user_id = ?", userID).First(&link).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return free, nil
		}
		return Limits{}, err
	}
	if !link.Active(now) {
		return free, nil
	}

	var plan models.Plan
	if err := db.First(&plan, link.PlanID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return free, nil
		}
		return Limits{}, err
	}
	if !plan.IsActive {
		return free, nil
	}
	return Limits{
		PlanSlug:     plan.Slug,
		MonthlyTests: plan.MonthlyTestLimit,
		DailyAIChats: plan.DailyAIChatLimit,
		ExpiresAt:    link.ExpiresAt,
	}, nil
}

// CheckTestQuota fails with ErrLimitReached when the user generated every test of this calendar month.
func CheckTestQuota(db *gorm.DB, conf config.Configuration, userID int64, now time.Time) error {
	limits, err := LimitsForUser(db, conf, userID, now)
	if err != nil {
		return err
	}
	if limits.MonthlyTests == 0 {
		return nil
	}
	var used int64
	if err := db.Model(&models.Test{}).
		Where("user_id = ? AND created_at >= ?", userID, startOfMonth(now)).
		Count(&used).Error; err != nil {
		return err
	}
	if used >= limits.MonthlyTests {
		return ErrLimitReached
	}
	return nil
}

// CheckAIQuota counts today's successful chats against the daily limit.
func CheckAIQuota(db *gorm.DB, conf config.Configuration, userID int64, now time.Time) error {
	limits, err := LimitsForUser(db, conf, userID, now)
	if err != nil {
		return err
	}
	if limits.DailyAIChats == 0 {
		return nil
	}
	var used int64
	if err := db.Model(&models.AIChatLog{}).
		Where("user_id = ? AND created_at >= ? AND (error IS NULL OR error = '')", userID, startOfDay(now)).
		Count(&used).Error; err != nil {
		return err
	}
	if used >= limits.DailyAIChats {
		return ErrLimitReached
	}
	return nil
}
