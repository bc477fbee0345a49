package queries

import (
	"context"
	"fmt"

	"oposiciones/events"
	"oposiciones/models"
	"oposiciones/schemas"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// CreateDispute opens an impugnación. A user can have one open dispute per question.
func CreateDispute(env Env, userID int64, in schemas.DisputeCreate) (models.QuestionDispute, error) {
	if _, err := GetActiveQuestion(env.DB, in.QuestionID); err != nil {
		return models.QuestionDispute{}, err
	}

	var open int64
	if err := env.DB.Model(&models.QuestionDispute{}).
		Where("user_id = ? AND question_id = ? AND status IN (?)", userID, in.QuestionID,
			[]string{models.DISPUTE_STATUS_PENDING, models.DISPUTE_STATUS_REVIEWING}).
		Count(&open).Error; err != nil {
		return models.QuestionDispute{}, err
	}
	if open > 0 {
		return models.QuestionDispute{}, conflictf("there is already an open dispute for this question")
	}

	now := env.now()
	d := models.QuestionDispute{
		QuestionID:  in.QuestionID,
		UserID:      userID,
		DisputeType: in.DisputeType,
		Description: in.Description,
		Status:      models.DISPUTE_STATUS_PENDING,
		CreatedAt:   &now,
	}
	if err := env.DB.Create(&d).Error; err != nil {
		return models.QuestionDispute{}, err
	}
	return d, nil
}

func ListMyDisputes(db *gorm.DB, userID int64, p schemas.Pagination) (Page[models.QuestionDispute], error) {
	return paginate[models.QuestionDispute](db.Model(&models.QuestionDispute{}).Where("user_id = ?", userID), p, "created_at desc, id desc")
}

// AdminListDisputes is the review queue: oldest first.
func AdminListDisputes(db *gorm.DB, in schemas.DisputesQuery) (Page[models.QuestionDispute], error) {
	q := db.Model(&models.QuestionDispute{})
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}
	if in.Type != "" {
		q = q.Where("dispute_type = ?", in.Type)
	}
	return paginate[models.QuestionDispute](q, in.Pagination, "created_at asc, id asc")
}

// UpdateDispute moves a dispute through the review workflow. Final states
// notify the author and publish an event.
func UpdateDispute(ctx context.Context, env Env, adminID, disputeID int64, in schemas.DisputeUpdate) (models.QuestionDispute, error) {
	var d models.QuestionDispute
	if err := env.DB.First(&d, disputeID).Error; err != nil {
		return models.QuestionDispute{}, wrapNotFound(err, "dispute")
	}
	if !models.CanTransition(d.Status, in.Status) {
		return models.QuestionDispute{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, in.Status)
	}

	now := env.now()
	final := in.Status == models.DISPUTE_STATUS_RESOLVED || in.Status == models.DISPUTE_STATUS_REJECTED
	updates := map[string]any{"status": in.Status}
	if in.AdminResponse != "" {
		updates["admin_response"] = in.AdminResponse
	}
	if final {
		updates["resolved_by"] = adminID
		updates["resolved_at"] = now
	}

	err := env.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.QuestionDispute{}).Where("id = ? AND status = ?", d.ID, d.Status).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: dispute changed concurrently", ErrInvalidTransition)
		}
		if in.DeactivateQuestion {
			return tx.Model(&models.Question{}).Where("id = ?", d.QuestionID).UpdateColumn("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return models.QuestionDispute{}, err
	}
	if err := env.DB.First(&d, disputeID).Error; err != nil {
		return models.QuestionDispute{}, err
	}
	if !final {
		return d, nil
	}

	if user, err := GetUser(env.DB, d.UserID); err == nil {
		if _, err := SendUserEmail(ctx, env, user, models.EMAIL_TYPE_DISPUTE_UPDATE,
			disputeSubject(d.Status), disputeBody(user, d)); err != nil {
			env.log().Warn("dispute email", zap.Int64("dispute_id", d.ID), zap.Error(err))
		}
	}
	err = env.events().Publish(ctx, events.TopicDisputeResolved, events.DisputeResolved{
		DisputeID:           d.ID,
		QuestionID:          d.QuestionID,
		UserID:              d.UserID,
		Status:              d.Status,
		QuestionDeactivated: in.DeactivateQuestion,
	})
	if err != nil {
		env.log().Warn("publish dispute resolved", zap.Int64("dispute_id", d.ID), zap.Error(err))
	}
	return d, nil
}

func disputeSubject(status string) string {
	if status == models.DISPUTE_STATUS_RESOLVED {
		return "Tu impugnación ha sido aceptada"
	}
	return "Tu impugnación ha sido revisada"
}

func disputeBody(user models.User, d models.QuestionDispute) string {
	verdict := "no ha sido aceptada"
	if d.Status == models.DISPUTE_STATUS_RESOLVED {
		verdict = "ha sido aceptada"
	}
	return fmt.Sprintf("Hola %s,\n\nTu impugnación de la pregunta #%d %s.\n\nRespuesta del equipo:\n%s",
		firstName(user.Name), d.QuestionID, verdict, d.AdminResponse)
}
