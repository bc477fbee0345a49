package queries

import (
	"strings"

	"oposiciones/models"
	"oposiciones/schemas"

	"github.com/jinzhu/gorm"
)

// CreateFeedback stores site feedback. Anonymous senders must leave an email.
func CreateFeedback(db *gorm.DB, user *models.User, in schemas.FeedbackCreate) (models.Feedback, error) {
	f := models.Feedback{
		Type:    in.Type,
		Message: in.Message,
		URL:     strings.TrimSpace(in.URL),
		Email:   in.Email,
		Status:  models.FEEDBACK_STATUS_PENDING,
	}
	if user != nil {
		f.UserID = &user.ID
		if f.Email == "" {
			f.Email = user.Email
		}
	} else if f.Email == "" {
		return models.Feedback{}, validationf("email is required for anonymous feedback")
	}
	if err := db.Create(&f).Error; err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

func AdminListFeedback(db *gorm.DB, in schemas.FeedbackQuery) (Page[models.Feedback], error) {
	q := db.Model(&models.Feedback{})
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}
	if in.Type != "" {
		q = q.Where("type = ?", in.Type)
	}
	return paginate[models.Feedback](q, in.Pagination, "created_at desc, id desc")
}

func AdminUpdateFeedback(db *gorm.DB, id int64, in schemas.FeedbackUpdate) (models.Feedback, error) {
	var f models.Feedback
	if err := db.First(&f, id).Error; err != nil {
		return models.Feedback{}, wrapNotFound(err, "feedback")
	}
	f.Status = in.Status
	f.AdminNotes = strings.TrimSpace(in.AdminNotes)
	if err := db.Save(&f).Error; err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}
