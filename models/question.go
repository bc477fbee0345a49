package models

import "time"

/************************************************
/**** MARK: QUESTION DIFFICULTY ****/
/************************************************/
const DIFFICULTY_EASY = "easy"
const DIFFICULTY_MEDIUM = "medium"
const DIFFICULTY_HARD = "hard"
const DIFFICULTY_EXTREME = "extreme"

/************************************************
/**** MARK: VERIFICATION STATUS ****/
/************************************************/
const VERIFICATION_UNVERIFIED = "unverified"
const VERIFICATION_VERIFIED = "verified"
const VERIFICATION_NEEDS_REVIEW = "needs_review"

// MinAnswersForDifficulty is how many answers are needed before the
// difficulty is recomputed from the observed success rate.
const MinAnswersForDifficulty = 10

// Question is a multiple-choice question linked to one article.
type Question struct {
	ID                 int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ArticleID          int64      `gorm:"not null;index" json:"article_id" form:"article_id"`
	QuestionText       string     `gorm:"type:text;not null" json:"question_text" form:"question_text"`
	OptionA            string     `gorm:"type:text;not null" json:"option_a" form:"option_a"`
	OptionB            string     `gorm:"type:text;not null" json:"option_b" form:"option_b"`
	OptionC            string     `gorm:"type:text;not null" json:"option_c" form:"option_c"`
	OptionD            string     `gorm:"type:text;not null" json:"option_d" form:"option_d"`
	CorrectOption      string     `gorm:"not null" json:"correct_option" form:"correct_option"`
	Explanation        string     `gorm:"type:text" json:"explanation" form:"explanation"`
	Difficulty         string     `gorm:"not null;default:'medium';index" json:"difficulty" form:"difficulty"`
	IsOfficialExam     bool       `gorm:"not null;default:false" json:"is_official_exam" form:"is_official_exam"`
	ExamSource         string     `gorm:"default:''" json:"exam_source" form:"exam_source"`
	ExamYear           int        `gorm:"default:0" json:"exam_year" form:"exam_year"`
	IsActive           bool       `gorm:"not null;default:true;index" json:"is_active" form:"is_active"`
	VerificationStatus string     `gorm:"not null;default:'unverified';index" json:"verification_status"`
	TimesAnswered      int64      `gorm:"not null;default:0" json:"times_answered"`
	TimesCorrect       int64      `gorm:"not null;default:0" json:"times_correct"`
	CreatedAt          *time.Time `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
	DeletedAt          *time.Time `sql:"index" json:"-"`
}

func (q Question) MissingFields() string {
	if q.ArticleID == 0 {
		return "article_id"
	} else if q.QuestionText == "" {
		return "question_text"
	} else if q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
		return "options"
	} else if !IsValidOption(q.CorrectOption) {
		return "correct_option"
	}
	return ""
}

// Option returns the text of option a..d.
func (q Question) Option(opt string) string {
	switch opt {
	case "a":
		return q.OptionA
	case "b":
		return q.OptionB
	case "c":
		return q.OptionC
	case "d":
		return q.OptionD
	}
	return ""
}

// PublicQuestion is a question without the answer key.
type PublicQuestion struct {
	ID             int64  `json:"id"`
	ArticleID      int64  `json:"article_id"`
	QuestionText   string `json:"question_text"`
	OptionA        string `json:"option_a"`
	OptionB        string `json:"option_b"`
	OptionC        string `json:"option_c"`
	OptionD        string `json:"option_d"`
	Difficulty     string `json:"difficulty"`
	IsOfficialExam bool   `json:"is_official_exam"`
	ExamSource     string `json:"exam_source,omitempty"`
	ExamYear       int    `json:"exam_year,omitempty"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:             q.ID,
		ArticleID:      q.ArticleID,
		QuestionText:   q.QuestionText,
		OptionA:        q.OptionA,
		OptionB:        q.OptionB,
		OptionC:        q.OptionC,
		OptionD:        q.OptionD,
		Difficulty:     q.Difficulty,
		IsOfficialExam: q.IsOfficialExam,
		ExamSource:     q.ExamSource,
		ExamYear:       q.ExamYear,
	}
}

func IsValidOption(opt string) bool {
	switch opt {
	case "a", "b", "c", "d":
		return true
	}
	return false
}

// DifficultyForRate maps an observed success rate to a difficulty bucket.
func DifficultyForRate(rate float64) string {
	switch {
	case rate >= 0.80:
		return DIFFICULTY_EASY
	case rate >= 0.60:
		return DIFFICULTY_MEDIUM
	case rate >= 0.40:
		return DIFFICULTY_HARD
	default:
		return DIFFICULTY_EXTREME
	}
}
