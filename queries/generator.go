package queries

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"oposiciones/models"

	"github.com/jinzhu/gorm"
)

// maxCandidatePool caps how many question ids are weighted per generated test.
const maxCandidatePool = 2000

const (
	weightUnseen    = 1.5
	weightWrong     = 3.0
	weightCorrect   = 1.0
	weightWrongFlat = 1.5
)

// answerHistory is the user's last answer to a question.
type answerHistory struct {
	QuestionID int64
	Correct    bool
	AnsweredAt time.Time
}

type candidate struct {
	ID     int64
	Weight float64
}

// candidateWeight applies the weighting: unseen questions and mistakes are favored.
func candidateWeight(h answerHistory, seen, focusWeak bool) float64 {
	switch {
	case !seen:
		return weightUnseen
	case !h.Correct && focusWeak:
		return weightWrong
	case !h.Correct:
		return weightWrongFlat
	default:
		return weightCorrect
	}
}

// buildCandidates weights ids by history and drops questions answered correctly
// at or after recentCutoff, unless that would leave fewer than n.
func buildCandidates(ids []int64, history map[int64]answerHistory, focusWeak bool, recentCutoff *time.Time, n int) []candidate {
	all := make([]candidate, 0, len(ids))
	kept := make([]candidate, 0, len(ids))
	for _, id := range ids {
		h, seen := history[id]
		c := candidate{ID: id, Weight: candidateWeight(h, seen, focusWeak)}
		all = append(all, c)
		if recentCutoff != nil && seen && h.Correct && !h.AnsweredAt.Before(*recentCutoff) {
			continue
		}
		kept = append(kept, c)
	}
	if recentCutoff == nil || len(kept) >= n {
		return kept
	}
	return all
}

// weightedSample draws n ids without replacement (Efraimidis-Spirakis: the n largest
// keys u^(1/w), compared as log(u)/w) and shuffles the result.
func weightedSample(r *rand.Rand, cands []candidate, n int) []int64 {
	if n > len(cands) {
		n = len(cands)
	}
	type keyed struct {
		id  int64
		key float64
	}
	keys := make([]keyed, len(cands))
	for i, c := range cands {
		u := 1 - r.Float64() // (0,1]
		keys[i] = keyed{id: c.ID, key: math.Log(u) / c.Weight}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].key > keys[j].key })

	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = keys[i].id
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// candidatePool selects up to maxCandidatePool active question ids matching the filters, sorted by id.
func candidatePool(db *gorm.DB, articleIDs []int64, difficulty string, onlyOfficial bool) ([]int64, error) {
	ids := []int64{}
	if len(articleIDs) == 0 {
		return ids, nil
	}
	q := db.Model(&models.Question{}).Where("article_id IN (?) AND is_active = ?", articleIDs, true)
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	if onlyOfficial {
		q = q.Where("is_official_exam = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	if total > maxCandidatePool {
		q = q.Order("RANDOM()").Limit(maxCandidatePool)
	} else {
		q = q.Order("id asc")
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// lastAnswers returns the most recent answer of the user to each of the questions.
func lastAnswers(db *gorm.DB, userID int64, questionIDs []int64) (map[int64]answerHistory, error) {
	out := map[int64]answerHistory{}
	if len(questionIDs) == 0 {
		return out, nil
	}
	var rows []models.TestQuestion
	if err := db.Table("test_questions").
		Select("test_questions.question_id, test_questions.is_correct, test_questions.answered_at").
		Joins("JOIN tests ON tests.id = test_questions.test_id").
		Where("tests.user_id = ? AND test_questions.answered_at IS NOT NULL AND test_questions.question_id IN (?)", userID, questionIDs).
		Order("test_questions.answered_at asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.AnsweredAt == nil {
			continue
		}
		out[r.QuestionID] = answerHistory{
			QuestionID: r.QuestionID,
			Correct:    r.IsCorrect != nil && *r.IsCorrect,
			AnsweredAt: *r.AnsweredAt,
		}
	}
	return out, nil
}
