package models

type UserDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type UserExtendedDTO struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	DailyQuoins   int64  `json:"dailyQuoins"`
	WeeklyQuoins  int64  `json:"weeklyQuoins"`
	MonthlyQuoins int64  `json:"monthlyQuoins"`
	DailyCount    int64  `json:"dailyCount"`
}

type QuestionDTO struct {
	QuestionText  string   `json:"questionText"`
	Answers       []string `json:"answers"`
	CorrectAnswer uint     `json:"correctAnswer"`
	ImageURL      *string  `json:"imageUrl,omitempty"`
}

type QuizDTO struct {
	ID               uint          `json:"id"`
	Name             string        `json:"name"`
	AttemptCount     int64         `json:"attemptCount"`
	BestAttemptScore *float64      `json:"bestAttemptScore"`
	Author           UserDTO       `json:"author"`
	Questions        []QuestionDTO `json:"questions"`
}

func (u User) ToDTO() UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username}
}

func (u User) ToExtendedDTO() UserExtendedDTO {
	return UserExtendedDTO{
		ID:            u.ID,
		Username:      u.Username,
		DailyQuoins:   u.DailyQuoins,
		WeeklyQuoins:  u.WeeklyQuoins,
		MonthlyQuoins: u.MonthlyQuoins,
		DailyCount:    u.DailyCount,
	}
}

func (q Question) ToDTO() QuestionDTO {
	answers := make([]string, len(q.Answers))
	copy(answers, q.Answers)
	return QuestionDTO{
		QuestionText:  q.QuestionText,
		Answers:       answers,
		CorrectAnswer: q.CorrectAnswer,
		ImageURL:      q.ImageURL,
	}
}

func (q Quiz) ToDTO() QuizDTO {
	questions := make([]QuestionDTO, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = question.ToDTO()
	}
	return QuizDTO{
		ID:               q.ID,
		Name:             q.Name,
		AttemptCount:     q.AttemptCount,
		BestAttemptScore: q.BestAttemptScore,
		Author:           q.Author.ToDTO(),
		Questions:        questions,
	}
}
