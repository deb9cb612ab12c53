package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/ai"
	"schoolhub/internal/common"
	"schoolhub/internal/metrics"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	feeAnalyticsTTL = time.Hour
	maxChatHistory  = 10
)

// FeeAnalyticsCache stores the last fee analytics result per school.
type FeeAnalyticsCache interface {
	GetFeeAnalytics(ctx context.Context, schoolID uuid.UUID) (json.RawMessage, error)
	SetFeeAnalytics(ctx context.Context, schoolID uuid.UUID, result json.RawMessage, ttl time.Duration) error
}

type AIService interface {
	ProposeTimetable(ctx context.Context, schoolID, userID uuid.UUID, req *AITimetableRequest) (*TimetableProposal, error)
	PredictPerformance(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, req *AIPerformanceRequest) (*PerformancePrediction, error)
	Chat(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, req *AIChatRequest) (*ChatReply, error)
	FeeAnalytics(ctx context.Context, schoolID, userID uuid.UUID) (*FeeAnalytics, error)
	// ListInsights lists stored results, newest first. An empty kind lists all.
	ListInsights(ctx context.Context, schoolID uuid.UUID, kind string, limit int) ([]*models.AIInsight, error)
}

type AIDeps struct {
	Completer   ai.Completer
	Insights    repositories.AIInsightRepository
	Classes     repositories.ClassRepository
	People      repositories.PeopleRepository
	Access      PeopleService
	Timetable   TimetableService
	Assignments repositories.AssignmentRepository
	Fees        repositories.FeeRepository
	Cache       FeeAnalyticsCache
	Metrics     *metrics.Metrics
	Log         logrus.FieldLogger
}

type aiService struct {
	AIDeps
	now func() time.Time
}

func NewAIService(deps AIDeps) AIService {
	return &aiService{AIDeps: deps, now: time.Now}
}

type AITimetableRequest struct {
	ClassID       uuid.UUID `json:"class_id" validate:"required"`
	Days          []string  `json:"days"`
	PeriodsPerDay int       `json:"periods_per_day" validate:"omitempty,min=1,max=12"`
	StartTime     string    `json:"start_time" validate:"omitempty,clock"`
	PeriodMinutes int       `json:"period_minutes" validate:"omitempty,min=10,max=180"`
	Apply         bool      `json:"apply"`
}

type TimetableProposal struct {
	Entries   []*models.TimetableEntry `json:"entries"`
	Conflicts []models.Conflict        `json:"conflicts"`
	Applied   bool                     `json:"applied"`
	InsightID uuid.UUID                `json:"insight_id"`
}

type AIPerformanceRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
}

type PerformancePrediction struct {
	StudentID       uuid.UUID `json:"student_id"`
	PredictedGrade  string    `json:"predicted_grade"`
	RiskLevel       string    `json:"risk_level"`
	Strengths       []string  `json:"strengths"`
	Weaknesses      []string  `json:"weaknesses"`
	Recommendations []string  `json:"recommendations"`
	InsightID       uuid.UUID `json:"insight_id"`
}

type AIChatRequest struct {
	Message string       `json:"message" validate:"required,max=4000"`
	History []ai.Message `json:"history"`
}

type ChatReply struct {
	Reply string `json:"reply"`
}

type FeeAnalytics struct {
	Summary        string    `json:"summary"`
	CollectionRate float64   `json:"collection_rate"`
	OverdueCount   int       `json:"overdue_count"`
	Insights       []string  `json:"insights"`
	InsightID      uuid.UUID `json:"insight_id,omitempty"`
	Cached         bool      `json:"cached"`
}

// complete calls the gateway and records the call in metrics.
func (s *aiService) complete(ctx context.Context, feature string, messages []ai.Message) (string, error) {
	start := time.Now()
	reply, err := s.Completer.Complete(ctx, messages)
	if s.Metrics != nil {
		s.Metrics.ObserveAI(feature, start, err)
	}
	return reply, err
}

func (s *aiService) persist(ctx context.Context, schoolID, userID uuid.UUID, kind string, subjectID *uuid.UUID, result interface{}) (uuid.UUID, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return uuid.Nil, err
	}
	insight := &models.AIInsight{
		ID:          uuid.New(),
		SchoolID:    schoolID,
		Kind:        kind,
		SubjectID:   subjectID,
		RequestedBy: userID,
		Result:      raw,
		Model:       s.Completer.Model(),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.Insights.Save(ctx, insight); err != nil {
		return uuid.Nil, err
	}
	return insight.ID, nil
}

func promptJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type proposedEntry struct {
	Day       string    `json:"day"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	SubjectID uuid.UUID `json:"subject_id"`
	TeacherID uuid.UUID `json:"teacher_id"`
	Room      *string   `json:"room"`
}

func (s *aiService) ProposeTimetable(ctx context.Context, schoolID, userID uuid.UUID, req *AITimetableRequest) (*TimetableProposal, error) {
	class, err := s.Classes.GetClass(ctx, schoolID, req.ClassID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.Classes.ListSubjects(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	teacherOf := map[uuid.UUID]uuid.UUID{}
	type subjectInfo struct {
		ID        uuid.UUID `json:"subject_id"`
		Name      string    `json:"name"`
		TeacherID uuid.UUID `json:"teacher_id"`
	}
	var offered []subjectInfo
	for _, sub := range subjects {
		if sub.TeacherID == nil {
			continue
		}
		teacherOf[sub.ID] = *sub.TeacherID
		offered = append(offered, subjectInfo{ID: sub.ID, Name: sub.Name, TeacherID: *sub.TeacherID})
	}
	if len(offered) == 0 {
		return nil, fmt.Errorf("no subjects with an assigned teacher: %w", common.ErrValidation)
	}

	booked, err := s.Timetable.List(ctx, schoolID, repositories.TimetableFilter{})
	if err != nil {
		return nil, err
	}
	type busy struct {
		TeacherID uuid.UUID `json:"teacher_id"`
		Day       string    `json:"day"`
		Start     string    `json:"start_time"`
		End       string    `json:"end_time"`
	}
	var busySlots []busy
	for _, e := range booked {
		busySlots = append(busySlots, busy{TeacherID: e.TeacherID, Day: e.Day, Start: e.StartTime, End: e.EndTime})
	}

	days := req.Days
	if len(days) == 0 {
		days = models.Weekdays[:5]
	}
	for _, d := range days {
		if !models.IsWeekday(d) {
			return nil, fmt.Errorf("day %q must be one of Monday..Saturday: %w", d, common.ErrValidation)
		}
	}
	periods, start, minutes := req.PeriodsPerDay, req.StartTime, req.PeriodMinutes
	if periods == 0 {
		periods = 6
	}
	if start == "" {
		start = "08:00"
	}
	if minutes == 0 {
		minutes = 45
	}

	input := map[string]interface{}{
		"class":           class.Name,
		"days":            days,
		"periods_per_day": periods,
		"start_time":      start,
		"period_minutes":  minutes,
		"subjects":        offered,
		"teacher_busy":    busySlots,
	}
	messages := []ai.Message{
		{Role: "system", Content: "You are a school timetable planner. Build a weekly timetable for one class. " +
			"Never book a teacher in a slot listed in teacher_busy. Use only the given subject and teacher ids. " +
			`Reply with JSON only: {"entries":[{"day":"Monday","start_time":"HH:MM","end_time":"HH:MM","subject_id":"...","teacher_id":"...","room":null}]}`},
		{Role: "user", Content: promptJSON(input)},
	}

	reply, err := s.complete(ctx, models.InsightTimetable, messages)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Entries []proposedEntry `json:"entries"`
	}
	if err := ai.Decode(reply, &parsed); err != nil {
		return nil, err
	}

	var (
		candidates []*models.TimetableEntry
		rejected   []models.Conflict
	)
	for _, p := range parsed.Entries {
		teacherID, ok := teacherOf[p.SubjectID]
		if !ok || teacherID != p.TeacherID {
			rejected = append(rejected, models.Conflict{Kind: "invalid", Day: p.Day, Start: p.StartTime, End: p.EndTime,
				Message: "unknown subject or teacher not assigned to it"})
			continue
		}
		candidates = append(candidates, &models.TimetableEntry{
			ClassID:   class.ID,
			SubjectID: p.SubjectID,
			TeacherID: p.TeacherID,
			Day:       p.Day,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Room:      p.Room,
		})
	}

	accepted, conflicts, err := s.Timetable.CheckAndCreate(ctx, schoolID, candidates, req.Apply)
	if err != nil {
		return nil, err
	}
	proposal := &TimetableProposal{
		Entries:   accepted,
		Conflicts: append(rejected, conflicts...),
		Applied:   req.Apply,
	}
	if proposal.Entries == nil {
		proposal.Entries = []*models.TimetableEntry{}
	}
	if proposal.Conflicts == nil {
		proposal.Conflicts = []models.Conflict{}
	}

	classID := class.ID
	proposal.InsightID, err = s.persist(ctx, schoolID, userID, models.InsightTimetable, &classID, proposal)
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// canViewStudent reports whether the caller may see a student's results.
func (s *aiService) canViewStudent(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, studentID uuid.UUID) error {
	if role == models.RoleAdmin || role == models.RoleTeacher {
		_, err := s.People.GetStudent(ctx, schoolID, studentID)
		return err
	}
	students, err := s.Access.VisibleStudents(ctx, schoolID, userID, role)
	if err != nil {
		return err
	}
	for _, st := range students {
		if st.ID == studentID {
			return nil
		}
	}
	return fmt.Errorf("student is not visible to you: %w", common.ErrForbidden)
}

var riskLevels = map[string]bool{"low": true, "medium": true, "high": true}

func (s *aiService) PredictPerformance(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, req *AIPerformanceRequest) (*PerformancePrediction, error) {
	if err := s.canViewStudent(ctx, schoolID, userID, role, req.StudentID); err != nil {
		return nil, err
	}
	results, err := s.Assignments.GradedResults(ctx, schoolID, req.StudentID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("student has no graded submissions yet: %w", common.ErrValidation)
	}

	messages := []ai.Message{
		{Role: "system", Content: "You are an academic advisor. From a student's graded work, predict their overall grade and risk of falling behind. " +
			`Reply with JSON only: {"predicted_grade":"A-F","risk_level":"low|medium|high","strengths":[],"weaknesses":[],"recommendations":[]}`},
		{Role: "user", Content: promptJSON(map[string]interface{}{"graded_work": results})},
	}
	reply, err := s.complete(ctx, models.InsightPerformance, messages)
	if err != nil {
		return nil, err
	}

	prediction := &PerformancePrediction{}
	if err := ai.Decode(reply, prediction); err != nil {
		return nil, err
	}
	prediction.StudentID = req.StudentID
	prediction.RiskLevel = strings.ToLower(strings.TrimSpace(prediction.RiskLevel))
	if !riskLevels[prediction.RiskLevel] {
		prediction.RiskLevel = "medium"
	}

	studentID := req.StudentID
	prediction.InsightID, err = s.persist(ctx, schoolID, userID, models.InsightPerformance, &studentID, prediction)
	if err != nil {
		return nil, err
	}
	return prediction, nil
}

var chatPersonas = map[models.Role]string{
	models.RoleAdmin:   "You assist a school administrator with operations, staffing, fees and policy questions.",
	models.RoleTeacher: "You assist a teacher with lesson planning, assessment and classroom management.",
	models.RoleStudent: "You are a patient study helper for a school student. Explain step by step and do not simply hand over answers to graded work.",
	models.RoleParent:  "You help a parent understand their child's schooling, homework and how to support learning at home.",
}

func (s *aiService) Chat(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, req *AIChatRequest) (*ChatReply, error) {
	persona, ok := chatPersonas[role]
	if !ok {
		return nil, fmt.Errorf("no assistant for role %q: %w", role, common.ErrForbidden)
	}

	messages := []ai.Message{{Role: "system", Content: persona + " Keep answers concise."}}
	history := req.History
	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}
	for _, m := range history {
		if m.Role == "user" || m.Role == "assistant" {
			messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
		}
	}
	messages = append(messages, ai.Message{Role: "user", Content: req.Message})

	reply, err := s.complete(ctx, models.InsightChat, messages)
	if err != nil {
		return nil, err
	}
	out := &ChatReply{Reply: strings.TrimSpace(reply)}

	if _, err := s.persist(ctx, schoolID, userID, models.InsightChat, nil, map[string]string{
		"message": req.Message,
		"reply":   out.Reply,
	}); err != nil {
		s.Log.WithError(err).Warn("chat insight not saved")
	}
	return out, nil
}

func (s *aiService) FeeAnalytics(ctx context.Context, schoolID, userID uuid.UUID) (*FeeAnalytics, error) {
	if s.Cache != nil {
		cached, err := s.Cache.GetFeeAnalytics(ctx, schoolID)
		if err != nil {
			s.Log.WithError(err).Warn("fee analytics cache read failed")
		} else if cached != nil {
			out := &FeeAnalytics{}
			if err := json.Unmarshal(cached, out); err == nil {
				out.Cached = true
				return out, nil
			}
		}
	}

	summary, err := s.Fees.Summary(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	rate := summary.CollectionRate()

	messages := []ai.Message{
		{Role: "system", Content: "You are a school finance analyst. Summarise fee collection and suggest concrete actions. " +
			`Reply with JSON only: {"summary":"...","insights":["..."]}`},
		{Role: "user", Content: promptJSON(map[string]interface{}{"fees": summary, "collection_rate": rate})},
	}
	reply, err := s.complete(ctx, models.InsightFeeAnalytics, messages)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Summary  string   `json:"summary"`
		Insights []string `json:"insights"`
	}
	if err := ai.Decode(reply, &parsed); err != nil {
		return nil, err
	}

	out := &FeeAnalytics{
		Summary:        parsed.Summary,
		CollectionRate: rate,
		OverdueCount:   summary.OverdueCount,
		Insights:       parsed.Insights,
	}
	if out.Insights == nil {
		out.Insights = []string{}
	}
	out.InsightID, err = s.persist(ctx, schoolID, userID, models.InsightFeeAnalytics, nil, out)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		raw, _ := json.Marshal(out)
		if err := s.Cache.SetFeeAnalytics(ctx, schoolID, raw, feeAnalyticsTTL); err != nil {
			s.Log.WithError(err).Warn("fee analytics cache write failed")
		}
	}
	return out, nil
}

var insightKinds = map[string]bool{
	models.InsightTimetable:    true,
	models.InsightPerformance:  true,
	models.InsightChat:         true,
	models.InsightFeeAnalytics: true,
}

func (s *aiService) ListInsights(ctx context.Context, schoolID uuid.UUID, kind string, limit int) ([]*models.AIInsight, error) {
	if kind != "" && !insightKinds[kind] {
		return nil, fmt.Errorf("unknown insight kind %q: %w", kind, common.ErrValidation)
	}
	limit, _ = common.ValidatePaginationParams(limit, 0)
	return s.Insights.List(ctx, schoolID, kind, limit)
}
