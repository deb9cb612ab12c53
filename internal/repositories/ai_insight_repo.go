package repositories

import (
	"context"

	"schoolhub/internal/models"

	"github.com/google/uuid"
)

type AIInsightRepository interface {
	Save(ctx context.Context, insight *models.AIInsight) error
	List(ctx context.Context, schoolID uuid.UUID, kind string, limit int) ([]*models.AIInsight, error)
}

type aiInsightRepo struct {
	scoped *Scoped
}

func NewAIInsightRepo(db DBTX) AIInsightRepository {
	return &aiInsightRepo{scoped: NewScoped(db)}
}

func (r *aiInsightRepo) Save(ctx context.Context, insight *models.AIInsight) error {
	id, err := r.scoped.Insert(ctx, "ai_insights", insight.SchoolID, map[string]interface{}{
		"id":           insight.ID,
		"kind":         insight.Kind,
		"subject_id":   insight.SubjectID,
		"requested_by": insight.RequestedBy,
		"result":       []byte(insight.Result),
		"model":        insight.Model,
		"created_at":   insight.CreatedAt,
	})
	if err != nil {
		return err
	}
	insight.ID = id
	return nil
}

func (r *aiInsightRepo) List(ctx context.Context, schoolID uuid.UUID, kind string, limit int) ([]*models.AIInsight, error) {
	filter := Filter{}
	if kind != "" {
		filter["kind"] = kind
	}
	return ScopedList[models.AIInsight](ctx, r.scoped, "ai_insights", schoolID, filter, Page{OrderBy: "created_at", Desc: true, Limit: limit})
}
