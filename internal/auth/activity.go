package auth

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/repomanager"
	"github.com/google/uuid"
)

const (
	recentActivities = 10
	maxGenres        = 5
)

type Analytics struct {
	Account         *models.AccountView           `json:"account"`
	TotalActivities int                           `json:"total_activities"`
	ByType          map[models.ActivityType]int   `json:"by_type"`
	ByStatus        map[models.ActivityStatus]int `json:"by_status"`
	Recent          []*models.Activity            `json:"recent"`
	ActiveSessions  int                           `json:"active_sessions"`
}

// newActivityID returns a time-ordered id, so activities stamped with the
// same timestamp still sort by creation order.
func newActivityID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// sortNewestFirst orders by timestamp descending, ties by id descending.
func sortNewestFirst(list []*models.Activity) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].ID > list[j].ID
		}
		return list[i].Timestamp.After(list[j].Timestamp)
	})
}

func (s *Service) activities(ctx context.Context, accountID string) ([]*models.Activity, error) {
	list, err := s.repos.Activities().GetAllByIndex(ctx, repomanager.IndexAccountID, accountID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(list)
	return list, nil
}

// RecordActivity appends an activity on behalf of the surrounding app and
// folds analyses and uploads into the account's usage counters.
func (s *Service) RecordActivity(ctx context.Context, accountID string, in ActivityInput) Result {
	if err := in.validate(); err != nil {
		return s.failure(ctx, "record activity", err)
	}
	if in.Status == "" {
		in.Status = models.StatusCompleted
	}

	if in.Type == models.ActivityAnalysis || in.Type == models.ActivityUpload {
		_, err := s.mutate(ctx, accountID, func(a *models.Account) error {
			foldUsage(&a.Usage, in)
			return nil
		})
		if err != nil {
			return s.failure(ctx, "record activity", err)
		}
	} else if _, err := s.account(ctx, accountID); err != nil {
		return s.failure(ctx, "record activity", err)
	}

	a := &models.Activity{
		ID:          newActivityID(),
		AccountID:   accountID,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Timestamp:   s.now(),
		Metadata:    in.Metadata,
		Status:      in.Status,
	}
	a, err := s.repos.Activities().Create(ctx, a)
	if err != nil {
		return s.failure(ctx, "record activity", err)
	}
	return ok("Activity recorded.", a)
}

func foldUsage(u *models.Usage, in ActivityInput) {
	switch in.Type {
	case models.ActivityUpload:
		u.TotalUploads++
	case models.ActivityAnalysis:
		if in.Status == models.StatusFailed {
			return
		}
		if acc, ok := in.Metadata["accuracy"].(float64); ok {
			total := u.AverageAccuracy*float64(u.TotalAnalyses) + acc
			u.AverageAccuracy = total / float64(u.TotalAnalyses+1)
		}
		u.TotalAnalyses++
		if g, ok := in.Metadata["genre"].(string); ok && g != "" {
			u.FavoriteGenres = addGenre(u.FavoriteGenres, g)
		}
	}
}

// addGenre moves g to the front, keeping at most maxGenres.
func addGenre(genres []string, g string) []string {
	out := []string{g}
	for _, x := range genres {
		if x != g && len(out) < maxGenres {
			out = append(out, x)
		}
	}
	return out
}

// Activities lists an account's activities newest first.
func (s *Service) Activities(ctx context.Context, accountID string, f ActivityFilter) Result {
	list, err := s.activities(ctx, accountID)
	if err != nil {
		return s.failure(ctx, "list activities", err)
	}

	out := make([]*models.Activity, 0, len(list))
	for _, a := range list {
		if !f.match(a) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return ok("Activities loaded.", out)
}

func (s *Service) Analytics(ctx context.Context, accountID string) Result {
	acc, err := s.account(ctx, accountID)
	if err != nil {
		return s.failure(ctx, "analytics", err)
	}

	list, err := s.activities(ctx, accountID)
	if err != nil {
		return s.failure(ctx, "analytics", err)
	}

	sess, err := s.sessions.ListForAccount(ctx, accountID)
	if err != nil {
		return s.failure(ctx, "analytics", err)
	}

	an := &Analytics{
		Account:         acc.View(),
		TotalActivities: len(list),
		ByType:          map[models.ActivityType]int{},
		ByStatus:        map[models.ActivityStatus]int{},
	}
	for _, a := range list {
		an.ByType[a.Type]++
		an.ByStatus[a.Status]++
	}
	for _, x := range sess {
		if s.sessions.IsValid(x) {
			an.ActiveSessions++
		}
	}
	an.Recent = list
	if len(list) > recentActivities {
		an.Recent = list[:recentActivities]
	}

	return ok("Analytics loaded.", an)
}
