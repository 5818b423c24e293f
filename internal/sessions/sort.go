package sessions

import (
	"sort"

	"github.com/dmitrijs2005/tagzilla/internal/models"
)

func sortByCreated(list []*models.Session) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
