package view

import (
	"github.com/homecook/storefront/internal/guard"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
)

// ReviewItem is a review with the viewer's edit/delete controls. Controls for
// other users' reviews are omitted, not just disabled.
type ReviewItem struct {
	order.Review
	Actions []Action `json:"actions"`
}

func Reviews(reviews []order.Review, a lifecycle.Actor) []ReviewItem {
	out := make([]ReviewItem, 0, len(reviews))
	for _, r := range reviews {
		item := ReviewItem{Review: r, Actions: []Action{}}
		if guard.CanModify(r, a) {
			item.Actions = append(item.Actions, enabled("edit", true, ""), enabled("delete", true, ""))
		}
		out = append(out, item)
	}
	return out
}

// FavoriteItem is a saved meal with its Remove control.
type FavoriteItem struct {
	order.Favorite
	Actions []Action `json:"actions"`
}

func Favorites(favs []order.Favorite) []FavoriteItem {
	out := make([]FavoriteItem, 0, len(favs))
	for _, f := range favs {
		out = append(out, FavoriteItem{Favorite: f, Actions: []Action{enabled("remove", true, "")}})
	}
	return out
}
