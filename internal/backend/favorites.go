package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/order"
)

const alreadyExists = "already_exist"

// AddFavorite stores f. It reports created=false when the backend already holds
// a favorite for the same user and meal.
func (c *Client) AddFavorite(ctx context.Context, f order.Favorite) (bool, error) {
	var res insertResult
	err := c.send(ctx, http.MethodPost, "/favorites", f, &res)
	if errors.Is(err, apperr.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if res.InsertedID == "" && res.Message == alreadyExists {
		return false, nil
	}
	return true, nil
}

func (c *Client) DeleteFavorite(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/favorites/"+url.PathEscape(id), nil, nil)
}

// FavoritesByUser returns the favorites saved by email.
func (c *Client) FavoritesByUser(ctx context.Context, email string) ([]order.Favorite, error) {
	var favs []order.Favorite
	if err := c.get(ctx, "/favorites/user/"+url.PathEscape(email), &favs); err != nil {
		return nil, err
	}
	return favs, nil
}
