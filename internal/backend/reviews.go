package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/homecook/storefront/internal/order"
)

// CreateReview stores r and returns its id.
func (c *Client) CreateReview(ctx context.Context, r order.Review) (string, error) {
	var res insertResult
	if err := c.send(ctx, http.MethodPost, "/reviews", r, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (c *Client) GetReview(ctx context.Context, id string) (order.Review, error) {
	var r order.Review
	err := c.get(ctx, "/reviews/"+url.PathEscape(id), &r)
	return r, err
}

func (c *Client) UpdateReview(ctx context.Context, id string, in order.ReviewInput) error {
	return c.send(ctx, http.MethodPatch, "/reviews/"+url.PathEscape(id), in, nil)
}

func (c *Client) DeleteReview(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(id), nil, nil)
}

// ReviewsByMeal returns the reviews left on a meal.
func (c *Client) ReviewsByMeal(ctx context.Context, mealID string) ([]order.Review, error) {
	var reviews []order.Review
	if err := c.get(ctx, "/reviews/by-meal?mealId="+url.QueryEscape(mealID), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// ReviewsByReviewer returns the reviews written under name.
func (c *Client) ReviewsByReviewer(ctx context.Context, name string) ([]order.Review, error) {
	var reviews []order.Review
	if err := c.get(ctx, "/reviews/user/"+url.PathEscape(name), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// HomeReviews returns the featured reviews shown on the landing page.
func (c *Client) HomeReviews(ctx context.Context) ([]order.Review, error) {
	var reviews []order.Review
	if err := c.get(ctx, "/home-reviews", &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}
