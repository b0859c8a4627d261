package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/order"
)

type insertResult struct {
	InsertedID string `json:"insertedId"`
	Message    string `json:"message"`
}

// ListMeals returns the public catalog, optionally sorted by price.
func (c *Client) ListMeals(ctx context.Context, sort string) ([]order.Meal, error) {
	path := "/meals"
	if sort == enum.MealSortAsc || sort == enum.MealSortDesc {
		path += "?sort=" + url.QueryEscape(sort)
	}
	var meals []order.Meal
	if err := c.get(ctx, path, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}

func (c *Client) GetMeal(ctx context.Context, id string) (order.Meal, error) {
	var m order.Meal
	err := c.get(ctx, "/meals/"+url.PathEscape(id), &m)
	return m, err
}

// MealsByChef returns the meals published by the chef with email.
func (c *Client) MealsByChef(ctx context.Context, email string) ([]order.Meal, error) {
	var meals []order.Meal
	if err := c.get(ctx, "/meals/by-chef/"+url.PathEscape(email), &meals); err != nil {
		return nil, err
	}
	return meals, nil
}

// CreateMeal stores m and returns the id the backend assigned.
func (c *Client) CreateMeal(ctx context.Context, m order.Meal) (string, error) {
	var res insertResult
	if err := c.send(ctx, http.MethodPost, "/meals", m, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (c *Client) UpdateMeal(ctx context.Context, id string, m order.Meal) error {
	return c.send(ctx, http.MethodPut, "/meals/"+url.PathEscape(id), m, nil)
}

func (c *Client) DeleteMeal(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/meals/"+url.PathEscape(id), nil, nil)
}
