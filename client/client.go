package client

import (
	"context"

	"github.com/a-h/jsonapi"
	"github.com/a-h/ragsearch/models"
)

func New(baseURL, apiKey string) Client {
	return Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type Client struct {
	baseURL string
	apiKey  string
}

func (c Client) SearchPost(ctx context.Context, req models.SearchPostRequest) (resp models.SearchPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("search").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.SearchPostRequest, models.SearchPostResponse](ctx, url, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}
