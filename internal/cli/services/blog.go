package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/bankctl-dev/bankctl/internal/cli/client"
	"github.com/bankctl-dev/bankctl/internal/models"
)

// Blog wraps the public /blog endpoints. Failures are logged before they are
// returned.
type Blog struct {
	base
	logger zerolog.Logger
}

// NewBlog creates the blog facade
func NewBlog(c *client.Client, token TokenSource) *Blog {
	return &Blog{base: newBase(c, token), logger: zerolog.Nop()}
}

// SetLogger sets the logger used for failed calls
func (b *Blog) SetLogger(logger zerolog.Logger) {
	b.logger = logger
}

func postPath(slug, suffix string) string {
	return "/blog/posts/" + url.PathEscape(slug) + suffix
}

// Posts lists posts; params may carry category, tag, search and paging filters
func (b *Blog) Posts(ctx context.Context, params url.Values) ([]models.BlogPost, error) {
	var posts []models.BlogPost
	if err := b.do(ctx, http.MethodGet, "/blog/posts", params, nil, &posts); err != nil {
		b.logger.Warn().Err(err).Msg("Error fetching blog posts")
		return nil, err
	}
	return posts, nil
}

// Post returns one post by slug
func (b *Blog) Post(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := b.do(ctx, http.MethodGet, postPath(slug, ""), nil, nil, &post); err != nil {
		b.logger.Warn().Err(err).Str("slug", slug).Msg("Error fetching blog post")
		return nil, err
	}
	return &post, nil
}

// Comments lists the comments on a post
func (b *Blog) Comments(ctx context.Context, slug string, params url.Values) ([]models.BlogComment, error) {
	var comments []models.BlogComment
	if err := b.do(ctx, http.MethodGet, postPath(slug, "/comments"), params, nil, &comments); err != nil {
		b.logger.Warn().Err(err).Str("slug", slug).Msg("Error fetching comments")
		return nil, err
	}
	return comments, nil
}

// AddComment posts a comment on a post
func (b *Blog) AddComment(ctx context.Context, slug string, comment models.BlogComment) (*models.BlogComment, error) {
	var created models.BlogComment
	if err := b.do(ctx, http.MethodPost, postPath(slug, "/comments"), nil, comment, &created); err != nil {
		b.logger.Warn().Err(err).Str("slug", slug).Msg("Error adding comment")
		return nil, err
	}
	return &created, nil
}

// Categories lists blog categories
func (b *Blog) Categories(ctx context.Context) ([]models.BlogCategory, error) {
	var categories []models.BlogCategory
	if err := b.do(ctx, http.MethodGet, "/blog/categories", nil, nil, &categories); err != nil {
		b.logger.Warn().Err(err).Msg("Error fetching categories")
		return nil, err
	}
	return categories, nil
}

// Tags lists blog tags
func (b *Blog) Tags(ctx context.Context) ([]models.BlogTag, error) {
	var tags []models.BlogTag
	if err := b.do(ctx, http.MethodGet, "/blog/tags", nil, nil, &tags); err != nil {
		b.logger.Warn().Err(err).Msg("Error fetching tags")
		return nil, err
	}
	return tags, nil
}
