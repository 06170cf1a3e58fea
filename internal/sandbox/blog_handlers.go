package sandbox

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bankctl-dev/bankctl/internal/models"
)

const maxBlogPage = 50

// CommentRequest adds a reader comment
type CommentRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"omitempty,email"`
	Content string `json:"content" binding:"required,max=2000"`
}

// listPosts supports category, tag and search filters plus limit
func (s *Server) listPosts(c *gin.Context) {
	query := s.db.Where("status = ?", "published")

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if tag := c.Query("tag"); tag != "" {
		query = query.Where("(',' || tags || ',') LIKE ?", "%,"+tag+",%")
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ?", like, like)
	}

	var posts []BlogPost
	if err := query.Order("published_at DESC").Limit(limitParam(c, maxBlogPage)).Find(&posts).Error; err != nil {
		s.internalError(c, err, "Failed to list posts")
		return
	}

	out := make([]models.BlogPost, 0, len(posts))
	for i := range posts {
		out = append(out, posts[i].toModel(false))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) findPost(c *gin.Context) (*BlogPost, bool) {
	var post BlogPost
	if err := s.db.Where("slug = ? AND status = ?", c.Param("slug"), "published").First(&post).Error; err != nil {
		errorJSON(c, http.StatusNotFound, "Post not found")
		return nil, false
	}
	return &post, true
}

func (s *Server) getPost(c *gin.Context) {
	post, ok := s.findPost(c)
	if !ok {
		return
	}

	post.ViewCount++
	if err := s.db.Model(post).UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		s.logger.Warn().Err(err).Str("slug", post.Slug).Msg("Failed to count view")
	}

	c.JSON(http.StatusOK, post.toModel(true))
}

func (s *Server) listComments(c *gin.Context) {
	post, ok := s.findPost(c)
	if !ok {
		return
	}

	var comments []BlogComment
	err := s.db.Where("post_id = ? AND status = ?", post.ID, "approved").
		Order("created_at ASC, id ASC").
		Limit(limitParam(c, maxBlogPage)).
		Find(&comments).Error
	if err != nil {
		s.internalError(c, err, "Failed to list comments")
		return
	}

	out := make([]models.BlogComment, 0, len(comments))
	for i := range comments {
		out = append(out, comments[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addComment(c *gin.Context) {
	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	post, ok := s.findPost(c)
	if !ok {
		return
	}

	comment := BlogComment{
		PostID:  post.ID,
		Name:    req.Name,
		Email:   req.Email,
		Content: req.Content,
		Status:  "approved",
	}
	if err := s.db.Create(&comment).Error; err != nil {
		s.internalError(c, err, "Failed to add comment")
		return
	}

	c.JSON(http.StatusCreated, comment.toModel())
}

func (s *Server) listCategories(c *gin.Context) {
	var categories []BlogCategory
	if err := s.db.Order("name ASC").Find(&categories).Error; err != nil {
		s.internalError(c, err, "Failed to list categories")
		return
	}

	out := make([]models.BlogCategory, 0, len(categories))
	for i := range categories {
		out = append(out, categories[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listTags(c *gin.Context) {
	var tags []BlogTag
	if err := s.db.Order("name ASC").Find(&tags).Error; err != nil {
		s.internalError(c, err, "Failed to list tags")
		return
	}

	out := make([]models.BlogTag, 0, len(tags))
	for i := range tags {
		out = append(out, tags[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}
