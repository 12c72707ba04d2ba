package handlers

import (
	"log"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/charmntreats/internal/models"
	"github.com/example/charmntreats/internal/utils"
)

// ContentHandler serves the blog and customer testimonials.
type ContentHandler struct {
	db *gorm.DB
}

// NewContentHandler constructs ContentHandler.
func NewContentHandler(db *gorm.DB) *ContentHandler {
	return &ContentHandler{db: db}
}

// ListBlogCategories returns every blog category.
func (h *ContentHandler) ListBlogCategories(c *fiber.Ctx) error {
	var categories []models.BlogCategory
	if err := h.db.WithContext(c.UserContext()).Order("name asc").Find(&categories).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}

// ListBlogPosts returns published posts, newest first, optionally within a
// category slug.
func (h *ContentHandler) ListBlogPosts(c *fiber.Ctx) error {
	query := h.db.WithContext(c.UserContext()).Model(&models.BlogPost{}).Where("published = ?", true)

	if slug := c.Query("category"); slug != "" {
		var category models.BlogCategory
		if err := h.db.WithContext(c.UserContext()).Where("slug = ?", slug).First(&category).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "category not found")
			}
			return err
		}
		query = query.Where("category_id = ?", category.ID)
	}

	pg := utils.ParsePagination(c)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var posts []models.BlogPost
	if err := query.Preload("Category").
		Limit(pg.Limit).Offset(pg.Offset).
		Order("published_at desc").
		Find(&posts).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    posts,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetBlogPost returns a published post by slug.
func (h *ContentHandler) GetBlogPost(c *fiber.Ctx) error {
	post, err := h.findPost(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": post})
}

// ListComments returns the approved comments of a post.
func (h *ContentHandler) ListComments(c *fiber.Ctx) error {
	post, err := h.findPost(c)
	if err != nil {
		return err
	}

	var comments []models.BlogComment
	if err := h.db.WithContext(c.UserContext()).
		Where("post_id = ? AND approved = ?", post.ID, true).
		Order("created_at asc").
		Find(&comments).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": comments})
}

type commentRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Content string `json:"content"`
}

// CreateComment stores a comment awaiting moderation.
func (h *ContentHandler) CreateComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Content = strings.TrimSpace(req.Content)
	if req.Name == "" || req.Email == "" || req.Content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name, email and content are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}

	post, err := h.findPost(c)
	if err != nil {
		return err
	}

	comment := models.BlogComment{
		PostID:  post.ID,
		Name:    req.Name,
		Email:   strings.ToLower(req.Email),
		Content: req.Content,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&comment).Error; err != nil {
		return err
	}

	log.Printf("[Blog] comment %s on %s awaiting approval", comment.ID, post.Slug)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Thanks! Your comment will appear once approved.",
		"data":    comment,
	})
}

// ListTestimonials returns testimonials, featured first.
func (h *ContentHandler) ListTestimonials(c *fiber.Ctx) error {
	query := h.db.WithContext(c.UserContext()).Model(&models.Testimonial{})
	if c.QueryBool("featured") {
		query = query.Where("featured = ?", true)
	}

	var testimonials []models.Testimonial
	if err := query.Order("featured desc").Order("created_at desc").Find(&testimonials).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": testimonials})
}

func (h *ContentHandler) findPost(c *fiber.Ctx) (*models.BlogPost, error) {
	var post models.BlogPost
	err := h.db.WithContext(c.UserContext()).
		Preload("Category").
		Where("slug = ? AND published = ?", c.Params("slug"), true).
		First(&post).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "post not found")
		}
		return nil, err
	}
	return &post, nil
}
